package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

const (
	lockCartSQL = `SELECT c.id, c.total, u.id, u.username
		FROM users u JOIN carts c ON c.id = u.cart_id
		WHERE u.id = $1
		FOR UPDATE OF c`

	listCartItemsSQL = `SELECT i.id, i.name, i.price, i.description
		FROM cart_items ci JOIN items i ON i.id = ci.item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.position`

	updateCartTotalSQL = `UPDATE carts SET total = $2 WHERE id = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Update locks the user's cart row for the length of the transaction, applies
// fn and writes the cart back.
func (r *CartRepository) Update(ctx context.Context, userID int64, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	var c *cart.Cart
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		if c, err = lockCart(ctx, tx, userID); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		return saveCart(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// lockCart loads the cart owned by userID with its items and holds a row lock
// on it until tx ends.
func lockCart(ctx context.Context, tx pgx.Tx, userID int64) (*cart.Cart, error) {
	c := new(cart.Cart)
	err := tx.QueryRow(ctx, lockCartSQL, userID).Scan(&c.ID, &c.Total, &c.User.ID, &c.User.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("locking cart of user %d: %w", userID, err)
	}

	rows, err := tx.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %d: %w", c.ID, err)
	}
	if c.Items, err = pgx.CollectRows(rows, scanItem); err != nil {
		return nil, fmt.Errorf("listing items of cart %d: %w", c.ID, err)
	}
	return c, nil
}

// saveCart replaces the stored item list and total of c.
func saveCart(ctx context.Context, tx pgx.Tx, c *cart.Cart) error {
	if _, err := tx.Exec(ctx, updateCartTotalSQL, c.ID, c.Total); err != nil {
		return fmt.Errorf("updating cart %d: %w", c.ID, err)
	}
	if _, err := tx.Exec(ctx, clearCartItemsSQL, c.ID); err != nil {
		return fmt.Errorf("clearing cart %d: %w", c.ID, err)
	}
	if len(c.Items) == 0 {
		return nil
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"cart_items"},
		[]string{"cart_id", "position", "item_id"},
		pgx.CopyFromSlice(len(c.Items), func(i int) ([]any, error) {
			return []any{c.ID, int32(i), c.Items[i].ID}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("writing items of cart %d: %w", c.ID, err)
	}
	return nil
}
