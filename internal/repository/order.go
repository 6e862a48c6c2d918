package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO user_orders (user_id, total) VALUES ($1, $2)
		RETURNING id, created_at`

	listOrdersByUserSQL = `SELECT o.id, o.total, o.created_at, u.id, u.username
		FROM user_orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1
		ORDER BY o.id`

	listOrderItemsSQL = `SELECT oi.order_id, i.id, i.name, i.price, i.description
		FROM user_order_items oi JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place inserts the order built from the locked cart, then saves the cart,
// all in one transaction.
func (r *OrderRepository) Place(ctx context.Context, userID int64, build func(c *cart.Cart) (*order.Order, error)) (*order.Order, error) {
	var o *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := lockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if o, err = build(c); err != nil {
			return err
		}
		if err := insertOrder(ctx, tx, userID, o); err != nil {
			return err
		}
		return saveCart(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, userID int64, o *order.Order) error {
	if err := tx.QueryRow(ctx, createOrderSQL, userID, o.Total).Scan(&o.ID, &o.CreatedAt); err != nil {
		return fmt.Errorf("creating order for user %d: %w", userID, err)
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"user_order_items"},
		[]string{"order_id", "position", "item_id"},
		pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
			return []any{o.ID, int32(i), o.Items[i].ID}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("writing items of order %d: %w", o.ID, err)
	}
	return nil
}

// ListByUserID returns the user's orders with their items, oldest first.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items of user %d: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      item.Item
		)
		if err := rows.Scan(&orderID, &it.ID, &it.Name, &it.Price, &it.Description); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing order items of user %d: %w", userID, err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.Total, &o.CreatedAt, &o.User.ID, &o.User.Username)
	return o, err
}
