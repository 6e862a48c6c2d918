package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sareeta-shop/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, username, password, cart_id FROM users WHERE id = $1`

	getUserByUsernameSQL = `SELECT id, username, password, cart_id FROM users WHERE username = $1`

	createCartSQL = `INSERT INTO carts DEFAULT VALUES RETURNING id`

	createUserSQL = `INSERT INTO users (username, password, cart_id) VALUES ($1, $2, $3) RETURNING id`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns a user by its identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, getUserByIDSQL, id)
}

// GetByUsername returns a user by its unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, getUserByUsernameSQL, username)
}

func (r *UserRepository) getOne(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	return &u, nil
}

// Create inserts an empty cart and the user owning it in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, createCartSQL).Scan(&u.CartID); err != nil {
			return fmt.Errorf("creating cart: %w", err)
		}
		if err := tx.QueryRow(ctx, createUserSQL, u.Username, u.PasswordHash, u.CartID).Scan(&u.ID); err != nil {
			if isUniqueViolation(err) {
				return user.ErrUsernameTaken
			}
			return fmt.Errorf("creating user %q: %w", u.Username, err)
		}
		return nil
	})
	if err != nil {
		u.ID, u.CartID = 0, 0
		return err
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CartID)
	return u, err
}
