package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/sareeta-shop/internal/domain/item"
)

const (
	listItemsSQL = `SELECT id, name, price, description FROM items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, price, description FROM items WHERE id = $1`

	getItemsByNameSQL = `SELECT id, name, price, description FROM items WHERE name = $1 ORDER BY id`

	listItemNamesSQL = `SELECT name FROM items`

	existingItemNamesSQL = `SELECT DISTINCT name FROM items WHERE name = ANY($1)`
)

var _ item.Repository = (*ItemRepository)(nil)

// ItemRepository implements item.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns the whole catalog ordered by ID.
func (r *ItemRepository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}

	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, fmt.Errorf("getting item %d: %w", id, err)
	}
	return &it, nil
}

// GetByName returns all items with the given name.
func (r *ItemRepository) GetByName(ctx context.Context, name string) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsByNameSQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting items named %q: %w", name, err)
	}
	return pgx.CollectRows(rows, scanItem)
}

// Names returns the names of every catalog item.
func (r *ItemRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listItemNamesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing item names: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ExistingNames returns the subset of names already present in the catalog.
func (r *ItemRepository) ExistingNames(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, existingItemNamesSQL, names)
	if err != nil {
		return nil, fmt.Errorf("checking %d item names: %w", len(names), err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Insert bulk-loads items with COPY and returns the number of rows written.
// IDs are assigned by the database.
func (r *ItemRepository) Insert(ctx context.Context, items []item.Item) (int64, error) {
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"items"},
		[]string{"name", "price", "description"},
		pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
			return []any{items[i].Name, items[i].Price, items[i].Description}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting %d items: %w", len(items), err)
	}
	return n, nil
}

func scanItem(row pgx.CollectableRow) (item.Item, error) {
	var it item.Item
	err := row.Scan(&it.ID, &it.Name, &it.Price, &it.Description)
	return it, err
}
