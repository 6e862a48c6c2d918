package item

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// Item is a catalog entry with a fixed price.
type Item struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Description string
}

// Repository defines read operations for the item catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	// GetByName returns every item with exactly the given name. An unknown
	// name yields an empty slice, not an error.
	GetByName(ctx context.Context, name string) ([]Item, error)
}
