package cart

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// ErrInvalidQuantity is returned when a cart mutation is asked for fewer than
// one unit.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Cart is a user's pending selection. Items holds one entry per unit, so an
// item added twice appears twice. Total always equals the sum of Items prices.
type Cart struct {
	ID    int64
	Items []item.Item
	User  user.Ref
	Total decimal.Decimal
}

// AddItem appends count copies of it and raises the total by price*count.
func (c *Cart) AddItem(it item.Item, count int) error {
	if count < 1 {
		return ErrInvalidQuantity
	}
	for range count {
		c.Items = append(c.Items, it)
	}
	c.Total = c.Total.Add(it.Price.Mul(decimal.NewFromInt(int64(count))))
	return nil
}

// RemoveItem removes up to count units of it, matched by item ID, and returns
// how many were actually removed. The total only drops for removed units.
func (c *Cart) RemoveItem(it item.Item, count int) (int, error) {
	if count < 1 {
		return 0, ErrInvalidQuantity
	}
	removed := 0
	for removed < count {
		i := slices.IndexFunc(c.Items, func(x item.Item) bool { return x.ID == it.ID })
		if i < 0 {
			break
		}
		c.Total = c.Total.Sub(c.Items[i].Price)
		c.Items = slices.Delete(c.Items, i, i+1)
		removed++
	}
	return removed, nil
}

// Empty clears the cart.
func (c *Cart) Empty() {
	c.Items = nil
	c.Total = decimal.Zero
}

// Len returns the number of units in the cart.
func (c *Cart) Len() int {
	return len(c.Items)
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Update loads the cart owned by userID, holds a lock on it while fn runs
	// and saves the result when fn returns nil. The saved cart is returned.
	Update(ctx context.Context, userID int64, fn func(c *Cart) error) (*Cart, error)
}
