package order

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// Order is an immutable snapshot of a cart taken at submission time.
type Order struct {
	ID        int64
	Items     []item.Item
	User      user.Ref
	Total     decimal.Decimal
	CreatedAt time.Time
}

// CreateFromCart builds an unsaved order holding a copy of the cart's items,
// its total and its owner. The cart is not modified.
func CreateFromCart(c *cart.Cart) *Order {
	return &Order{
		Items: slices.Clone(c.Items),
		User:  c.User,
		Total: c.Total,
	}
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Place locks the cart owned by userID and passes it to build. When build
	// succeeds, the returned order is inserted first and the (mutated) cart is
	// saved afterwards, in one transaction. The stored order is returned with
	// ID and CreatedAt set. An error from build aborts without writing.
	Place(ctx context.Context, userID int64, build func(c *cart.Cart) (*Order, error)) (*Order, error)
	// ListByUserID returns the user's orders, oldest first.
	ListByUserID(ctx context.Context, userID int64) ([]Order, error)
}

// HistoryCache caches per-user order history. Every Invalidate advances the
// user's generation; Set is a no-op when the generation moved past the one
// returned by the preceding Get.
type HistoryCache interface {
	// Get returns the cached history. On a miss, gen is the generation to
	// pass to Set.
	Get(ctx context.Context, userID int64) (orders []Order, gen int64, ok bool, err error)
	Set(ctx context.Context, userID, gen int64, orders []Order) error
	Invalidate(ctx context.Context, userID int64) error
}

// Publisher announces submitted orders to other systems.
type Publisher interface {
	PublishOrderSubmitted(ctx context.Context, o *Order) error
}
