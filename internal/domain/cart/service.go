package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// Op names a cart mutation.
type Op string

// Cart mutations.
const (
	OpAdd    Op = "ADD"
	OpRemove Op = "REMOVE"
)

// ModifyRequest holds the input for adding items to or removing items from a
// user's cart.
type ModifyRequest struct {
	Username string
	ItemID   int64
	Quantity int
}

// Service applies ledger mutations to persisted carts.
type Service struct {
	users user.Repository
	items item.Repository
	carts Repository
}

// NewService creates a cart Service.
func NewService(users user.Repository, items item.Repository, carts Repository) *Service {
	return &Service{
		users: users,
		items: items,
		carts: carts,
	}
}

// AddToCart adds req.Quantity units of the item to the user's cart.
func (s *Service) AddToCart(ctx context.Context, req ModifyRequest) (*Cart, error) {
	return s.modify(ctx, OpAdd, req)
}

// RemoveFromCart removes up to req.Quantity units of the item from the user's cart.
func (s *Service) RemoveFromCart(ctx context.Context, req ModifyRequest) (*Cart, error) {
	return s.modify(ctx, OpRemove, req)
}

func (s *Service) modify(ctx context.Context, op Op, req ModifyRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	u, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	it, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, errors.Wrap(err, "get item")
	}

	c, err := s.carts.Update(ctx, u.ID, func(c *Cart) error {
		if op == OpAdd {
			return c.AddItem(*it, req.Quantity)
		}
		_, err := c.RemoveItem(*it, req.Quantity)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "update cart %s", op)
	}
	return c, nil
}
