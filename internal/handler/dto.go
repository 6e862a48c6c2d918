package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/order"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// money renders a decimal amount as a JSON number with two fraction digits.
// Decoding accepts numbers and strings through the embedded Decimal.
type money struct {
	decimal.Decimal
}

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       money  `json:"price"`
	Description string `json:"description"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type cartResponse struct {
	ID    int64          `json:"id"`
	Items []itemResponse `json:"items"`
	User  userResponse   `json:"user"`
	Total money          `json:"total"`
}

type orderResponse struct {
	ID        int64          `json:"id"`
	Items     []itemResponse `json:"items"`
	User      userResponse   `json:"user"`
	Total     money          `json:"total"`
	CreatedAt time.Time      `json:"createdAt"`
}

type cartRequest struct {
	Username string `json:"username"`
	ItemID   int64  `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type createUserRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func toItem(it item.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Price:       money{it.Price},
		Description: it.Description,
	}
}

func toItems(items []item.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = toItem(it)
	}
	return out
}

func toUser(ref user.Ref) userResponse {
	return userResponse{ID: ref.ID, Username: ref.Username}
}

func toCart(c *cart.Cart) cartResponse {
	return cartResponse{
		ID:    c.ID,
		Items: toItems(c.Items),
		User:  toUser(c.User),
		Total: money{c.Total},
	}
}

func toOrder(o *order.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		Items:     toItems(o.Items),
		User:      toUser(o.User),
		Total:     money{o.Total},
		CreatedAt: o.CreatedAt,
	}
}
