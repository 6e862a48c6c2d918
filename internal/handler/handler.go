// Package handler exposes the shop over HTTP using gin.
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/order"
	"github.com/xenking/sareeta-shop/internal/domain/user"
	"github.com/xenking/sareeta-shop/pkg/httpmiddleware"
)

// UserService registers and authenticates users.
type UserService interface {
	Create(ctx context.Context, req user.CreateRequest) (*user.User, error)
	Authenticate(ctx context.Context, username, password string) (*user.User, error)
	GetByID(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// CartService mutates carts.
type CartService interface {
	AddToCart(ctx context.Context, req cart.ModifyRequest) (*cart.Cart, error)
	RemoveFromCart(ctx context.Context, req cart.ModifyRequest) (*cart.Cart, error)
}

// OrderService submits orders and reads order history.
type OrderService interface {
	Submit(ctx context.Context, username string) (*order.Order, error)
	History(ctx context.Context, username string) ([]order.Order, error)
}

// TokenService issues tokens at login and verifies them on every protected
// request.
type TokenService interface {
	Issue(username string) (string, error)
	VerifyHeader(header string) (string, error)
}

// Compile-time checks for the concrete services.
var (
	_ UserService  = (*user.Service)(nil)
	_ CartService  = (*cart.Service)(nil)
	_ OrderService = (*order.Service)(nil)
)

// Handler serves the shop API, delegating business logic to the domain
// services and the item repository.
type Handler struct {
	users  UserService
	items  item.Repository
	carts  CartService
	orders OrderService
	tokens TokenService
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	users UserService,
	items item.Repository,
	carts CartService,
	orders OrderService,
	tokens TokenService,
) *Handler {
	return &Handler{
		users:  users,
		items:  items,
		carts:  carts,
		orders: orders,
		tokens: tokens,
	}
}

// Register mounts public and token-protected routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/login", h.Login)
	r.POST("/api/user/create", h.CreateUser)

	api := r.Group("/api", h.RequireToken)
	{
		api.GET("/item", h.ListItems)
		api.GET("/item/:id", h.GetItem)
		api.GET("/item/name/:name", h.GetItemsByName)

		api.GET("/user/id/:id", h.GetUserByID)
		api.GET("/user/:username", h.GetUserByUsername)

		api.POST("/cart/addToCart", h.AddToCart)
		api.POST("/cart/removeFromCart", h.RemoveFromCart)

		api.POST("/order/submit/:username", h.SubmitOrder)
		api.GET("/order/history/:username", h.OrderHistory)
	}
}

// NewRouter returns a gin engine serving h. Matched route templates are
// reported to the surrounding httpmiddleware chain and unknown routes get a
// JSON 404, after the token check for paths under /api.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(reportRoute)
	r.NoRoute(h.guardUnmatched, func(c *gin.Context) {
		writeStatus(c, http.StatusNotFound, "not found")
	})
	h.Register(r)
	return r
}

func reportRoute(c *gin.Context) {
	httpmiddleware.SetRoute(c.Request.Context(), c.Request.Method, c.FullPath())
	c.Next()
}
