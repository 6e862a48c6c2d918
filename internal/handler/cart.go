package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/domain/cart"
)

// AddToCart adds quantity units of an item to the user's cart.
func (h *Handler) AddToCart(c *gin.Context) {
	h.modifyCart(c, cart.OpAdd, h.carts.AddToCart)
}

// RemoveFromCart removes up to quantity units of an item from the user's cart.
func (h *Handler) RemoveFromCart(c *gin.Context) {
	h.modifyCart(c, cart.OpRemove, h.carts.RemoveFromCart)
}

func (h *Handler) modifyCart(
	c *gin.Context,
	op cart.Op,
	apply func(ctx context.Context, req cart.ModifyRequest) (*cart.Cart, error),
) {
	ctx := c.Request.Context()

	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := apply(ctx, cart.ModifyRequest{
		Username: req.Username,
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	zctx.From(ctx).Info("Cart updated",
		zap.String("op", string(op)),
		zap.String("username", updated.User.Username),
		zap.Int64("item_id", req.ItemID),
		zap.Int("items", updated.Len()),
	)
	c.JSON(http.StatusOK, toCart(updated))
}
