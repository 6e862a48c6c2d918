package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// SubmitOrder turns the user's cart into an order. An empty cart yields 204.
func (h *Handler) SubmitOrder(c *gin.Context) {
	ctx := c.Request.Context()

	o, err := h.orders.Submit(ctx, c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	zctx.From(ctx).Info("Order submitted",
		zap.Int64("order_id", o.ID),
		zap.String("username", o.User.Username),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)),
	)
	c.JSON(http.StatusOK, toOrder(o))
}

// OrderHistory returns the user's orders, oldest first.
func (h *Handler) OrderHistory(c *gin.Context) {
	orders, err := h.orders.History(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}
	c.JSON(http.StatusOK, out)
}
