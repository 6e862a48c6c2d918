package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// CreateUser registers a user with an empty cart.
func (h *Handler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.Create(ctx, user.CreateRequest{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	zctx.From(ctx).Named("security").Info("User created",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)
	c.JSON(http.StatusOK, toUser(u.Ref()))
}

// GetUserByID returns the public view of a user.
func (h *Handler) GetUserByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(u.Ref()))
}

// GetUserByUsername returns the public view of a user.
func (h *Handler) GetUserByUsername(c *gin.Context) {
	u, err := h.users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(u.Ref()))
}
