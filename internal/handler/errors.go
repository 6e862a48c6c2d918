package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/auth"
	"github.com/xenking/sareeta-shop/internal/domain/cart"
	"github.com/xenking/sareeta-shop/internal/domain/item"
	"github.com/xenking/sareeta-shop/internal/domain/order"
	"github.com/xenking/sareeta-shop/internal/domain/user"
)

// badRequestErrors are domain errors reported to the client as 400.
var badRequestErrors = []error{
	user.ErrUsernameRequired,
	user.ErrUsernameTaken,
	user.ErrPasswordMismatch,
	cart.ErrInvalidQuantity,
}

// writeError maps err to a status code and writes the JSON error body.
// Unexpected errors are logged and reported as 500 without details.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, order.ErrEmptyCart) {
		c.Status(http.StatusNoContent)
		return
	}

	for _, target := range []error{user.ErrNotFound, item.ErrNotFound} {
		if errors.Is(err, target) {
			zctx.From(c.Request.Context()).Warn("Lookup failed",
				zap.String("route", c.FullPath()),
				zap.Error(err),
			)
			writeStatus(c, http.StatusNotFound, target.Error())
			return
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			writeStatus(c, http.StatusBadRequest, target.Error())
			return
		}
	}

	var (
		tooShort *user.PasswordTooShortError
		tooLong  *user.PasswordTooLongError
	)
	switch {
	case errors.As(err, &tooShort):
		writeStatus(c, http.StatusBadRequest, tooShort.Error())
	case errors.As(err, &tooLong):
		writeStatus(c, http.StatusBadRequest, tooLong.Error())
	case errors.Is(err, user.ErrInvalidCredentials):
		writeStatus(c, http.StatusUnauthorized, user.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		writeStatus(c, http.StatusForbidden, "forbidden")
	default:
		zctx.From(c.Request.Context()).Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		writeStatus(c, http.StatusInternalServerError, "internal error")
	}
}

func writeStatus(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, errorResponse{Code: code, Message: message})
}
