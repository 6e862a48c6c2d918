package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/sareeta-shop/internal/auth"
)

// RequireToken rejects requests without a valid bearer token with 403.
func (h *Handler) RequireToken(c *gin.Context) {
	ctx := c.Request.Context()

	username, err := h.tokens.VerifyHeader(c.GetHeader(auth.HeaderName))
	if err != nil {
		zctx.From(ctx).Named("security").Warn("Rejected token",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		writeError(c, err)
		return
	}

	lg := zctx.From(ctx).With(zap.String("auth_user", username))
	c.Request = c.Request.WithContext(zctx.Base(ctx, lg))
	c.Next()
}

// guardUnmatched applies RequireToken to unknown paths under /api, so they
// answer 403 without a token just like the known ones.
func (h *Handler) guardUnmatched(c *gin.Context) {
	if p := c.Request.URL.Path; p == "/api" || strings.HasPrefix(p, "/api/") {
		h.RequireToken(c)
		return
	}
	c.Next()
}

// Login checks credentials and returns a bearer token in the Authorization
// response header.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	lg := zctx.From(ctx).Named("security")

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeStatus(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		lg.Warn("Login failed", zap.String("username", req.Username), zap.Error(err))
		writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(u.Username)
	if err != nil {
		writeError(c, err)
		return
	}

	lg.Info("Login succeeded", zap.String("username", u.Username))
	c.Header(auth.HeaderName, auth.HeaderValue(token))
	c.JSON(http.StatusOK, toUser(u.Ref()))
}
