package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
)

// ListItems returns the whole catalog.
func (h *Handler) ListItems(c *gin.Context) {
	items, err := h.items.List(c.Request.Context())
	if err != nil {
		writeError(c, errors.Wrap(err, "list items"))
		return
	}
	c.JSON(http.StatusOK, toItems(items))
}

// GetItem returns one item by id.
func (h *Handler) GetItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	it, err := h.items.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, errors.Wrapf(err, "get item %d", id))
		return
	}
	c.JSON(http.StatusOK, toItem(*it))
}

// GetItemsByName returns all items with the given name. Unknown names yield
// an empty list.
func (h *Handler) GetItemsByName(c *gin.Context) {
	items, err := h.items.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, errors.Wrap(err, "get items by name"))
		return
	}
	c.JSON(http.StatusOK, toItems(items))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeStatus(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
