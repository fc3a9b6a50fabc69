package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/store"
)

type ActionHandler struct {
	actions *store.ActionStore
}

func NewActionHandler(actions *store.ActionStore) *ActionHandler {
	return &ActionHandler{actions: actions}
}

// List returns recent action records, newest first.
func (h *ActionHandler) List(c *gin.Context) {
	actions, err := h.actions.List(c.Request.Context(), 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list actions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// Get returns one action by id.
func (h *ActionHandler) Get(c *gin.Context) {
	action, err := h.actions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "action not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load action"})
		return
	}
	c.JSON(http.StatusOK, action)
}
