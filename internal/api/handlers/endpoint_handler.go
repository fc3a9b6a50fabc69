package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/store"
)

type EndpointHandler struct {
	endpoints *store.EndpointStore
}

func NewEndpointHandler(endpoints *store.EndpointStore) *EndpointHandler {
	return &EndpointHandler{endpoints: endpoints}
}

// List returns every endpoint, optionally filtered by ?status=ONLINE|OFFLINE.
func (h *EndpointHandler) List(c *gin.Context) {
	var (
		endpoints []models.Endpoint
		err       error
	)
	if status := c.Query("status"); status != "" {
		endpoints, err = h.endpoints.ListByStatus(c.Request.Context(), status)
	} else {
		endpoints, err = h.endpoints.List(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list endpoints"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoints": endpoints})
}
