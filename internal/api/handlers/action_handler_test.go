package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/store"
)

func TestActionHandlerListAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := OpenTestDB(t)

	a := models.Action{ThreatID: "t-1", ActionTaken: "DISABLE_SMBv1"}
	require.NoError(t, db.Create(&a).Error)

	h := NewActionHandler(store.NewActionStore(db))
	r := gin.New()
	r.GET("/actions", h.List)
	r.GET("/actions/:id", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Actions []models.Action `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Actions, 1)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions/"+a.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
