package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/api/middleware"
	"github.com/kestrelsec/aegis/internal/models"
	"github.com/kestrelsec/aegis/internal/pipeline"
)

type ThreatHandler struct {
	db   *gorm.DB
	pipe *pipeline.Pipeline
}

func NewThreatHandler(db *gorm.DB, pipe *pipeline.Pipeline) *ThreatHandler {
	return &ThreatHandler{db: db, pipe: pipe}
}

type ThreatRequest struct {
	Title       string `json:"title"`
	Description string `json:"description" binding:"required"`
	Source      string `json:"source"`
}

// Analyze ingests one threat record or a JSON array of them, runs the batch
// through the decision pipeline, and returns one outcome per record in input
// order. Per-record failures come back with status ERROR; the endpoint itself
// only fails on malformed input.
func (h *ThreatHandler) Analyze(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var reqs []ThreatRequest
	if isJSONArray(body) {
		err = json.Unmarshal(body, &reqs)
	} else {
		var single ThreatRequest
		if err = json.Unmarshal(body, &single); err == nil {
			reqs = []ThreatRequest{single}
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(reqs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no threat records submitted"})
		return
	}
	for _, r := range reqs {
		if r.Description == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "description is required"})
			return
		}
	}

	threats := make([]models.Threat, 0, len(reqs))
	for _, r := range reqs {
		t := models.Threat{Title: r.Title, Description: r.Description, Source: r.Source}
		if err := h.db.Create(&t).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store threat"})
			return
		}
		threats = append(threats, t)
	}

	outcomes := h.pipe.Process(c.Request.Context(), threats)

	log := middleware.GetRequestLogger(c)
	for _, out := range outcomes {
		if out.ThreatClass == "" {
			continue
		}
		if err := h.db.Model(&models.Threat{}).
			Where("id = ?", out.ThreatID).
			Update("threat_class", out.ThreatClass).Error; err != nil {
			log.WithError(err).Warn("failed to record threat class")
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// List returns stored threats, newest first.
func (h *ThreatHandler) List(c *gin.Context) {
	var threats []models.Threat
	if err := h.db.Order("created_at DESC").Limit(200).Find(&threats).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list threats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threats": threats})
}
