package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/models"
)

type PolicyHandler struct {
	db *gorm.DB
}

func NewPolicyHandler(db *gorm.DB) *PolicyHandler {
	return &PolicyHandler{db: db}
}

// List returns all compliance policies with their threat-class bindings.
func (h *PolicyHandler) List(c *gin.Context) {
	var policies []models.Policy
	if err := h.db.Order("policy_id ASC").Find(&policies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list policies"})
		return
	}

	var bindings []models.ThreatClassBinding
	if err := h.db.Find(&bindings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list bindings"})
		return
	}

	byPolicy := make(map[string][]string)
	for _, b := range bindings {
		byPolicy[b.PolicyID] = append(byPolicy[b.PolicyID], b.ThreatClass)
	}

	out := make([]gin.H, 0, len(policies))
	for _, p := range policies {
		out = append(out, gin.H{
			"policy_id":      p.PolicyID,
			"name":           p.Name,
			"severity":       p.Severity,
			"controls":       p.ControlList(),
			"default":        p.Default,
			"threat_classes": byPolicy[p.PolicyID],
		})
	}

	c.JSON(http.StatusOK, gin.H{"policies": out})
}
