package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Threat is a unit of threat intelligence submitted for analysis. Records are
// immutable once stored; ThreatClass is filled in by the decision pipeline.
type Threat struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description" gorm:"type:text"`
	Source      string    `json:"source"`
	ThreatClass string    `json:"threat_class" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Threat) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}
