// Package notify surfaces engine events to operators: persisted notification
// rows for the API, plus optional external pushes through shoutrrr URLs.
package notify

import (
	"github.com/containrrr/shoutrrr"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/logger"
	"github.com/kestrelsec/aegis/internal/models"
)

type Service struct {
	db *gorm.DB
	// urls are shoutrrr service URLs (discord://..., slack://...); empty
	// means DB-only notifications.
	urls []string
}

// New returns a notification service. urls may be empty.
func New(db *gorm.DB, urls []string) *Service {
	return &Service{db: db, urls: urls}
}

// Notify stores a notification and pushes it to any configured external
// services. External delivery is best-effort and never blocks the caller.
func (s *Service) Notify(nType models.NotificationType, title, message string) (*models.Notification, error) {
	n := &models.Notification{Type: nType, Title: title, Message: message}
	if err := s.db.Create(n).Error; err != nil {
		return nil, err
	}

	for _, url := range s.urls {
		go func(u string) {
			if err := shoutrrr.Send(u, title+": "+message); err != nil {
				logger.WithComponent("notify").WithError(err).Warn("external notification failed")
			}
		}(url)
	}

	return n, nil
}

// List returns notifications, newest first.
func (s *Service) List(unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.db.Order("created_at DESC")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// MarkAllRead flags every unread notification as read.
func (s *Service) MarkAllRead() error {
	return s.db.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}
