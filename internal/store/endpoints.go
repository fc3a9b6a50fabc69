package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/models"
)

// EndpointStore owns the endpoints table. Only the monitor mutates status,
// and only in the ONLINE -> OFFLINE direction.
type EndpointStore struct {
	db *gorm.DB
}

// NewEndpointStore returns an EndpointStore using the provided DB.
func NewEndpointStore(db *gorm.DB) *EndpointStore {
	return &EndpointStore{db: db}
}

// ListByStatus returns all endpoints currently in the given status.
func (s *EndpointStore) ListByStatus(ctx context.Context, status string) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("hostname ASC").
		Find(&endpoints).Error
	return endpoints, err
}

// List returns every endpoint.
func (s *EndpointStore) List(ctx context.Context) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	err := s.db.WithContext(ctx).Order("hostname ASC").Find(&endpoints).Error
	return endpoints, err
}

// MarkOffline demotes an endpoint ONLINE -> OFFLINE. The monitor never writes
// ONLINE; recovery is owned by external provisioning.
func (s *EndpointStore) MarkOffline(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Endpoint{}).
		Where("id = ? AND status = ?", id, models.EndpointOnline).
		Updates(map[string]interface{}{
			"status":     models.EndpointOffline,
			"last_check": time.Now(),
		}).Error
}

// TouchCheck records a successful liveness probe without changing status.
func (s *EndpointStore) TouchCheck(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Endpoint{}).
		Where("id = ?", id).
		Update("last_check", time.Now()).Error
}

// CountByStatus returns the number of endpoints in the given status.
func (s *EndpointStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Endpoint{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// ResolveTargets fetches endpoints by id. An empty id list resolves to every
// ONLINE endpoint, which is the execution-time default for actions dispatched
// without explicit targets.
func (s *EndpointStore) ResolveTargets(ctx context.Context, ids []string) ([]models.Endpoint, error) {
	if len(ids) == 0 {
		return s.ListByStatus(ctx, models.EndpointOnline)
	}

	var endpoints []models.Endpoint
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&endpoints).Error
	return endpoints, err
}
