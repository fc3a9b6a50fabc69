// Package policy resolves the compliance policies applicable to a threat class.
package policy

import (
	"context"

	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/models"
)

// Store maps a threat-class label to the set of applicable policies.
// Implementations never error on an unknown label; they return the default
// policies (or nothing) instead.
type Store interface {
	PoliciesFor(ctx context.Context, threatClass string) ([]models.Policy, error)
}

// DBStore resolves policies through the threat_class_bindings table.
// Matching is exact on the enumerated class label.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore returns a Store backed by the relational policy tables.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// PoliciesFor returns the policies bound to threatClass. When no binding
// matches, any default-flagged policies are returned; with none seeded the
// result is empty and the caller decides that no action is required.
func (s *DBStore) PoliciesFor(ctx context.Context, threatClass string) ([]models.Policy, error) {
	var policies []models.Policy
	err := s.db.WithContext(ctx).
		Joins("JOIN threat_class_bindings ON threat_class_bindings.policy_id = policies.policy_id").
		Where("threat_class_bindings.threat_class = ?", threatClass).
		Order("policies.policy_id ASC").
		Find(&policies).Error
	if err != nil {
		return nil, err
	}

	if len(policies) > 0 {
		return policies, nil
	}

	var defaults []models.Policy
	if err := s.db.WithContext(ctx).
		Where("\"default\" = ?", true).
		Order("policy_id ASC").
		Find(&defaults).Error; err != nil {
		return nil, err
	}

	return defaults, nil
}

// MemoryStore is an in-memory Store for tests and simulations.
type MemoryStore struct {
	ByClass  map[string][]models.Policy
	Defaults []models.Policy
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ByClass: make(map[string][]models.Policy)}
}

// Bind associates a policy with a threat class.
func (s *MemoryStore) Bind(threatClass string, p models.Policy) {
	s.ByClass[threatClass] = append(s.ByClass[threatClass], p)
}

// PoliciesFor returns the bound policies, or the defaults when none match.
func (s *MemoryStore) PoliciesFor(_ context.Context, threatClass string) ([]models.Policy, error) {
	if ps, ok := s.ByClass[threatClass]; ok && len(ps) > 0 {
		return ps, nil
	}
	return s.Defaults, nil
}
