// Package store provides the durable action and endpoint tables shared by the
// decision pipeline and the enforcement engine.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/models"
)

// ErrStateConflict is returned when an optimistic status transition finds the
// record no longer in the expected prior state.
var ErrStateConflict = errors.New("action not in expected state")

// ActionStore owns the actions table. Status mutations go through conditional
// updates so concurrent enforcement instances can never double-claim a row.
type ActionStore struct {
	db *gorm.DB
}

// NewActionStore returns an ActionStore using the provided DB.
func NewActionStore(db *gorm.DB) *ActionStore {
	return &ActionStore{db: db}
}

// Create inserts a new action record.
func (s *ActionStore) Create(ctx context.Context, a *models.Action) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// Get fetches one action by id.
func (s *ActionStore) Get(ctx context.Context, id string) (models.Action, error) {
	var a models.Action
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	return a, err
}

// List returns the most recent actions, newest first.
func (s *ActionStore) List(ctx context.Context, limit int) ([]models.Action, error) {
	var actions []models.Action
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&actions).Error
	return actions, err
}

// ClaimPending atomically claims up to limit PENDING actions, oldest first,
// marking them EXECUTING. Each row is claimed with a conditional update
// guarded on its prior status, so a row contended by two pollers is handed to
// exactly one of them. Every claim is minted a fresh claim token; finishing
// or releasing the claim requires that token, so an owner whose claim was
// re-queued by the stale sweep (and possibly re-claimed elsewhere) can no
// longer mutate the row. Only the rows this caller won are returned.
func (s *ActionStore) ClaimPending(ctx context.Context, limit int) ([]models.Action, error) {
	var candidates []models.Action
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ActionPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claimed := make([]models.Action, 0, len(candidates))
	for _, c := range candidates {
		token := uuid.New().String()
		res := s.db.WithContext(ctx).Model(&models.Action{}).
			Where("id = ? AND status = ?", c.ID, models.ActionPending).
			Updates(map[string]interface{}{
				"status":      models.ActionExecuting,
				"claimed_at":  now,
				"claim_token": token,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race to another instance; skip without error.
			continue
		}
		c.Status = models.ActionExecuting
		c.ClaimedAt = &now
		c.ClaimToken = token
		claimed = append(claimed, c)
	}

	return claimed, nil
}

// MarkExecuted transitions a claimed action EXECUTING -> EXECUTED. token must
// be the claim token handed out by ClaimPending.
func (s *ActionStore) MarkExecuted(ctx context.Context, id, token, output string) error {
	return s.finish(ctx, id, token, models.ActionExecuted, output)
}

// MarkFailed transitions a claimed action EXECUTING -> FAILED. FAILED is
// terminal; the record is never re-driven automatically.
func (s *ActionStore) MarkFailed(ctx context.Context, id, token, detail string) error {
	return s.finish(ctx, id, token, models.ActionFailed, detail)
}

func (s *ActionStore) finish(ctx context.Context, id, token, status, output string) error {
	res := s.db.WithContext(ctx).Model(&models.Action{}).
		Where("id = ? AND status = ? AND claim_token = ?", id, models.ActionExecuting, token).
		Updates(map[string]interface{}{
			"status":      status,
			"output":      output,
			"executed_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

// ReleaseClaim returns a claimed action to PENDING. Used when the claimed
// action turns out to have no job mapping and needs operator attention rather
// than a terminal status. token must match the current claim.
func (s *ActionStore) ReleaseClaim(ctx context.Context, id, token string) error {
	res := s.db.WithContext(ctx).Model(&models.Action{}).
		Where("id = ? AND status = ? AND claim_token = ?", id, models.ActionExecuting, token).
		Updates(map[string]interface{}{
			"status":      models.ActionPending,
			"claimed_at":  nil,
			"claim_token": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

// RefreshClaim re-stamps claimed_at for a held claim. A processor working
// through a batch sequentially refreshes each claim just before executing it,
// so claims held by a live owner never age past the stale threshold while
// waiting their turn.
func (s *ActionStore) RefreshClaim(ctx context.Context, id, token string) error {
	res := s.db.WithContext(ctx).Model(&models.Action{}).
		Where("id = ? AND status = ? AND claim_token = ?", id, models.ActionExecuting, token).
		Update("claimed_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStateConflict
	}
	return nil
}

// MarkAlerted records that the one-time operator alert for this action has
// been sent, so re-claims of the same unmapped action stay silent.
func (s *ActionStore) MarkAlerted(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.Action{}).
		Where("id = ?", id).
		Update("operator_alerted", true).Error
}

// ReclaimStale re-queues EXECUTING actions whose claim is older than maxAge,
// invalidating their claim tokens. This is the restart recovery path: a
// processor that died mid-execution leaves rows in EXECUTING, and the sweep
// returns them to the pool. An owner that is merely slow loses its token and
// gets ErrStateConflict on finish instead of overwriting the next claim.
func (s *ActionStore) ReclaimStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res := s.db.WithContext(ctx).Model(&models.Action{}).
		Where("status = ? AND claimed_at < ?", models.ActionExecuting, cutoff).
		Updates(map[string]interface{}{
			"status":      models.ActionPending,
			"claimed_at":  nil,
			"claim_token": "",
		})
	return res.RowsAffected, res.Error
}
