package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/models"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Action{}, &models.Endpoint{}))
	return db
}

func createPending(t *testing.T, s *ActionStore, action string) models.Action {
	t.Helper()
	a := models.Action{ThreatID: "t-1", ActionTaken: action}
	require.NoError(t, s.Create(context.Background(), &a))
	return a
}

func claimOf(t *testing.T, claimed []models.Action, id string) models.Action {
	t.Helper()
	for _, c := range claimed {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("action %s not in claimed set", id)
	return models.Action{}
}

func TestClaimPendingOldestFirst(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	old := models.Action{ThreatID: "t-1", ActionTaken: "DISABLE_SMBv1", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.Create(ctx, &old))
	recent := createPending(t, s, "ISOLATE_ENDPOINT")

	claimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, old.ID, claimed[0].ID)
	require.Equal(t, models.ActionExecuting, claimed[0].Status)
	require.NotNil(t, claimed[0].ClaimedAt)

	// The other row is untouched.
	got, err := s.Get(ctx, recent.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionPending, got.Status)
}

func TestClaimPendingMutualExclusion(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	createPending(t, s, "DISABLE_SMBv1")

	first, err := s.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, second, "a claimed action must not be claimable again")
}

func TestClaimPendingConcurrent(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "claims.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Action{}))
	s := NewActionStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createPending(t, s, "DISABLE_SMBv1")
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	total := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimPending(ctx, 10)
			require.NoError(t, err)
			mu.Lock()
			total += len(claimed)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Every pending row claimed exactly once across all pollers.
	require.Equal(t, 5, total)
}

func TestMarkExecutedAndFailed(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	a := createPending(t, s, "DISABLE_SMBv1")
	b := createPending(t, s, "ISOLATE_ENDPOINT")

	claimed, err := s.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, s.MarkExecuted(ctx, a.ID, claimOf(t, claimed, a.ID).ClaimToken, "playbook ok"))
	require.NoError(t, s.MarkFailed(ctx, b.ID, claimOf(t, claimed, b.ID).ClaimToken, "unreachable host"))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionExecuted, got.Status)
	require.NotNil(t, got.ExecutedAt)
	require.Equal(t, "playbook ok", got.Output)

	got, err = s.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionFailed, got.Status)
	require.NotNil(t, got.ExecutedAt)
}

func TestFinishRequiresClaim(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	a := createPending(t, s, "DISABLE_SMBv1")

	// PENDING -> EXECUTED must be rejected; EXECUTING is never skipped.
	require.ErrorIs(t, s.MarkExecuted(ctx, a.ID, "", ""), ErrStateConflict)

	claimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	token := claimed[0].ClaimToken
	require.NotEmpty(t, token)

	// Finishing requires the claim token, not just the EXECUTING status.
	require.ErrorIs(t, s.MarkExecuted(ctx, a.ID, "not-the-token", "ok"), ErrStateConflict)
	require.NoError(t, s.MarkExecuted(ctx, a.ID, token, "ok"))

	// Terminal states are never re-entered.
	require.ErrorIs(t, s.MarkFailed(ctx, a.ID, token, "late failure"), ErrStateConflict)
}

func TestReleaseClaim(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	a := createPending(t, s, "UNKNOWN_CONTROL")
	claimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	token := claimed[0].ClaimToken

	require.NoError(t, s.ReleaseClaim(ctx, a.ID, token))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionPending, got.Status)
	require.Nil(t, got.ClaimedAt)
	require.Empty(t, got.ClaimToken)

	require.ErrorIs(t, s.ReleaseClaim(ctx, a.ID, token), ErrStateConflict)
}

func TestReclaimStale(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	stale := createPending(t, s, "DISABLE_SMBv1")
	fresh := createPending(t, s, "ISOLATE_ENDPOINT")

	claimed, err := s.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Age one claim past the threshold.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Action{}).Where("id = ?", stale.ID).
		Update("claimed_at", past).Error)

	n, err := s.ReclaimStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := s.Get(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionPending, got.Status)

	got, err = s.Get(ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionExecuting, got.Status)
}

func TestReclaimStaleInvalidatesOldClaim(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	a := createPending(t, s, "DISABLE_SMBv1")

	claimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	firstToken := claimed[0].ClaimToken

	// Age the claim past the threshold and let the sweep re-queue it.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Action{}).Where("id = ?", a.ID).
		Update("claimed_at", past).Error)
	n, err := s.ReclaimStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// A second poller picks it up under a fresh token.
	reclaimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	secondToken := reclaimed[0].ClaimToken
	require.NotEqual(t, firstToken, secondToken)

	// The original owner can no longer finish or release the row.
	require.ErrorIs(t, s.MarkExecuted(ctx, a.ID, firstToken, "late result"), ErrStateConflict)
	require.ErrorIs(t, s.MarkFailed(ctx, a.ID, firstToken, "late failure"), ErrStateConflict)
	require.ErrorIs(t, s.ReleaseClaim(ctx, a.ID, firstToken), ErrStateConflict)

	require.NoError(t, s.MarkExecuted(ctx, a.ID, secondToken, "done"))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.ActionExecuted, got.Status)
	require.Equal(t, "done", got.Output)
}

func TestRefreshClaim(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	a := createPending(t, s, "DISABLE_SMBv1")

	claimed, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	token := claimed[0].ClaimToken

	// Age the claim, then refresh it: the row must no longer look stale.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Action{}).Where("id = ?", a.ID).
		Update("claimed_at", past).Error)
	require.NoError(t, s.RefreshClaim(ctx, a.ID, token))

	n, err := s.ReclaimStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Zero(t, n)

	// Once the claim has been handed back, the old token cannot refresh it.
	require.NoError(t, s.ReleaseClaim(ctx, a.ID, token))
	require.ErrorIs(t, s.RefreshClaim(ctx, a.ID, token), ErrStateConflict)
}

func TestListNewestFirst(t *testing.T) {
	db := setupStoreTestDB(t)
	s := NewActionStore(db)
	ctx := context.Background()

	old := models.Action{ThreatID: "t-1", ActionTaken: "A", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.Create(ctx, &old))
	newer := createPending(t, s, "B")

	got, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)
}
