package policy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kestrelsec/aegis/internal/classifier"
	"github.com/kestrelsec/aegis/internal/models"
)

func setupPolicyTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Policy{}, &models.ThreatClassBinding{}))
	return db
}

func TestDBStoreExactMatch(t *testing.T) {
	db := setupPolicyTestDB(t)
	require.NoError(t, Seed(db))
	store := NewDBStore(db)

	got, err := store.PoliciesFor(context.Background(), classifier.ClassSMB)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "POL-SMB-001", got[0].PolicyID)
	require.Equal(t, models.SeverityCritical, got[0].Severity)
}

func TestDBStoreNoSubstringMatching(t *testing.T) {
	db := setupPolicyTestDB(t)
	require.NoError(t, Seed(db))
	store := NewDBStore(db)

	// A class label embedding "RANSOM" must not match the ransomware rule.
	got, err := store.PoliciesFor(context.Background(), "NON_RANSOMWARE_THREAT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "POL-GENERIC-001", got[0].PolicyID)
}

func TestDBStoreDefaultFallback(t *testing.T) {
	db := setupPolicyTestDB(t)
	require.NoError(t, Seed(db))
	store := NewDBStore(db)

	got, err := store.PoliciesFor(context.Background(), "UNKNOWN_CLASS")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Default)
}

func TestDBStoreEmptyWithoutDefaults(t *testing.T) {
	db := setupPolicyTestDB(t)
	require.NoError(t, db.Create(&models.Policy{
		PolicyID: "POL-SMB-001", Name: "Disable SMBv1 Policy",
		Severity: models.SeverityCritical, Controls: "DISABLE_SMBv1",
	}).Error)
	require.NoError(t, db.Create(&models.ThreatClassBinding{
		ThreatClass: classifier.ClassSMB, PolicyID: "POL-SMB-001",
	}).Error)
	store := NewDBStore(db)

	got, err := store.PoliciesFor(context.Background(), "UNKNOWN_CLASS")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupPolicyTestDB(t)
	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var count int64
	require.NoError(t, db.Model(&models.Policy{}).Count(&count).Error)
	require.Equal(t, int64(5), count)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	store.Bind(classifier.ClassSMB, models.Policy{PolicyID: "POL-SMB-001", Severity: models.SeverityCritical})

	got, err := store.PoliciesFor(context.Background(), classifier.ClassSMB)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = store.PoliciesFor(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	require.Empty(t, got)

	store.Defaults = []models.Policy{{PolicyID: "POL-GENERIC-001", Severity: models.SeverityMedium, Default: true}}
	got, err = store.PoliciesFor(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	require.Len(t, got, 1)
}
