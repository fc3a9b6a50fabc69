package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsec/aegis/internal/models"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	// Schema usable after migration.
	require.NoError(t, db.Create(&models.Endpoint{
		Hostname:  "web-server-01",
		IPAddress: "10.0.0.5",
		OSType:    "linux",
		Status:    models.EndpointOnline,
	}).Error)

	var count int64
	require.NoError(t, db.Model(&models.Endpoint{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "nested", "test.db"))
	require.Error(t, err)
}
