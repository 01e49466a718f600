package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"campnest/internal/config"
	"campnest/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)

	cg := &models.Campground{OwnerID: 1, Name: "Backup Grounds"}
	require.NoError(t, db.CreateCampground(context.Background(), cg))
	require.NoError(t, db.Close())

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(dbPath, cfg, &logger)
	require.NoError(t, s.PerformBackup())

	entries, err := os.ReadDir(storagePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The snapshot is a usable database with the data intact.
	restored, err := NewDB(filepath.Join(storagePath, entries[0].Name()), &logger)
	require.NoError(t, err)
	defer restored.Close()

	got, err := restored.GetCampground(context.Background(), cg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Backup Grounds", got.Name)
}
