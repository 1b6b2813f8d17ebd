package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestQuickCheck(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestQuickCheck_CancelledContext(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, db.QuickCheck(ctx))
}

func TestWALCheckpoint(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	require.NoError(t, db.Migrate())

	for _, mode := range []string{"PASSIVE", "FULL", "TRUNCATE"} {
		t.Run(mode, func(t *testing.T) {
			assert.NoError(t, db.WALCheckpoint(mode))
		})
	}
}

func TestWALCheckpoint_DefaultsToTruncate(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	assert.NoError(t, db.WALCheckpoint(""))
}
