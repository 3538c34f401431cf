package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"telereader/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func TestSQLiteStore_UpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	msg := testMessage("@news", 1, "hello world")
	require.NoError(t, store.UpsertMessage(ctx, msg))
	require.NoError(t, store.UpsertMessage(ctx, msg))

	latest, err := store.GetLatestMessageID(ctx, "@news")
	require.NoError(t, err)
	assert.Equal(t, int64(1), latest)

	text, cleaned, err := store.GetMessageText(ctx, "@news", 1)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "hello world", cleaned)
}

func TestSQLiteStore_UpsertReplacesOnEdit(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.UpsertMessage(ctx, testMessage("@news", 7, "before")))

	edited := testMessage("@news", 7, "after")
	editDate := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	edited.EditDate = &editDate
	require.NoError(t, store.UpsertMessage(ctx, edited))

	text, _, err := store.GetMessageText(ctx, "@news", 7)
	require.NoError(t, err)
	assert.Equal(t, "after", text)
}

func TestSQLiteStore_DeleteMessage(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	deleted, err := store.DeleteMessage(ctx, "@news", 3)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, store.UpsertMessage(ctx, testMessage("@news", 3, "gone soon")))
	deleted, err = store.DeleteMessage(ctx, "@news", 3)
	require.NoError(t, err)
	assert.True(t, deleted)

	latest, err := store.GetLatestMessageID(ctx, "@news")
	require.NoError(t, err)
	assert.Equal(t, int64(0), latest)
}

func TestSQLiteStore_CheckpointMaxMerge(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	cp, err := store.GetCheckpoint(ctx, "@news")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cp)

	require.NoError(t, store.UpdateCheckpoint(ctx, "@news", 40))
	require.NoError(t, store.UpdateCheckpoint(ctx, "@news", 20))
	require.NoError(t, store.UpdateCheckpoint(ctx, "@news", 35))

	cp, err = store.GetCheckpoint(ctx, "@news")
	require.NoError(t, err)
	assert.Equal(t, int64(40), cp)
}

func TestSQLiteStore_RawPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	msg := testMessage("@news", 9, "with raw")
	msg.Raw = map[string]interface{}{"views": float64(120), "grouped_id": "g1"}
	msg.Author = models.Author{ID: 42, Username: "reporter"}
	require.NoError(t, store.UpsertMessage(ctx, msg))

	latest, err := store.GetLatestMessageID(ctx, "@news")
	require.NoError(t, err)
	assert.Equal(t, int64(9), latest)
}

func TestNewSQLiteStore_InvalidPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)

	_, err = NewSQLiteStore("\x00bad")
	assert.Error(t, err)
}
