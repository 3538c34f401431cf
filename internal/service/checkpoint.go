package service

import (
	"context"

	"telereader/internal/storage"
)

// CheckpointCoordinator owns per-channel backfill progress. The one
// rule it exists to enforce: Commit is only called after the batch it
// covers has been durably persisted through the store. On a crash
// between persist and commit the next run re-reads from the committed
// checkpoint and reprocesses the batch, which the upsert key makes
// harmless — at-least-once, never-lose.
type CheckpointCoordinator struct {
	store storage.Store
}

func NewCheckpointCoordinator(store storage.Store) *CheckpointCoordinator {
	return &CheckpointCoordinator{store: store}
}

// Resume returns the channel's committed checkpoint, 0 if none.
func (c *CheckpointCoordinator) Resume(ctx context.Context, channelID string) (int64, error) {
	return c.store.GetCheckpoint(ctx, channelID)
}

// Commit advances the checkpoint to highestID. The store max-merges,
// so a stale commit can never move the checkpoint backwards.
func (c *CheckpointCoordinator) Commit(ctx context.Context, channelID string, highestID int64) error {
	return c.store.UpdateCheckpoint(ctx, channelID, highestID)
}
