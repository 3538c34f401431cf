// Package storage provides the document store boundary the ingestion
// engine writes through. The engine never issues queries beyond these
// operations, which keeps it portable across backends.
package storage

import (
	"context"
	"fmt"

	"telereader/internal/models"
)

// Store is the five-operation contract between the ingestion engine and
// the document store.
//
// UpsertMessage is keyed on (ChannelID, MessageID) and replaces any
// existing record atomically. UpdateCheckpoint is a max-merge: an
// update that would lower the stored value is a no-op. These two
// properties are the engine's only concurrency control.
type Store interface {
	UpsertMessage(ctx context.Context, msg *models.Message) error

	// DeleteMessage removes the record if present and reports whether
	// anything was deleted. Absence is not an error.
	DeleteMessage(ctx context.Context, channelID string, messageID int64) (bool, error)

	// GetLatestMessageID returns the highest stored message ID for the
	// channel, or 0 if none.
	GetLatestMessageID(ctx context.Context, channelID string) (int64, error)

	// GetCheckpoint returns the channel's last backfilled ID, or 0 if
	// no checkpoint exists yet.
	GetCheckpoint(ctx context.Context, channelID string) (int64, error)

	// UpdateCheckpoint sets last_backfilled_id = max(current, messageID),
	// creating the checkpoint lazily on first use.
	UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error

	Close(ctx context.Context) error
}

// New constructs the backend selected by configuration.
func New(ctx context.Context, cfg models.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
