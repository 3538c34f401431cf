package types

import (
	"context"
	"time"
)

// Client is the contract the ingestion engine requires from the source
// gateway. The gateway owns the platform session; authentication and
// session persistence are handled on its side.
type Client interface {
	// ResolveChannel looks a channel up by its configured identifier.
	ResolveChannel(ctx context.Context, channelID string) (*ChannelInfo, error)

	// GetHeadMessageID returns the newest message ID currently visible
	// in the channel, or 0 for an empty channel.
	GetHeadMessageID(ctx context.Context, channelID string) (int64, error)

	// FetchMessages returns one page of history with IDs in
	// (afterID, maxID], ascending, at most limit entries. maxID <= 0
	// means no upper bound.
	FetchMessages(ctx context.Context, channelID string, afterID, maxID int64, limit int) ([]Message, error)

	// FetchMessagesByTime returns one page of history with dates in
	// [from, to], ascending, resuming after afterID, at most limit
	// entries.
	FetchMessagesByTime(ctx context.Context, channelID string, from, to time.Time, afterID int64, limit int) ([]Message, error)

	// Subscribe opens the realtime event stream for the given channels.
	// The events channel is closed when the stream ends; if the stream
	// ended because the connection failed (rather than ctx being
	// cancelled), the error channel yields the terminal cause.
	Subscribe(ctx context.Context, channelIDs []string) (<-chan Event, <-chan error, error)

	// Close releases the underlying connections.
	Close() error
}
