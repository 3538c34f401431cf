package service

import (
	"context"
	"time"

	"telereader/pkg/telegram/types"

	"golang.org/x/time/rate"
)

// BatchFetcher walks channel history in pages, pausing between network
// fetches to respect source-side rate limits. It delivers each page to
// a callback in forward order; it is not restartable mid-sequence —
// callers that need resumability (backfill) get it from the checkpoint,
// not from fetcher state.
type BatchFetcher struct {
	client    types.Client
	limiter   *rate.Limiter
	batchSize int
}

// NewBatchFetcher creates a fetcher with the configured page size and
// minimum delay between successive batches.
func NewBatchFetcher(client types.Client, batchSize int, batchDelay time.Duration) *BatchFetcher {
	return &BatchFetcher{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(batchDelay), 1),
		batchSize: batchSize,
	}
}

// FetchRange walks IDs in (afterID, toID] ascending, invoking fn once
// per page. A callback error stops the walk and is returned as-is.
func (f *BatchFetcher) FetchRange(ctx context.Context, channelID string, afterID, toID int64, fn func(batch []types.Message) error) error {
	cursor := afterID
	for cursor < toID {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		batch, err := f.client.FetchMessages(ctx, channelID, cursor, toID, f.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		cursor = batch[len(batch)-1].ID
		if len(batch) < f.batchSize {
			return nil
		}
	}
	return nil
}

// FetchWindow walks messages dated within [from, to] ascending,
// invoking fn once per page.
func (f *BatchFetcher) FetchWindow(ctx context.Context, channelID string, from, to time.Time, fn func(batch []types.Message) error) error {
	var cursor int64
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		batch, err := f.client.FetchMessagesByTime(ctx, channelID, from, to, cursor, f.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		cursor = batch[len(batch)-1].ID
		if len(batch) < f.batchSize {
			return nil
		}
	}
}
