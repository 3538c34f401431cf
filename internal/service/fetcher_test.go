package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"telereader/pkg/telegram/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialMessages(channelID string, from, to int64) []types.Message {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msgs := make([]types.Message, 0, to-from+1)
	for id := from; id <= to; id++ {
		msgs = append(msgs, types.Message{
			ID:        id,
			ChannelID: channelID,
			Text:      "message",
			Date:      base.Add(time.Duration(id) * time.Minute),
		})
	}
	return msgs
}

func TestBatchFetcher_FetchRange_PagesThrough(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 50)...)

	fetcher := NewBatchFetcher(source, 20, time.Millisecond)

	var pages [][]types.Message
	err := fetcher.FetchRange(context.Background(), "@news", 0, 50, func(batch []types.Message) error {
		pages = append(pages, batch)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Len(t, pages[0], 20)
	assert.Len(t, pages[1], 20)
	assert.Len(t, pages[2], 10)
	assert.Equal(t, int64(1), pages[0][0].ID)
	assert.Equal(t, int64(50), pages[2][9].ID)
	assert.Equal(t, 3, source.fetches)
}

func TestBatchFetcher_FetchRange_ResumesMidHistory(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 30)...)

	fetcher := NewBatchFetcher(source, 100, time.Millisecond)

	var got []int64
	err := fetcher.FetchRange(context.Background(), "@news", 12, 30, func(batch []types.Message) error {
		for _, m := range batch {
			got = append(got, m.ID)
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 18)
	assert.Equal(t, int64(13), got[0])
	assert.Equal(t, int64(30), got[17])
}

func TestBatchFetcher_FetchRange_EmptyRange(t *testing.T) {
	source := newFakeSource()
	fetcher := NewBatchFetcher(source, 20, time.Millisecond)

	err := fetcher.FetchRange(context.Background(), "@news", 50, 50, func(batch []types.Message) error {
		t.Fatal("callback should not run for an empty range")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, source.fetches)
}

func TestBatchFetcher_FetchRange_CallbackErrorStopsWalk(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 50)...)

	fetcher := NewBatchFetcher(source, 20, time.Millisecond)

	wantErr := errors.New("storage down")
	err := fetcher.FetchRange(context.Background(), "@news", 0, 50, func(batch []types.Message) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, source.fetches)
}

func TestBatchFetcher_FetchRange_ContextCancelled(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 50)...)

	fetcher := NewBatchFetcher(source, 10, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fetcher.FetchRange(ctx, "@news", 0, 50, func(batch []types.Message) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchFetcher_FetchWindow_FiltersByDate(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 60)...)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	from := base.Add(10 * time.Minute)
	to := base.Add(20 * time.Minute)

	fetcher := NewBatchFetcher(source, 100, time.Millisecond)

	var got []int64
	err := fetcher.FetchWindow(context.Background(), "@news", from, to, func(batch []types.Message) error {
		for _, m := range batch {
			got = append(got, m.ID)
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 11)
	assert.Equal(t, int64(10), got[0])
	assert.Equal(t, int64(20), got[10])
}

func TestBatchFetcher_FetchWindow_Pages(t *testing.T) {
	source := newFakeSource()
	source.add("@news", sequentialMessages("@news", 1, 25)...)

	fetcher := NewBatchFetcher(source, 10, time.Millisecond)

	pages := 0
	err := fetcher.FetchWindow(context.Background(), "@news",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		func(batch []types.Message) error {
			pages++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Equal(t, 3, source.fetches)
}
