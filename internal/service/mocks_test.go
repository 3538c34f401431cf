package service

import (
	"context"
	"time"

	"telereader/internal/models"
	"telereader/internal/storage"
	"telereader/pkg/telegram/types"

	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) ResolveChannel(ctx context.Context, channelID string) (*types.ChannelInfo, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ChannelInfo), args.Error(1)
}

func (m *mockClient) GetHeadMessageID(ctx context.Context, channelID string) (int64, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockClient) FetchMessages(ctx context.Context, channelID string, afterID, maxID int64, limit int) ([]types.Message, error) {
	args := m.Called(ctx, channelID, afterID, maxID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *mockClient) FetchMessagesByTime(ctx context.Context, channelID string, from, to time.Time, afterID int64, limit int) ([]types.Message, error) {
	args := m.Called(ctx, channelID, from, to, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *mockClient) Subscribe(ctx context.Context, channelIDs []string) (<-chan types.Event, <-chan error, error) {
	args := m.Called(ctx, channelIDs)
	var events <-chan types.Event
	var errs <-chan error
	if args.Get(0) != nil {
		events = args.Get(0).(<-chan types.Event)
	}
	if args.Get(1) != nil {
		errs = args.Get(1).(<-chan error)
	}
	return events, errs, args.Error(2)
}

func (m *mockClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// fakeSource serves scripted channel history without mock bookkeeping.
// It implements paging the way the gateway does: IDs in (afterID, maxID]
// ascending, at most limit per page.
type fakeSource struct {
	messages map[string][]types.Message
	fetches  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{messages: make(map[string][]types.Message)}
}

func (f *fakeSource) add(channelID string, msgs ...types.Message) {
	f.messages[channelID] = append(f.messages[channelID], msgs...)
}

func (f *fakeSource) ResolveChannel(ctx context.Context, channelID string) (*types.ChannelInfo, error) {
	head, _ := f.GetHeadMessageID(ctx, channelID)
	return &types.ChannelInfo{ID: channelID, Title: channelID, HeadMessageID: head}, nil
}

func (f *fakeSource) GetHeadMessageID(ctx context.Context, channelID string) (int64, error) {
	var head int64
	for _, m := range f.messages[channelID] {
		if m.ID > head {
			head = m.ID
		}
	}
	return head, nil
}

func (f *fakeSource) FetchMessages(ctx context.Context, channelID string, afterID, maxID int64, limit int) ([]types.Message, error) {
	f.fetches++
	var page []types.Message
	for _, m := range f.messages[channelID] {
		if m.ID > afterID && (maxID <= 0 || m.ID <= maxID) {
			page = append(page, m)
			if len(page) == limit {
				break
			}
		}
	}
	return page, nil
}

func (f *fakeSource) FetchMessagesByTime(ctx context.Context, channelID string, from, to time.Time, afterID int64, limit int) ([]types.Message, error) {
	f.fetches++
	var page []types.Message
	for _, m := range f.messages[channelID] {
		if m.ID > afterID && !m.Date.Before(from) && !m.Date.After(to) {
			page = append(page, m)
			if len(page) == limit {
				break
			}
		}
	}
	return page, nil
}

func (f *fakeSource) Subscribe(ctx context.Context, channelIDs []string) (<-chan types.Event, <-chan error, error) {
	events := make(chan types.Event)
	errs := make(chan error)
	close(events)
	close(errs)
	return events, errs, nil
}

func (f *fakeSource) Close() error { return nil }

// flakyStore wraps a MemoryStore and fails UpdateCheckpoint a set
// number of times, simulating a crash between persist and commit.
type flakyStore struct {
	*storage.MemoryStore
	commitFailures int
	commitErr      error
}

func (s *flakyStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	if s.commitFailures > 0 {
		s.commitFailures--
		return s.commitErr
	}
	return s.MemoryStore.UpdateCheckpoint(ctx, channelID, messageID)
}

// orderRecordingStore records the sequence of store calls to assert the
// persist-before-commit ordering.
type orderRecordingStore struct {
	*storage.MemoryStore
	calls []string
}

func (s *orderRecordingStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	s.calls = append(s.calls, "upsert")
	return s.MemoryStore.UpsertMessage(ctx, msg)
}

func (s *orderRecordingStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	s.calls = append(s.calls, "commit")
	return s.MemoryStore.UpdateCheckpoint(ctx, channelID, messageID)
}

// cancellingStore triggers a shutdown after its first write and rejects
// any write whose context has been cancelled, so tests can observe
// whether persistence runs on a cancellable context.
type cancellingStore struct {
	*storage.MemoryStore
	cancel  context.CancelFunc
	upserts int
}

func (s *cancellingStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.upserts++
	if s.upserts == 1 {
		s.cancel()
	}
	return s.MemoryStore.UpsertMessage(ctx, msg)
}

func (s *cancellingStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.UpdateCheckpoint(ctx, channelID, messageID)
}
