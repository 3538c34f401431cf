package storage

import (
	"context"
	"sync"

	"telereader/internal/models"
)

type messageKey struct {
	channelID string
	messageID int64
}

// MemoryStore is an in-process Store with the same contracts as the
// durable backends. It backs the engine's tests and is safe for
// concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	messages    map[messageKey]models.Message
	checkpoints map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:    make(map[messageKey]models.Message),
		checkpoints: make(map[string]int64),
	}
}

func (s *MemoryStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[messageKey{msg.ChannelID, msg.MessageID}] = *msg
	return nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, channelID string, messageID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := messageKey{channelID, messageID}
	if _, ok := s.messages[key]; !ok {
		return false, nil
	}
	delete(s.messages, key)
	return true, nil
}

func (s *MemoryStore) GetLatestMessageID(ctx context.Context, channelID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest int64
	for key := range s.messages {
		if key.channelID == channelID && key.messageID > latest {
			latest = key.messageID
		}
	}
	return latest, nil
}

func (s *MemoryStore) GetCheckpoint(ctx context.Context, channelID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[channelID], nil
}

func (s *MemoryStore) UpdateCheckpoint(ctx context.Context, channelID string, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if messageID > s.checkpoints[channelID] {
		s.checkpoints[channelID] = messageID
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// GetMessage returns a stored message copy, for assertions in tests.
func (s *MemoryStore) GetMessage(channelID string, messageID int64) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[messageKey{channelID, messageID}]
	return msg, ok
}

// MessageCount returns the number of stored messages for a channel.
func (s *MemoryStore) MessageCount(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for key := range s.messages {
		if key.channelID == channelID {
			count++
		}
	}
	return count
}
