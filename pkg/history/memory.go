package history

import (
	"context"
	"sync"
)

// memoryStore keeps the conversation in process memory. It backs the
// widget when no durable slot is configured and the unit tests.
type memoryStore struct {
	mu       sync.RWMutex
	language string
	messages []Message
}

func newMemoryStore(language string) *memoryStore {
	return &memoryStore{
		language: language,
		messages: []Message{Greeting(language)},
	}
}

// Append implements Store.
func (s *memoryStore) Append(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

// All implements Store.
func (s *memoryStore) All(ctx context.Context) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Clear implements Store.
func (s *memoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{Greeting(s.language)}
	return nil
}

// Close implements Store.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}
