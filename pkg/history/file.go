package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// fileStore persists the conversation as one JSON array in a single file,
// rewritten synchronously on every mutation. A corrupt or missing file on
// load falls back to the greeting rather than surfacing a parse error.
type fileStore struct {
	mu       sync.Mutex
	path     string
	language string
	messages []Message
}

func newFileStore(path, language string) *fileStore {
	s := &fileStore{
		path:     path,
		language: language,
	}
	s.messages = s.load()
	return s
}

func (s *fileStore) load() []Message {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return []Message{Greeting(s.language)}
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil || len(messages) == 0 {
		return []Message{Greeting(s.language)}
	}
	return messages
}

func (s *fileStore) persistLocked() error {
	data, err := json.Marshal(s.messages)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Append implements Store.
func (s *fileStore) Append(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.persistLocked()
}

// All implements Store.
func (s *fileStore) All(ctx context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// Clear implements Store.
func (s *fileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{Greeting(s.language)}
	_ = os.Remove(s.path)
	return s.persistLocked()
}

// Close implements Store.
func (s *fileStore) Close() error {
	return nil
}
