package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore persists the conversation as one JSON value under a single
// key. Reads tolerate a missing or corrupt value by synthesizing the
// greeting.
type redisStore struct {
	client   *redis.Client
	key      string
	language string
	ttl      time.Duration
}

func newRedisStore(client *redis.Client, key, language string, ttl time.Duration) *redisStore {
	return &redisStore{
		client:   client,
		key:      key,
		language: language,
		ttl:      ttl,
	}
}

func (s *redisStore) loadOrSeed(ctx context.Context) []Message {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		return []Message{Greeting(s.language)}
	}
	var messages []Message
	if err := json.Unmarshal([]byte(val), &messages); err != nil || len(messages) == 0 {
		return []Message{Greeting(s.language)}
	}
	return messages
}

func (s *redisStore) persist(ctx context.Context, messages []Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, string(data), s.ttl).Err()
}

// Append implements Store.
func (s *redisStore) Append(ctx context.Context, msg Message) error {
	messages := append(s.loadOrSeed(ctx), msg)
	return s.persist(ctx, messages)
}

// All implements Store.
func (s *redisStore) All(ctx context.Context) ([]Message, error) {
	return s.loadOrSeed(ctx), nil
}

// Clear implements Store.
func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && err != redis.Nil {
		return err
	}
	return s.persist(ctx, []Message{Greeting(s.language)})
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}
