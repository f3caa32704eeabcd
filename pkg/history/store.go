package history

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Driver selects the storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverFile   Driver = "file"
	DriverRedis  Driver = "redis"
)

var (
	// ErrInvalidDriver is returned for an unknown driver name.
	ErrInvalidDriver = errors.New("history: invalid driver")

	// ErrInvalidConfig is returned when a driver is missing required options.
	ErrInvalidConfig = errors.New("history: invalid store configuration")
)

// StoreOption is a functional option for configuring a store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	language    string
	filePath    string
	redisClient *redis.Client
	redisKey    string
	redisTTL    time.Duration
}

// WithLanguage sets the display language used for the synthesized greeting.
// Defaults to Spanish.
func WithLanguage(lang string) StoreOption {
	return func(c *storeConfig) {
		c.language = lang
	}
}

// WithFilePath sets the JSON file backing the file driver.
func WithFilePath(path string) StoreOption {
	return func(c *storeConfig) {
		c.filePath = path
	}
}

// WithRedisClient sets the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisKey overrides the Redis key holding the conversation slot.
func WithRedisKey(key string) StoreOption {
	return func(c *storeConfig) {
		c.redisKey = key
	}
}

// WithRedisTTL sets an expiry on the conversation key. Zero means no expiry.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// NewStore creates a Store for the given driver. Corrupt or missing durable
// data never fails construction: the store falls back to a single greeting.
func NewStore(driver Driver, opts ...StoreOption) (Store, error) {
	config := &storeConfig{
		language: "es",
		redisKey: "sage:chat_history",
	}
	for _, opt := range opts {
		opt(config)
	}

	switch driver {
	case DriverMemory:
		return newMemoryStore(config.language), nil

	case DriverFile:
		if config.filePath == "" {
			return nil, ErrInvalidConfig
		}
		return newFileStore(config.filePath, config.language), nil

	case DriverRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return newRedisStore(config.redisClient, config.redisKey, config.language, config.redisTTL), nil

	default:
		return nil, ErrInvalidDriver
	}
}
