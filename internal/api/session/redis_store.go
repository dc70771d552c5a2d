package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-trip-itinerary-planner/config"
)

const (
	defaultLockTTL      = 30 * time.Second
	defaultPollInterval = 25 * time.Millisecond
	releaseTimeout      = 2 * time.Second
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var _ Store = (*RedisStore)(nil)

type RedisStore struct {
	client       *redis.Client
	lockTTL      time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewRedisClient builds the go-redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

func NewRedisStore(client *redis.Client, lockTTL time.Duration, logger *slog.Logger) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisStore{
		client:       client,
		lockTTL:      lockTTL,
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Lock takes key:lock with SET NX PX and a random token, polling until it succeeds or
// ctx ends. The lock expires on its own if the holder dies.
func (s *RedisStore) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := key + ":lock"
	token := uuid.NewString()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, lockKey, token, s.lockTTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrLockNotAcquired, lockKey, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockNotAcquired, lockKey, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, s.client, []string{lockKey}, token).Err(); err != nil {
				s.logger.WarnContext(ctx, "Failed to release session lock",
					slog.String("key", lockKey),
					slog.Any("error", err))
			}
		})
	}
	return release, nil
}
