// Package configstore persists per-account configuration in Redis.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix is prepended to the account id to build the Redis key
	DefaultKeyPrefix = "unoapi-config:"

	// DefaultMaxAttempts bounds the optimistic merge loop
	DefaultMaxAttempts = 10
)

// Options tunes the RedisStore
type Options struct {
	KeyPrefix   string
	TTL         time.Duration
	MaxAttempts int
}

// RedisStore keeps one JSON document per account. Merge runs the
// read-merge-write under WATCH so concurrent merges on the same account do
// not overwrite each other.
type RedisStore struct {
	rdb         redis.UniversalClient
	logger      *slog.Logger
	keyPrefix   string
	ttl         time.Duration
	maxAttempts int
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(rdb redis.UniversalClient, logger *slog.Logger, opts Options) *RedisStore {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	return &RedisStore{
		rdb:         rdb,
		logger:      logger,
		keyPrefix:   opts.KeyPrefix,
		ttl:         opts.TTL,
		maxAttempts: opts.MaxAttempts,
	}
}

func (s *RedisStore) key(accountID string) string {
	return s.keyPrefix + accountID
}

// Get returns the stored config, or an empty config when none exists
func (s *RedisStore) Get(ctx context.Context, accountID string) (domain.AccountConfig, error) {
	cfg, err := read(ctx, s.rdb, s.key(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to get config for %s: %w", accountID, err)
	}
	return cfg, nil
}

// Merge overwrites the top-level keys present in partial and leaves every
// other key untouched
func (s *RedisStore) Merge(ctx context.Context, accountID string, partial domain.AccountConfig) error {
	key := s.key(accountID)

	txf := func(tx *redis.Tx) error {
		current, err := read(ctx, tx, key)
		if err != nil {
			return err
		}

		for k, v := range partial {
			current[k] = finite(v)
		}

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			s.logger.Debug("Config merged",
				slog.String("account_id", accountID),
				slog.Int("keys", len(partial)),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		if !errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to merge config for %s: %w", accountID, err)
		}

		s.logger.Debug("Config changed during merge, retrying",
			slog.String("account_id", accountID),
			slog.Int("attempt", attempt),
		)
	}

	return fmt.Errorf("failed to merge config for %s after %d attempts: %w", accountID, s.maxAttempts, redis.TxFailedErr)
}

// finite replaces NaN and infinite numbers, which JSON cannot carry, with
// null
func finite(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = finite(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = finite(val)
		}
		return out
	default:
		return v
	}
}

// getter is satisfied by both the client and a WATCH transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func read(ctx context.Context, c getter, key string) (domain.AccountConfig, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AccountConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := domain.AccountConfig{}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
