package configstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cuongbtq/unoapi-commander/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisStore(rdb, logger, opts), mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t, Options{})

	cfg, err := store.Get(context.Background(), "5511")

	require.NoError(t, err)
	assert.Empty(t, cfg)
}

func TestRedisStore_MergeKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t, Options{})

	require.NoError(t, mr.Set(DefaultKeyPrefix+"5511", `{"ignoreGroupMessages":true,"webhooks":[{"url":"https://old"}]}`))

	err := store.Merge(ctx, "5511", domain.AccountConfig{
		"webhooks": []any{map[string]any{"url": "https://x", "token": "t", "header": "h"}},
	})
	require.NoError(t, err)

	cfg, err := store.Get(ctx, "5511")
	require.NoError(t, err)

	assert.Equal(t, true, cfg["ignoreGroupMessages"])
	assert.Equal(t, []any{map[string]any{"url": "https://x", "token": "t", "header": "h"}}, cfg.Webhooks())
}

func TestRedisStore_MergeStoresNonFiniteNumbersAsNull(t *testing.T) {
	store, mr := newTestStore(t, Options{})

	err := store.Merge(context.Background(), "5511", domain.AccountConfig{
		"retryLimit": math.Inf(1),
		"webhooks":   []any{map[string]any{"url": math.Inf(-1), "token": math.NaN()}, nil},
	})
	require.NoError(t, err)

	got, err := mr.Get(DefaultKeyPrefix + "5511")
	require.NoError(t, err)
	assert.JSONEq(t, `{"retryLimit":null,"webhooks":[{"url":null,"token":null},null]}`, got)
}

func TestRedisStore_MergeUsesPrefixAndTTL(t *testing.T) {
	store, mr := newTestStore(t, Options{KeyPrefix: "cfg:", TTL: time.Hour})

	require.NoError(t, store.Merge(context.Background(), "5511", domain.AccountConfig{"rejectCalls": "busy"}))

	assert.True(t, mr.Exists("cfg:5511"))
	assert.Equal(t, time.Hour, mr.TTL("cfg:5511"))
}

func TestRedisStore_ConcurrentMergesDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, Options{MaxAttempts: 50})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Merge(ctx, "5511", domain.AccountConfig{fmt.Sprintf("key%d", i): i})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	cfg, err := store.Get(ctx, "5511")
	require.NoError(t, err)
	assert.Len(t, cfg, writers)
}

func TestRedisStore_GetCorruptedDocument(t *testing.T) {
	store, mr := newTestStore(t, Options{})
	require.NoError(t, mr.Set(DefaultKeyPrefix+"5511", "not json"))

	cfg, err := store.Get(context.Background(), "5511")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
	assert.Nil(t, cfg)
}
