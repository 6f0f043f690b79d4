package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raunaksarawgi/dexflow-realtime/internal/domain/model"
	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/cache"
)

func newMockedStore(t *testing.T) (*cache.RedisStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	store := cache.NewRedisStoreWithClient(db, slog.Default())
	return store, mock
}

func TestRedisStoreSetGet(t *testing.T) {
	store, mock := newMockedStore(t)
	ctx := context.Background()

	token := model.Token{Address: "0xabc", Ticker: "TST", Price: 2.5, Volume: 500}
	data, err := json.Marshal(token)
	require.NoError(t, err)

	mock.ExpectSet("agg:token:0xabc", data, 30*time.Second).SetVal("OK")
	assert.True(t, store.Set(ctx, "agg:token:0xabc", token, 30*time.Second))

	mock.ExpectGet("agg:token:0xabc").SetVal(string(data))
	var got model.Token
	require.True(t, store.Get(ctx, "agg:token:0xabc", &got))
	assert.Equal(t, token, got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreMissOnNil(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectGet("nope").RedisNil()
	var got model.Token
	assert.False(t, store.Get(context.Background(), "nope", &got))
	// A plain miss is not a connectivity problem.
	assert.True(t, store.Connected())
}

func TestRedisStoreMalformedPayloadIsMiss(t *testing.T) {
	store, mock := newMockedStore(t)

	mock.ExpectGet("bad").SetVal("{not json")
	var got model.Token
	assert.False(t, store.Get(context.Background(), "bad", &got))
	assert.True(t, store.Connected())
}

func TestRedisStoreDegradesOnError(t *testing.T) {
	store, mock := newMockedStore(t)
	ctx := context.Background()

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))
	var got string
	assert.False(t, store.Get(ctx, "k", &got))
	assert.False(t, store.Connected(), "a transport error should mark the store disconnected")

	// A later successful operation restores the status.
	data, _ := json.Marshal("v")
	mock.ExpectSet("k", data, time.Minute).SetVal("OK")
	assert.True(t, store.Set(ctx, "k", "v", time.Minute))
	assert.True(t, store.Connected())
}

func TestRedisStoreDelete(t *testing.T) {
	store, mock := newMockedStore(t)
	ctx := context.Background()

	mock.ExpectDel("k").SetVal(1)
	assert.True(t, store.Delete(ctx, "k"))

	mock.ExpectDel("missing").SetVal(0)
	assert.False(t, store.Delete(ctx, "missing"))
}

func TestRedisStoreExistsAndTTL(t *testing.T) {
	store, mock := newMockedStore(t)
	ctx := context.Background()

	mock.ExpectExists("k").SetVal(1)
	assert.True(t, store.Exists(ctx, "k"))

	mock.ExpectTTL("k").SetVal(42 * time.Second)
	assert.Equal(t, 42*time.Second, store.TTL(ctx, "k"))

	// -2 (no such key) collapses to the absent sentinel.
	mock.ExpectTTL("missing").SetVal(-2 * time.Nanosecond)
	assert.Equal(t, time.Duration(-1), store.TTL(ctx, "missing"))
}

func TestRedisStoreUnserializableValue(t *testing.T) {
	store, _ := newMockedStore(t)

	// Channels cannot be marshaled; Set must refuse without touching Redis.
	assert.False(t, store.Set(context.Background(), "k", make(chan int), time.Minute))
}
