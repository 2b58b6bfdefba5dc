package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopping-agent-gateway/internal/common/config"
	"shopping-agent-gateway/internal/common/database"
	"shopping-agent-gateway/internal/common/logger"
	"shopping-agent-gateway/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, maxTurns int) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, config.HistoryConfig{MaxTurns: maxTurns, TTL: 3600}, logger.NewTestLogger(t))
	return store, mr
}

func TestRedisStore_AppendAndLoad(t *testing.T) {
	store, mr := newStore(t, 3)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "u1",
		models.ConversationMessage{Role: "user", Content: "find a pan"},
		models.ConversationMessage{Role: "assistant", Content: "found 2 products"},
	))
	require.NoError(t, store.Append(ctx, "u1",
		models.ConversationMessage{Role: "user", Content: "add one"},
		models.ConversationMessage{Role: "assistant", Content: "proposed addToCart"},
	))

	turns, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "found 2 products", turns[0].Content)
	assert.Equal(t, "proposed addToCart", turns[2].Content)

	assert.Equal(t, time.Hour, mr.TTL("agent:history:u1"))

	other, err := store.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRedisStore_SkipsCorruptEntries(t *testing.T) {
	store, mr := newStore(t, 10)
	ctx := context.Background()

	_, err := mr.RPush("agent:history:u1", "not json", `{"role":"user","content":"ok"}`)
	require.NoError(t, err)

	turns, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.ConversationMessage{{Role: "user", Content: "ok"}}, turns)
}

func TestRedisStore_AnonymousIsNoOp(t *testing.T) {
	store, mr := newStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "", models.ConversationMessage{Role: "user", Content: "hi"}))
	turns, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, turns)
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_Clear(t *testing.T) {
	store, mr := newStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "u1", models.ConversationMessage{Role: "user", Content: "hi"}))
	require.NoError(t, store.Clear(ctx, "u1"))
	assert.False(t, mr.Exists("agent:history:u1"))
}

func TestRedisStore_RedisErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(&database.RedisClient{Client: db}, config.HistoryConfig{MaxTurns: 5}, nil)
	ctx := context.Background()

	mock.ExpectLRange("agent:history:u1", -5, -1).SetErr(errors.New("connection refused"))
	_, err := store.Load(ctx, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load history")

	assert.NoError(t, mock.ExpectationsWereMet())
}
