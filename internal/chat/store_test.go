package chat_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkchat/backend/internal/chat"
	"sparkchat/backend/internal/model"
)

const testUser = "user-1"

// setupStore gives each test a store backed by a fresh in-process redis.
func setupStore(t *testing.T) (*chat.Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return chat.NewStore(chat.NewRedisStorage(rdb)), mr
}

func TestStore_CreatePrependsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	first, err := store.Create(ctx, testUser)
	require.NoError(t, err)
	second, err := store.Create(ctx, testUser)
	require.NoError(t, err)

	all, err := store.LoadAll(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
	assert.Equal(t, "New Chat", all[0].Title)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_PersistEmptyChatIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	c, err := store.Create(ctx, testUser)
	require.NoError(t, err)

	require.NoError(t, store.Persist(ctx, testUser, c.ID))

	// Nothing durable: the key was never written.
	assert.False(t, mr.Exists("chats:"+testUser))

	// Persisting an id that does not exist at all is also silent.
	require.NoError(t, store.Persist(ctx, testUser, "no-such-chat"))
}

func TestStore_PersistDerivesTitleAndUpserts(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	c, err := store.Create(ctx, testUser)
	require.NoError(t, err)

	long := "This message is well over twenty characters long"
	require.NoError(t, store.Append(ctx, testUser, c.ID, model.Message{Role: model.RoleUser, Content: long}))
	require.NoError(t, store.Persist(ctx, testUser, c.ID))

	got, err := store.Load(ctx, testUser, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "This message is well", got.Title)
	assert.Len(t, got.Title, 20)
	assert.Equal(t, c.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(c.UpdatedAt) || got.UpdatedAt.Equal(c.UpdatedAt))
}

func TestStore_PersistTwiceIsIdempotentOnContent(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	c, err := store.Create(ctx, testUser)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, testUser, c.ID, model.Message{Role: model.RoleUser, Content: "hello"}))

	require.NoError(t, store.Persist(ctx, testUser, c.ID))
	first, err := store.Load(ctx, testUser, c.ID)
	require.NoError(t, err)

	require.NoError(t, store.Persist(ctx, testUser, c.ID))
	second, err := store.Load(ctx, testUser, c.ID)
	require.NoError(t, err)

	// updatedAt may move forward, but the content does not change.
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Messages, second.Messages)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestStore_RoundTripThroughStorage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	storage := chat.NewRedisStorage(rdb)

	store := chat.NewStore(storage)
	c, err := store.Create(ctx, testUser)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, testUser, c.ID, model.Message{Role: model.RoleUser, Content: "ping"}))
	require.NoError(t, store.Append(ctx, testUser, c.ID, model.Message{Role: model.RoleBot, Content: "pong"}))
	require.NoError(t, store.Persist(ctx, testUser, c.ID))

	before, err := store.LoadAll(ctx, testUser)
	require.NoError(t, err)

	// A fresh store over the same storage reproduces an equal collection.
	reloaded := chat.NewStore(storage)
	after, err := reloaded.LoadAll(ctx, testUser)
	require.NoError(t, err)

	// The empty chats filtered out of the durable copy aside, the persisted
	// chat must survive byte-for-byte.
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].Title, after[0].Title)
	assert.Equal(t, before[0].Messages, after[0].Messages)
}

func TestStore_LoadUnknownChat(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	_, err := store.Load(ctx, testUser, "missing")
	assert.ErrorIs(t, err, chat.ErrNotFound)

	err = store.Append(ctx, testUser, "missing", model.Message{Role: model.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestStore_CorruptStorageResetsToEmpty(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	require.NoError(t, mr.Set("chats:"+testUser, "{not json"))

	all, err := store.LoadAll(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_CollectionsAreIsolatedByUser(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStore(t)

	c, err := store.Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "alice", c.ID, model.Message{Role: model.RoleUser, Content: "hi"}))
	require.NoError(t, store.Persist(ctx, "alice", c.ID))

	bobs, err := store.LoadAll(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bobs)

	_, err = store.Load(ctx, "bob", c.ID)
	assert.ErrorIs(t, err, chat.ErrNotFound)
}

func TestStore_DurableBlobIsOneJSONArray(t *testing.T) {
	ctx := context.Background()
	store, mr := setupStore(t)

	c, err := store.Create(ctx, testUser)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, testUser, c.ID, model.Message{Role: model.RoleUser, Content: "hi"}))
	require.NoError(t, store.Persist(ctx, testUser, c.ID))

	raw, err := mr.Get("chats:" + testUser)
	require.NoError(t, err)

	var decoded []model.Chat
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, c.ID, decoded[0].ID)
}
