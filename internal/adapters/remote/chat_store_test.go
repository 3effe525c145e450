package remote

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquidtasks/core/internal/domain/entities"
	"github.com/liquidtasks/core/internal/infrastructure/logger"
)

func newChatStore(t *testing.T) (*ChatStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewChatStore(client, 100, logger.Nop()), mr
}

func appendMessages(t *testing.T, store *ChatStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), entities.ChatMessage{
			ID:         fmt.Sprintf("msg-%d", i),
			Text:       fmt.Sprintf("hello %d", i),
			SenderID:   "user-1",
			SenderName: "Alice",
			CreatedAt:  int64(1000 + i),
		})
		require.NoError(t, err)
	}
}

func TestChatStore_RecentReturnsAscending(t *testing.T) {
	store, _ := newChatStore(t)
	appendMessages(t, store, 3)

	msgs, err := store.Recent(context.Background(), 100)

	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-0", msgs[0].ID)
	assert.Equal(t, "msg-2", msgs[2].ID)
}

func TestChatStore_RecentBounded(t *testing.T) {
	store, _ := newChatStore(t)
	appendMessages(t, store, 5)

	msgs, err := store.Recent(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "msg-2", msgs[0].ID, "the oldest surviving message comes first")
	assert.Equal(t, "msg-4", msgs[2].ID)
}

func TestChatStore_RecentNonPositiveLimitYieldsNothing(t *testing.T) {
	store, _ := newChatStore(t)
	appendMessages(t, store, 5)

	for _, limit := range []int{0, -1} {
		msgs, err := store.Recent(context.Background(), limit)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	}
}

func TestChatStore_RecentSkipsMalformedEntries(t *testing.T) {
	store, mr := newChatStore(t)
	appendMessages(t, store, 2)
	mr.ZAdd(chatMessagesKey, 999, "not json")

	msgs, err := store.Recent(context.Background(), 100)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-0", msgs[0].ID)
}
