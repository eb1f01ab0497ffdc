package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/bytetube/bytetube-chat/internal/idgen"
	"github.com/bytetube/bytetube-chat/internal/models"
)

// exerciseRoomRepo checks the behavior every RoomRepo must share.
func exerciseRoomRepo(t *testing.T, rr RoomRepo) {
	ctx := context.Background()
	roomId, err := idgen.NewRoomID()
	require.NoError(t, err)
	room := models.Room{RoomId: roomId, CreatedAt: time.Now().Unix()}

	ok, err := rr.ExistsRoom(ctx, roomId)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rr.CreateRoom(ctx, room, 60))
	require.ErrorIs(t, rr.CreateRoom(ctx, room, 60), ErrRoomExists)

	got, ok, err := rr.GetRoom(ctx, roomId)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, room, got)

	require.NoError(t, rr.AddConnection(ctx, room, "c1", 60))
	require.NoError(t, rr.AddConnection(ctx, room, "c2", 60))
	require.NoError(t, rr.AddConnection(ctx, room, "c2", 60))
	n, err := rr.CountConnections(ctx, roomId)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	require.NoError(t, rr.RemoveConnection(ctx, roomId, "c1"))
	n, err = rr.CountConnections(ctx, roomId)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	require.NoError(t, rr.TouchRoom(ctx, roomId, 60))

	// A connection to an unknown room registers it.
	other := models.Room{RoomId: roomId + "x", CreatedAt: room.CreatedAt}
	require.NoError(t, rr.AddConnection(ctx, other, "c3", 60))
	ok, err = rr.ExistsRoom(ctx, other.RoomId)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryRoomRepo(t *testing.T) {
	exerciseRoomRepo(t, NewMemoryRoomRepo())
}

func TestMemoryRoomRepo_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mr := NewMemoryRoomRepo()
	mr.now = func() time.Time { return now }

	room := models.Room{RoomId: "r1", CreatedAt: now.Unix()}
	require.NoError(t, mr.AddConnection(ctx, room, "c1", 10))

	now = now.Add(9 * time.Second)
	require.NoError(t, mr.TouchRoom(ctx, "r1", 10))

	now = now.Add(9 * time.Second)
	ok, err := mr.ExistsRoom(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = mr.ExistsRoom(ctx, "r1")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := mr.CountConnections(ctx, "r1")
	require.NoError(t, err)
	require.Zero(t, n)
}

// Runs only when a Redis instance is available.
func TestRedisRoomRepo(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()).Err())

	exerciseRoomRepo(t, NewRedisRoomRepo(rdb))
}
