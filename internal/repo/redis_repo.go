package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bytetube/bytetube-chat/internal/models"
)

type RedisRoomRepo struct{ rdb *redis.Client }

func NewRedisRoomRepo(rdb *redis.Client) *RedisRoomRepo {
	return &RedisRoomRepo{rdb: rdb}
}

func roomKey(id string) string {
	return fmt.Sprintf("chat:rooms:%s", id)
}
func connsKey(id string) string {
	return fmt.Sprintf("chat:rooms:%s:conns", id)
}

func sec(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func (rr *RedisRoomRepo) CreateRoom(ctx context.Context, room models.Room, ttlSec int) error {
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := rr.rdb.SetNX(ctx, roomKey(room.RoomId), b, sec(ttlSec)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomExists
	}
	return nil
}

func (rr *RedisRoomRepo) GetRoom(ctx context.Context, roomId string) (models.Room, bool, error) {
	val, err := rr.rdb.Get(ctx, roomKey(roomId)).Bytes()
	if err == redis.Nil {
		return models.Room{}, false, nil
	}
	if err != nil {
		return models.Room{}, false, err
	}
	var r models.Room
	if err := json.Unmarshal(val, &r); err != nil {
		return models.Room{}, false, err
	}
	return r, true, nil
}

func (rr *RedisRoomRepo) ExistsRoom(ctx context.Context, roomId string) (bool, error) {
	n, err := rr.rdb.Exists(ctx, roomKey(roomId)).Result()
	return n == 1, err
}

func (rr *RedisRoomRepo) AddConnection(ctx context.Context, room models.Room, connId string, ttlSec int) error {
	b, err := json.Marshal(room)
	if err != nil {
		return err
	}
	d := sec(ttlSec)
	pipe := rr.rdb.TxPipeline()
	pipe.SetNX(ctx, roomKey(room.RoomId), b, d) // first connection registers the room
	pipe.SAdd(ctx, connsKey(room.RoomId), connId)
	pipe.Expire(ctx, connsKey(room.RoomId), d)
	pipe.Expire(ctx, roomKey(room.RoomId), d)
	_, err = pipe.Exec(ctx)
	return err
}

func (rr *RedisRoomRepo) RemoveConnection(ctx context.Context, roomId, connId string) error {
	return rr.rdb.SRem(ctx, connsKey(roomId), connId).Err()
}

func (rr *RedisRoomRepo) CountConnections(ctx context.Context, roomId string) (int64, error) {
	return rr.rdb.SCard(ctx, connsKey(roomId)).Result()
}

// touchScript extends the room and its connection set atomically.
var touchScript = redis.NewScript(`
	local room_key = KEYS[1]
	local conns_key = KEYS[2]
	local ttl = tonumber(ARGV[1])

	if redis.call('EXISTS', room_key) == 0 then
		return 0
	end
	redis.call('EXPIRE', room_key, ttl)
	redis.call('EXPIRE', conns_key, ttl)
	return 1
`)

func (rr *RedisRoomRepo) TouchRoom(ctx context.Context, roomId string, ttlSec int) error {
	return touchScript.Run(ctx, rr.rdb, []string{roomKey(roomId), connsKey(roomId)}, ttlSec).Err()
}
