package repo

import (
	"context"
	"sync"
	"time"

	"github.com/bytetube/bytetube-chat/internal/models"
)

// MemoryRoomRepo keeps the registry in process. Used when Redis is not configured.
type MemoryRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*memoryRoom
	now   func() time.Time
}

type memoryRoom struct {
	room      models.Room
	conns     map[string]struct{}
	expiresAt time.Time
}

func NewMemoryRoomRepo() *MemoryRoomRepo {
	return &MemoryRoomRepo{rooms: make(map[string]*memoryRoom), now: time.Now}
}

// live returns the room entry, dropping it if it has expired. Caller holds mu.
func (mr *MemoryRoomRepo) live(roomId string) (*memoryRoom, bool) {
	r, ok := mr.rooms[roomId]
	if !ok {
		return nil, false
	}
	if !mr.now().Before(r.expiresAt) {
		delete(mr.rooms, roomId)
		return nil, false
	}
	return r, true
}

func (mr *MemoryRoomRepo) CreateRoom(_ context.Context, room models.Room, ttlSec int) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if _, ok := mr.live(room.RoomId); ok {
		return ErrRoomExists
	}
	mr.rooms[room.RoomId] = &memoryRoom{
		room:      room,
		conns:     make(map[string]struct{}),
		expiresAt: mr.now().Add(sec(ttlSec)),
	}
	return nil
}

func (mr *MemoryRoomRepo) GetRoom(_ context.Context, roomId string) (models.Room, bool, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	r, ok := mr.live(roomId)
	if !ok {
		return models.Room{}, false, nil
	}
	return r.room, true, nil
}

func (mr *MemoryRoomRepo) ExistsRoom(_ context.Context, roomId string) (bool, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	_, ok := mr.live(roomId)
	return ok, nil
}

func (mr *MemoryRoomRepo) AddConnection(_ context.Context, room models.Room, connId string, ttlSec int) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	r, ok := mr.live(room.RoomId)
	if !ok {
		r = &memoryRoom{room: room, conns: make(map[string]struct{})}
		mr.rooms[room.RoomId] = r
	}
	r.conns[connId] = struct{}{}
	r.expiresAt = mr.now().Add(sec(ttlSec))
	return nil
}

func (mr *MemoryRoomRepo) RemoveConnection(_ context.Context, roomId, connId string) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if r, ok := mr.live(roomId); ok {
		delete(r.conns, connId)
	}
	return nil
}

func (mr *MemoryRoomRepo) CountConnections(_ context.Context, roomId string) (int64, error) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	r, ok := mr.live(roomId)
	if !ok {
		return 0, nil
	}
	return int64(len(r.conns)), nil
}

func (mr *MemoryRoomRepo) TouchRoom(_ context.Context, roomId string, ttlSec int) error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if r, ok := mr.live(roomId); ok {
		r.expiresAt = mr.now().Add(sec(ttlSec))
	}
	return nil
}
