// Package repo stores the room registry: which rooms exist and which
// connections are currently attached to them.
package repo

import (
	"context"
	"errors"

	"github.com/bytetube/bytetube-chat/internal/models"
)

var ErrRoomExists = errors.New("room already exists")

type RoomRepo interface {
	CreateRoom(ctx context.Context, room models.Room, ttlSec int) error
	GetRoom(ctx context.Context, roomId string) (models.Room, bool, error)
	ExistsRoom(ctx context.Context, roomId string) (bool, error)

	// AddConnection attaches connId to the room, registering the room if needed.
	AddConnection(ctx context.Context, room models.Room, connId string, ttlSec int) error
	RemoveConnection(ctx context.Context, roomId, connId string) error
	CountConnections(ctx context.Context, roomId string) (int64, error)

	TouchRoom(ctx context.Context, roomId string, ttlSec int) error
}
