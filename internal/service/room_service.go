// Package service holds the room registry logic used by the HTTP and
// websocket handlers.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/bytetube/bytetube-chat/internal/idgen"
	"github.com/bytetube/bytetube-chat/internal/models"
	"github.com/bytetube/bytetube-chat/internal/repo"
)

// RoomService tracks live rooms and their connections.
type RoomService struct {
	repo   repo.RoomRepo
	idg    IDGenerator
	ttlSec int
}

// IDGenerator produces room IDs.
type IDGenerator interface {
	New() (string, error)
}

type roomIDGen struct{}

func (roomIDGen) New() (string, error) { return idgen.NewRoomID() }

// NewRoomIDGenerator returns the default random room ID generator.
func NewRoomIDGenerator() IDGenerator {
	return roomIDGen{}
}

func NewRoomService(r repo.RoomRepo, idg IDGenerator, ttlSec int) *RoomService {
	return &RoomService{repo: r, idg: idg, ttlSec: ttlSec}
}

// Create registers a new room under a fresh ID, retrying on collisions.
func (s *RoomService) Create(ctx context.Context) (string, error) {
	const maxRetries = 10

	for i := 0; i < maxRetries; i++ {
		roomId, err := s.idg.New()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.ExistsRoom(ctx, roomId)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}

		room := models.Room{RoomId: roomId, CreatedAt: time.Now().Unix()}
		err = s.repo.CreateRoom(ctx, room, s.ttlSec)
		if errors.Is(err, repo.ErrRoomExists) {
			// lost a race with another creator
			continue
		}
		if err != nil {
			return "", err
		}
		return roomId, nil
	}
	return "", ErrRoomIDGenerationFailed
}

// Get returns the room and the number of attached connections.
func (s *RoomService) Get(ctx context.Context, roomId string) (models.Room, int64, error) {
	r, ok, err := s.repo.GetRoom(ctx, roomId)
	if err != nil {
		return models.Room{}, 0, err
	}
	if !ok {
		return models.Room{}, 0, ErrRoomNotFound
	}
	n, err := s.repo.CountConnections(ctx, roomId)
	if err != nil {
		return models.Room{}, 0, err
	}
	return r, n, nil
}

// Attach records a websocket connection in a room, registering the room on first use.
func (s *RoomService) Attach(ctx context.Context, roomId, connId string) error {
	room := models.Room{RoomId: roomId, CreatedAt: time.Now().Unix()}
	return s.repo.AddConnection(ctx, room, connId, s.ttlSec)
}

// Detach removes a websocket connection from a room.
func (s *RoomService) Detach(ctx context.Context, roomId, connId string) error {
	return s.repo.RemoveConnection(ctx, roomId, connId)
}

// Touch extends the room's TTL.
func (s *RoomService) Touch(ctx context.Context, roomId string) error {
	exists, err := s.repo.ExistsRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}
	return s.repo.TouchRoom(ctx, roomId, s.ttlSec)
}
