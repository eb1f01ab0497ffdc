// Package idgen generates connection and room identifiers.
package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewConnID returns a time-ordered ID for one websocket connection.
func NewConnID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

const roomIDChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomIDLength is the length of IDs returned by NewRoomID.
const RoomIDLength = 7

// NewRoomID returns a short random room ID.
func NewRoomID() (string, error) {
	b := make([]byte, RoomIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = roomIDChars[b[i]%byte(len(roomIDChars))]
	}
	return string(b), nil
}
