package idgen

import (
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewConnID_Monotonic(t *testing.T) {
	prev := NewConnID()
	for i := 0; i < 100; i++ {
		next := NewConnID()
		_, err := ulid.ParseStrict(next)
		require.NoError(t, err)
		require.Greater(t, next, prev)
		prev = next
	}
}

func TestNewRoomID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := NewRoomID()
		require.NoError(t, err)
		require.Len(t, id, RoomIDLength)
		for _, r := range id {
			require.True(t, strings.ContainsRune(roomIDChars, r), "unexpected rune %q", r)
		}
		seen[id] = true
	}
	require.Greater(t, len(seen), 1)
}
