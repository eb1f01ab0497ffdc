package broadcast

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	roomId  string
	payload string
}

type recordingDeliverer struct {
	mu   sync.Mutex
	got  []delivery
	seen chan struct{}
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{seen: make(chan struct{}, 16)}
}

func (d *recordingDeliverer) DeliverLocal(roomId string, payload []byte) {
	d.mu.Lock()
	d.got = append(d.got, delivery{roomId: roomId, payload: string(payload)})
	d.mu.Unlock()
	d.seen <- struct{}{}
}

func (d *recordingDeliverer) All() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.got...)
}

func envelope(t *testing.T, origin, roomId, payload string) string {
	t.Helper()
	b, err := json.Marshal(Envelope{Origin: origin, RoomId: roomId, Payload: json.RawMessage(payload)})
	require.NoError(t, err)
	return string(b)
}

func TestRedisRelay_Handle(t *testing.T) {
	r := NewRedisRelay(nil, "self")
	msg := `{"user":"Al","text":"hi","timestamp":"2024-05-01T12:00:00.000Z"}`

	tests := []struct {
		name    string
		channel string
		raw     string
		want    []delivery
	}{
		{
			name:    "from another instance",
			channel: channel("r1"),
			raw:     envelope(t, "other", "r1", msg),
			want:    []delivery{{roomId: "r1", payload: msg}},
		},
		{
			name:    "own message is skipped",
			channel: channel("r1"),
			raw:     envelope(t, "self", "r1", msg),
		},
		{
			name:    "room mismatch is dropped",
			channel: channel("r2"),
			raw:     envelope(t, "other", "r1", msg),
		},
		{
			name:    "bad envelope is dropped",
			channel: channel("r1"),
			raw:     `{"origin":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newRecordingDeliverer()
			r.handle(tt.channel, tt.raw, d)
			require.Equal(t, tt.want, d.All())
		})
	}
}

func TestNopPublisher(t *testing.T) {
	require.NoError(t, NopPublisher{}.Publish(context.Background(), "r1", []byte(`{}`)))
}

// Runs only when a Redis instance is available.
func TestRedisRelay_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := NewRedisRelay(rdb, uuid.NewString())
	receiver := NewRedisRelay(rdb, uuid.NewString())
	d := newRecordingDeliverer()
	go receiver.Run(ctx, d)

	room := "relay-" + uuid.NewString()
	payload := `{"user":"Al","text":"hi","timestamp":"2024-05-01T12:00:00.000Z"}`
	require.Eventually(t, func() bool {
		require.NoError(t, sender.Publish(ctx, room, []byte(payload)))
		select {
		case <-d.seen:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, delivery{roomId: room, payload: payload}, d.All()[0])
}
