// Package broadcast relays room messages between server instances so that
// clients of the same room connected to different instances see each other.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat:room:"

// Deliverer hands a relayed payload to the local clients of a room.
type Deliverer interface {
	DeliverLocal(roomId string, payload []byte)
}

// Publisher sends a room payload to the other instances.
type Publisher interface {
	Publish(ctx context.Context, roomId string, payload []byte) error
}

// Envelope is the pub/sub wire form.
type Envelope struct {
	Origin  string          `json:"origin"` // instance that accepted the message
	RoomId  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

// NopPublisher is used when no relay is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

// RedisRelay publishes and consumes room payloads over Redis pub/sub.
type RedisRelay struct {
	rdb        *redis.Client
	instanceID string
}

func NewRedisRelay(rdb *redis.Client, instanceID string) *RedisRelay {
	return &RedisRelay{rdb: rdb, instanceID: instanceID}
}

func channel(roomId string) string {
	return channelPrefix + roomId
}

// Publish sends payload to every other instance.
func (r *RedisRelay) Publish(ctx context.Context, roomId string, payload []byte) error {
	b, err := json.Marshal(Envelope{Origin: r.instanceID, RoomId: roomId, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode relay envelope: %w", err)
	}
	return r.rdb.Publish(ctx, channel(roomId), b).Err()
}

// Run consumes relayed payloads until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, d Deliverer) {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	log.Printf("[relay] instance %s subscribed to %s*", r.instanceID, channelPrefix)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("[relay] shutting down")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Channel, msg.Payload, d)
		}
	}
}

// handle delivers one relayed message, skipping the ones this instance published.
func (r *RedisRelay) handle(ch, raw string, d Deliverer) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		log.Printf("[relay] bad envelope on %s: %v", ch, err)
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	if env.RoomId != strings.TrimPrefix(ch, channelPrefix) {
		log.Printf("[relay] room mismatch on %s: %s", ch, env.RoomId)
		return
	}
	d.DeliverLocal(env.RoomId, env.Payload)
}
