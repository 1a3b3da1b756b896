// Package bridge carries room broadcasts between instances over Redis
// pub/sub so a room's members can be spread across processes.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"realtime-core/internal/model"
)

const channel = "room-events"

// DeliverFunc hands a remotely-originated frame to the local registry.
type DeliverFunc func(roomID string, msg model.Outbound)

// RedisBridge publishes every room broadcast and replays broadcasts from
// other instances into local rooms. Frames carry the origin instance id
// so an instance never replays its own events.
type RedisBridge struct {
	client     *redis.Client
	instanceID string
	deliver    DeliverFunc
}

type wireEvent struct {
	Origin  string            `json:"origin"`
	RoomID  string            `json:"roomId"`
	Type    model.MessageType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// NewRedis creates a bridge over the given client.
func NewRedis(client *redis.Client, deliver DeliverFunc) *RedisBridge {
	return &RedisBridge{
		client:     client,
		instanceID: uuid.NewString(),
		deliver:    deliver,
	}
}

// Publish mirrors a local room broadcast to the other instances.
// Best-effort: a publish failure is logged and the local fanout stands.
func (b *RedisBridge) Publish(roomID string, msg model.Outbound) {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("bridge payload marshal failed")
		return
	}
	data, err := json.Marshal(wireEvent{
		Origin:  b.instanceID,
		RoomID:  roomID,
		Type:    msg.Type,
		Payload: payload,
	})
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("bridge event marshal failed")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("bridge publish failed")
		}
	}()
}

// Run subscribes and replays remote events until the context ends.
func (b *RedisBridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			b.handle(m.Payload)
		}
	}
}

func (b *RedisBridge) handle(raw string) {
	var ev wireEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		log.Warn().Err(err).Msg("bridge received malformed event")
		return
	}
	if ev.Origin == b.instanceID {
		return
	}
	b.deliver(ev.RoomID, model.Outbound{
		Type:    ev.Type,
		RoomID:  ev.RoomID,
		Payload: ev.Payload,
	})
}
