package room

import (
	"sync"

	"github.com/rs/zerolog/log"

	"realtime-core/internal/model"
	"realtime-core/internal/stats"
)

// EventBridge mirrors room-scoped broadcasts to other instances. The
// single-instance deployment runs without one; multi-instance
// deployments plug in a pub/sub implementation.
type EventBridge interface {
	Publish(roomID string, msg model.Outbound)
}

// Registry owns the room id -> room mapping. Rooms are created on first
// join and dropped once their member set becomes empty.
type Registry struct {
	limits    Limits
	collector stats.Collector
	bridge    EventBridge

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry. A nil collector disables stats.
func NewRegistry(limits Limits, collector stats.Collector) *Registry {
	if limits.ChatHistoryCap <= 0 {
		limits.ChatHistoryCap = DefaultLimits().ChatHistoryCap
	}
	if limits.UndoDepth <= 0 {
		limits.UndoDepth = DefaultLimits().UndoDepth
	}
	if collector == nil {
		collector = stats.Nop{}
	}
	return &Registry{
		limits:    limits,
		collector: collector,
		rooms:     make(map[string]*Room),
	}
}

// SetBridge installs the instance bridge. Call before serving traffic.
func (reg *Registry) SetBridge(b EventBridge) {
	reg.bridge = b
}

func (reg *Registry) publish(roomID string, msg model.Outbound) {
	if reg.bridge != nil {
		reg.bridge.Publish(roomID, msg)
	}
}

// JoinRoom adds the participant to the room, creating it if absent, and
// returns the current peer list (excluding self) plus the canvas
// snapshot. Joining twice is a no-op returning the same payload.
func (reg *Registry) JoinRoom(p *Participant, roomID string) model.RoomJoinedPayload {
	for {
		r := reg.getOrCreate(roomID)
		if payload, ok := r.join(p); ok {
			return payload
		}
		// Lost the race against a purge; the stale entry is gone or
		// about to be, so retry with a fresh room.
		reg.remove(roomID, r)
	}
}

// LeaveRoom removes the participant from the room. Unknown rooms and
// non-members are no-ops.
func (reg *Registry) LeaveRoom(p *Participant, roomID string) {
	r, ok := reg.lookup(roomID)
	if !ok {
		return
	}
	if r.leave(p) {
		reg.remove(roomID, r)
	}
}

// RoomCount returns the number of active rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// Room returns the live room for id, if any. Mostly useful in tests.
func (reg *Registry) Room(id string) (*Room, bool) {
	return reg.lookup(id)
}

// DeliverRemote fans a frame that originated on another instance out to
// all local members of the room.
func (reg *Registry) DeliverRemote(roomID string, msg model.Outbound) {
	if r, ok := reg.lookup(roomID); ok {
		r.deliver(msg)
	}
}

func (reg *Registry) getOrCreate(roomID string) *Room {
	reg.mu.RLock()
	r, ok := reg.rooms[roomID]
	reg.mu.RUnlock()
	if ok {
		return r
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r, ok := reg.rooms[roomID]; ok {
		return r
	}
	r = newRoom(roomID, reg.limits, reg.publish)
	reg.rooms[roomID] = r
	reg.collector.RoomCreated()
	log.Info().Str("room", roomID).Msg("room created")
	return r
}

func (reg *Registry) lookup(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	return r, ok
}

// remove drops the registry entry only if it still points at the purged
// room, so a newer room under the same id survives.
func (reg *Registry) remove(roomID string, r *Room) {
	reg.mu.Lock()
	if cur, ok := reg.rooms[roomID]; ok && cur == r {
		delete(reg.rooms, roomID)
		reg.collector.RoomPurged()
		log.Info().Str("room", roomID).Msg("room purged")
	}
	reg.mu.Unlock()
}
