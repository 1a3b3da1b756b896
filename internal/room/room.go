package room

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/samber/lo"

	"realtime-core/internal/model"
)

// Limits bounds the per-room state.
type Limits struct {
	ChatHistoryCap int
	UndoDepth      int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{ChatHistoryCap: 100, UndoDepth: 50}
}

// Room owns every piece of mutable state shared by its members: the
// member set, typing set, chat history and whiteboard. A single mutex
// serializes all mutations so concurrent operations within one room are
// strictly ordered while different rooms never contend.
type Room struct {
	ID        string
	CreatedAt time.Time

	limits  Limits
	publish func(roomID string, msg model.Outbound)

	mu      sync.Mutex
	closed  bool
	members map[string]*Participant
	typing  map[string]struct{}
	history deque.Deque[model.ChatMessage]
	canvas  model.Canvas
	undo    deque.Deque[model.Canvas]
	redo    deque.Deque[model.Canvas]
}

func newRoom(id string, limits Limits, publish func(string, model.Outbound)) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		limits:    limits,
		publish:   publish,
		members:   make(map[string]*Participant),
		typing:    make(map[string]struct{}),
	}
}

// join adds the participant. Joining twice is a no-op returning the same
// peer list. ok is false when the room was purged concurrently and the
// caller must retry against a fresh room.
func (r *Room) join(p *Participant) (payload model.RoomJoinedPayload, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return model.RoomJoinedPayload{}, false
	}

	if _, already := r.members[p.ID]; !already {
		r.members[p.ID] = p
		p.trackJoin(r.ID)
		r.fanout(r.othersLocked(p.ID), model.Outbound{
			Type:    model.TypeUserJoined,
			RoomID:  r.ID,
			Payload: model.UserJoinedPayload{ParticipantID: p.ID, Name: p.Name},
		})
	}
	return model.RoomJoinedPayload{
		RoomID: r.ID,
		Peers:  r.peersLocked(p.ID),
		Canvas: r.canvas.Clone(),
	}, true
}

// leave removes the participant. Not a member is a no-op. empty reports
// whether the room purged itself and should be dropped from the registry.
func (r *Room) leave(p *Participant) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[p.ID]; !member {
		return false
	}
	delete(r.members, p.ID)
	delete(r.typing, p.ID)
	p.trackLeave(r.ID)
	r.fanout(r.othersLocked(p.ID), model.Outbound{
		Type:    model.TypeUserLeft,
		RoomID:  r.ID,
		Payload: model.UserLeftPayload{ParticipantID: p.ID},
	})
	return r.purgeIfEmptyLocked()
}

// disconnect is the teardown variant of leave: it also clears the typing
// entry and tells the remaining members typing stopped, so a vanished
// participant never lingers in any typing set.
func (r *Room) disconnect(p *Participant) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, member := r.members[p.ID]; !member {
		return false
	}
	_, wasTyping := r.typing[p.ID]
	delete(r.typing, p.ID)
	delete(r.members, p.ID)
	p.trackLeave(r.ID)
	remaining := r.othersLocked(p.ID)

	if wasTyping {
		r.fanout(remaining, model.Outbound{
			Type:    model.TypeTypingUpdate,
			RoomID:  r.ID,
			Payload: model.TypingUpdatePayload{ParticipantID: p.ID, IsTyping: false},
		})
	}
	r.fanout(remaining, model.Outbound{
		Type:    model.TypeUserLeft,
		RoomID:  r.ID,
		Payload: model.UserLeftPayload{ParticipantID: p.ID},
	})
	return r.purgeIfEmptyLocked()
}

// purgeIfEmptyLocked drops all room state once the last member is gone.
// The closed flag makes a concurrent join retry against a fresh room.
func (r *Room) purgeIfEmptyLocked() bool {
	if len(r.members) > 0 {
		return false
	}
	r.closed = true
	r.typing = make(map[string]struct{})
	r.history.Clear()
	r.canvas = nil
	r.undo.Clear()
	r.redo.Clear()
	return true
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// TypingIDs snapshots the participant ids currently typing.
func (r *Room) TypingIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Keys(r.typing)
}

func (r *Room) isMemberLocked(id string) bool {
	_, ok := r.members[id]
	return ok
}

func (r *Room) peersLocked(exceptID string) []model.PeerInfo {
	return lo.FilterMap(lo.Values(r.members), func(m *Participant, _ int) (model.PeerInfo, bool) {
		return m.peerInfo(), m.ID != exceptID
	})
}

func (r *Room) othersLocked(exceptID string) []*Participant {
	return lo.Filter(lo.Values(r.members), func(m *Participant, _ int) bool {
		return m.ID != exceptID
	})
}

func (r *Room) allLocked() []*Participant {
	return lo.Values(r.members)
}

// fanout delivers a room-scoped event to the given members and mirrors
// it to the instance bridge. Callers hold r.mu; sinks never block, so
// fanning out under the lock keeps every recipient's delivery order
// aligned with the room's mutation order, even across senders.
func (r *Room) fanout(to []*Participant, msg model.Outbound) {
	for _, m := range to {
		m.Send(msg)
	}
	if r.publish != nil {
		r.publish(r.ID, msg)
	}
}

// deliver sends a frame that originated on another instance to every
// local member. It must not be mirrored back to the bridge.
func (r *Room) deliver(msg model.Outbound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.allLocked() {
		m.Send(msg)
	}
}
