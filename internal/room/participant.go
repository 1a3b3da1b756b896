package room

import (
	"sync"

	"github.com/samber/lo"

	"realtime-core/internal/model"
)

// Sink delivers outbound frames to one connected participant.
// Implementations must never block; a full transport buffer drops the
// frame and reports false.
type Sink interface {
	Send(msg model.Outbound) bool
}

// Participant is one authenticated connection. It is created by the
// gateway after token validation and destroyed on disconnect.
type Participant struct {
	ID     string // connection id, unique per socket
	UserID string
	Name   string

	sink Sink

	mu    sync.Mutex
	rooms map[string]struct{}
}

// NewParticipant binds an identity to an outbound sink.
func NewParticipant(id, userID, name string, sink Sink) *Participant {
	return &Participant{
		ID:     id,
		UserID: userID,
		Name:   name,
		sink:   sink,
		rooms:  make(map[string]struct{}),
	}
}

// Send forwards a frame to the participant's transport.
func (p *Participant) Send(msg model.Outbound) bool {
	return p.sink.Send(msg)
}

// Rooms snapshots the ids of the rooms the participant is joined to.
func (p *Participant) Rooms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Keys(p.rooms)
}

func (p *Participant) trackJoin(roomID string) {
	p.mu.Lock()
	p.rooms[roomID] = struct{}{}
	p.mu.Unlock()
}

func (p *Participant) trackLeave(roomID string) {
	p.mu.Lock()
	delete(p.rooms, roomID)
	p.mu.Unlock()
}

func (p *Participant) peerInfo() model.PeerInfo {
	return model.PeerInfo{ParticipantID: p.ID, UserID: p.UserID, Name: p.Name}
}
