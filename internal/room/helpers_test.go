package room

import (
	"sync"

	"github.com/google/uuid"

	"realtime-core/internal/model"
)

// fakeSink records every frame delivered to a participant.
type fakeSink struct {
	mu   sync.Mutex
	msgs []model.Outbound
}

func (s *fakeSink) Send(msg model.Outbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return true
}

func (s *fakeSink) all() []model.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Outbound, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *fakeSink) byType(t model.MessageType) []model.Outbound {
	var out []model.Outbound
	for _, m := range s.all() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeSink) count(t model.MessageType) int {
	return len(s.byType(t))
}

func newTestParticipant(name string) (*Participant, *fakeSink) {
	sink := &fakeSink{}
	p := NewParticipant(uuid.NewString(), "user-"+name, name, sink)
	return p, sink
}
