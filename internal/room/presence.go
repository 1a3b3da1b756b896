package room

import "github.com/rs/zerolog/log"

// DisconnectAll detaches the participant from every room and every
// typing set it belonged to. Each affected room's remaining members get
// exactly one user-left and, when the participant was typing, one
// typing-update{false}. Per-room locks make the teardown atomic with
// respect to concurrent joins and leaves on the same rooms.
func (reg *Registry) DisconnectAll(p *Participant) {
	rooms := p.Rooms()
	for _, roomID := range rooms {
		r, ok := reg.lookup(roomID)
		if !ok {
			continue
		}
		if r.disconnect(p) {
			reg.remove(roomID, r)
		}
	}
	if len(rooms) > 0 {
		log.Debug().Str("participant", p.ID).Int("rooms", len(rooms)).Msg("participant detached")
	}
}
