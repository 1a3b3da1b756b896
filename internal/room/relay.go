package room

import (
	"errors"

	"realtime-core/internal/model"
)

// ErrTargetNotConnected reports a relay whose target is not a connected
// member of the room. Non-fatal: the sender is told and WebRTC clients
// renegotiate on their own.
var ErrTargetNotConnected = errors.New("target participant not connected")

var relayEventTypes = map[model.MessageType]model.MessageType{
	model.TypeRTCOffer:     model.TypeOffer,
	model.TypeRTCAnswer:    model.TypeAnswer,
	model.TypeICECandidate: model.TypeCandidate,
}

// Relay forwards a negotiation payload from the sender to the named
// target, point-to-point. The payload is passed through untouched apart
// from tagging the sender id. A disconnected target fails fast; nothing
// is ever delivered to a third party.
func (reg *Registry) Relay(p *Participant, roomID string, kind model.MessageType, payload model.SignalPayload) error {
	outType, ok := relayEventTypes[kind]
	if !ok {
		return ErrRoomNotFound
	}
	r, found := reg.lookup(roomID)
	if !found {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	if !r.isMemberLocked(p.ID) {
		r.mu.Unlock()
		return ErrNotInRoom
	}
	target, connected := r.members[payload.TargetID]
	r.mu.Unlock()

	if !connected {
		reg.collector.RelayMiss()
		return ErrTargetNotConnected
	}

	target.Send(model.Outbound{
		Type:   outType,
		RoomID: roomID,
		Payload: model.SignalEvent{
			SenderID:  p.ID,
			SDP:       payload.SDP,
			Candidate: payload.Candidate,
		},
	})
	return nil
}
