package room

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"realtime-core/internal/model"
)

var (
	// ErrRoomNotFound is returned for operations against a room the
	// participant never joined (or that was already purged).
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotInRoom is returned when the sender is not a member.
	ErrNotInRoom = errors.New("not a member of room")
)

const maxChatBody = 2000

// SendChat assigns a server id and timestamp, appends the message to the
// room's bounded history and broadcasts it to every other member.
func (reg *Registry) SendChat(p *Participant, roomID string, payload model.ChatPayload) (model.ChatMessage, error) {
	r, ok := reg.lookup(roomID)
	if !ok {
		return model.ChatMessage{}, ErrRoomNotFound
	}

	msgType := payload.Type
	if msgType == "" {
		msgType = "text"
	}
	body := payload.Body
	if len(body) > maxChatBody {
		// Back off to a rune boundary so the cut never leaves a
		// partial UTF-8 sequence.
		cut := maxChatBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  p.ID,
		Sender:    p.Name,
		Body:      body,
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
	return msg, r.appendChat(p, msg)
}

// ShareFile is the file-share chat variant; it follows the same history
// and eviction rules as a plain message.
func (reg *Registry) ShareFile(p *Participant, roomID string, payload model.FileSharePayload) (model.ChatMessage, error) {
	r, ok := reg.lookup(roomID)
	if !ok {
		return model.ChatMessage{}, ErrRoomNotFound
	}

	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  p.ID,
		Sender:    p.Name,
		Type:      "file",
		FileMeta:  payload.FileMeta,
		Timestamp: time.Now().UTC(),
	}
	return msg, r.appendChat(p, msg)
}

// SetTyping updates the room's typing set and tells the other members.
func (reg *Registry) SetTyping(p *Participant, roomID string, isTyping bool) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	if isTyping {
		r.typing[p.ID] = struct{}{}
	} else {
		delete(r.typing, p.ID)
	}
	r.fanout(r.othersLocked(p.ID), model.Outbound{
		Type:    model.TypeTypingUpdate,
		RoomID:  r.ID,
		Payload: model.TypingUpdatePayload{ParticipantID: p.ID, IsTyping: isTyping},
	})
	return nil
}

// React broadcasts a reaction to the other members. Reactions are never
// written into the chat history.
func (reg *Registry) React(p *Participant, roomID string, payload model.ReactionPayload) error {
	r, ok := reg.lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(p.ID) {
		return ErrNotInRoom
	}
	r.fanout(r.othersLocked(p.ID), model.Outbound{
		Type:    model.TypeMessageReaction,
		RoomID:  r.ID,
		Payload: model.ReactionEvent{MessageID: payload.MessageID, Reaction: payload.Reaction, SenderID: p.ID},
	})
	return nil
}

// ChatHistory snapshots the room's current history, oldest first.
func (reg *Registry) ChatHistory(roomID string) []model.ChatMessage {
	r, ok := reg.lookup(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatMessage, 0, r.history.Len())
	for i := 0; i < r.history.Len(); i++ {
		out = append(out, r.history.At(i))
	}
	return out
}

func (r *Room) appendChat(sender *Participant, msg model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isMemberLocked(sender.ID) {
		return ErrNotInRoom
	}
	if r.history.Len() >= r.limits.ChatHistoryCap {
		r.history.PopFront()
	}
	r.history.PushBack(msg)
	r.fanout(r.othersLocked(sender.ID), model.Outbound{
		Type:    model.TypeChatMessage,
		RoomID:  r.ID,
		Payload: msg,
	})
	return nil
}
