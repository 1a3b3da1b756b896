package model

import (
	"encoding/json"
	"time"
)

// MessageType discriminates every envelope exchanged over a session
// connection, in both directions.
type MessageType string

// Inbound message types (client -> server).
const (
	TypeJoinRoom        MessageType = "join-room"
	TypeLeaveRoom       MessageType = "leave-room"
	TypeRTCOffer        MessageType = "rtc-offer"
	TypeRTCAnswer       MessageType = "rtc-answer"
	TypeICECandidate    MessageType = "ice-candidate"
	TypeChatMessage     MessageType = "chat-message"
	TypeTyping          MessageType = "typing"
	TypeFileShare       MessageType = "file-share"
	TypeMessageReaction MessageType = "message-reaction"
	TypeWhiteboardDraw  MessageType = "whiteboard-draw"
	TypeWhiteboardClear MessageType = "whiteboard-clear"
	TypeWhiteboardUndo  MessageType = "whiteboard-undo"
	TypeWhiteboardRedo  MessageType = "whiteboard-redo"
)

// Outbound message types (server -> client).
const (
	TypeUserJoined      MessageType = "user-joined"
	TypeUserLeft        MessageType = "user-left"
	TypeRoomJoined      MessageType = "room-joined"
	TypeTypingUpdate    MessageType = "typing-update"
	TypeOffer           MessageType = "offer"
	TypeAnswer          MessageType = "answer"
	TypeCandidate       MessageType = "ice-candidate"
	TypeWhiteboardState MessageType = "whiteboard-state"
	TypeError           MessageType = "error"
)

// Envelope is the client -> server frame. Payload stays raw until the
// type switch picks the concrete shape.
type Envelope struct {
	Type    MessageType     `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is the server -> client frame.
type Outbound struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"roomId,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// Canvas is the whiteboard content as an ordered op log. Ops are opaque
// to the server.
type Canvas []json.RawMessage

// Clone returns an independent copy; the raw ops themselves are never
// mutated so sharing them is safe.
func (c Canvas) Clone() Canvas {
	if c == nil {
		return nil
	}
	out := make(Canvas, len(c))
	copy(out, c)
	return out
}

// ---- inbound payloads ----

// SignalPayload carries an offer, answer or ICE candidate addressed to a
// single peer. The SDP/candidate content is opaque to the core.
type SignalPayload struct {
	TargetID  string          `json:"targetId"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// ChatPayload is the body of a chat-message frame.
type ChatPayload struct {
	Body string `json:"body"`
	Type string `json:"type,omitempty"`
}

// TypingPayload toggles the sender's typing indicator.
type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

// FileSharePayload announces a shared file. FileMeta is opaque.
type FileSharePayload struct {
	FileMeta json.RawMessage `json:"fileMeta"`
}

// ReactionPayload attaches a reaction to an earlier chat message.
type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// DrawPayload carries one whiteboard operation.
type DrawPayload struct {
	Op json.RawMessage `json:"op"`
}

// ---- outbound payloads ----

// PeerInfo describes one room member to a joining peer.
type PeerInfo struct {
	ParticipantID string `json:"participantId"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
}

// RoomJoinedPayload is the join reply: current peers (excluding the
// joiner) and the current canvas so a late joiner converges.
type RoomJoinedPayload struct {
	RoomID string     `json:"roomId"`
	SelfID string     `json:"selfId,omitempty"`
	Peers  []PeerInfo `json:"peers"`
	Canvas Canvas     `json:"canvas"`
}

// UserJoinedPayload notifies existing members of a new peer.
type UserJoinedPayload struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
}

// UserLeftPayload notifies remaining members of a departed peer.
type UserLeftPayload struct {
	ParticipantID string `json:"participantId"`
}

// ChatMessage is a stored and broadcast chat entry. FileMeta is set only
// for file-share variants.
type ChatMessage struct {
	ID        string          `json:"id"`
	SenderID  string          `json:"senderId"`
	Sender    string          `json:"sender"`
	Body      string          `json:"body,omitempty"`
	Type      string          `json:"type"`
	FileMeta  json.RawMessage `json:"fileMeta,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// TypingUpdatePayload broadcasts a typing state change.
type TypingUpdatePayload struct {
	ParticipantID string `json:"participantId"`
	IsTyping      bool   `json:"isTyping"`
}

// ReactionEvent is the broadcast form of a reaction; never persisted.
type ReactionEvent struct {
	MessageID string `json:"messageId"`
	Reaction  string `json:"reaction"`
	SenderID  string `json:"senderId"`
}

// SignalEvent is the unicast form of a relayed negotiation payload with
// the sender id attached.
type SignalEvent struct {
	SenderID  string          `json:"senderId"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// DrawEvent is the broadcast form of a whiteboard operation.
type DrawEvent struct {
	SenderID string          `json:"senderId"`
	Op       json.RawMessage `json:"op"`
}

// WhiteboardStatePayload carries the full canvas after undo/redo so all
// clients converge deterministically.
type WhiteboardStatePayload struct {
	Canvas Canvas `json:"canvas"`
}

// ErrorPayload surfaces a recoverable error to the client.
type ErrorPayload struct {
	Message string `json:"message"`
}
