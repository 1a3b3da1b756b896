package handler

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"realtime-core/internal/auth"
	"realtime-core/internal/config"
	"realtime-core/internal/model"
	"realtime-core/internal/room"
)

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
	for _, msg := range s.all() {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

func newTestGateway() (*SessionGateway, *room.Registry) {
	reg := room.NewRegistry(room.DefaultLimits(), nil)
	return NewSessionGateway(reg, nil, config.WebSocketConfig{}, nil), reg
}

func newSinkedParticipant(name string) (*room.Participant, *fakeSink) {
	sink := &fakeSink{}
	return room.NewParticipant("pid-"+name, "uid-"+name, name, sink), sink
}

func frame(t *testing.T, typ model.MessageType, roomID string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(model.Envelope{Type: typ, RoomID: roomID, Payload: raw})
	require.NoError(t, err)
	return data
}

func TestDispatch_JoinRoomRepliesWithRoomJoined(t *testing.T) {
	req := require.New(t)
	g, reg := newTestGateway()
	p, sink := newSinkedParticipant("alice")

	g.dispatch(p, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	req.Equal(1, reg.RoomCount())
	joined := sink.byType(model.TypeRoomJoined)
	req.Len(joined, 1)
	payload, ok := joined[0].Payload.(model.RoomJoinedPayload)
	req.True(ok)
	req.Equal(p.ID, payload.SelfID)
	req.Equal("abc", payload.RoomID)
	req.Empty(payload.Peers)
}

func TestDispatch_JoinRoomWithoutRoomIDIsRejected(t *testing.T) {
	req := require.New(t)
	g, reg := newTestGateway()
	p, sink := newSinkedParticipant("alice")

	g.dispatch(p, frame(t, model.TypeJoinRoom, "", struct{}{}))

	req.Equal(0, reg.RoomCount())
	req.Len(sink.byType(model.TypeError), 1)
}

func TestDispatch_MalformedFrameIsDroppedSilently(t *testing.T) {
	req := require.New(t)
	g, reg := newTestGateway()
	p, sink := newSinkedParticipant("alice")

	g.dispatch(p, []byte("{not json"))

	req.Equal(0, reg.RoomCount())
	req.Empty(sink.all())
}

func TestDispatch_UnknownTypeIsDropped(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	p, sink := newSinkedParticipant("alice")

	g.dispatch(p, frame(t, "shutdown-server", "abc", struct{}{}))

	req.Empty(sink.all())
}

func TestDispatch_ChatToUnjoinedRoomReturnsError(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	p, sink := newSinkedParticipant("alice")

	g.dispatch(p, frame(t, model.TypeChatMessage, "abc", model.ChatPayload{Body: "hi"}))

	errs := sink.byType(model.TypeError)
	req.Len(errs, 1)
	req.Equal(model.ErrorPayload{Message: room.ErrRoomNotFound.Error()}, errs[0].Payload)
}

func TestDispatch_ChatReachesOtherMembers(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	alice, aliceSink := newSinkedParticipant("alice")
	bob, bobSink := newSinkedParticipant("bob")
	g.dispatch(alice, frame(t, model.TypeJoinRoom, "abc", struct{}{}))
	g.dispatch(bob, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(alice, frame(t, model.TypeChatMessage, "abc", model.ChatPayload{Body: "hi"}))

	delivered := bobSink.byType(model.TypeChatMessage)
	req.Len(delivered, 1)
	msg, ok := delivered[0].Payload.(model.ChatMessage)
	req.True(ok)
	req.Equal("hi", msg.Body)
	req.Equal(alice.ID, msg.SenderID)
	req.Empty(aliceSink.byType(model.TypeChatMessage))
}

func TestDispatch_EmptyChatBodyIsDropped(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	p, sink := newSinkedParticipant("alice")
	g.dispatch(p, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(p, frame(t, model.TypeChatMessage, "abc", model.ChatPayload{Body: ""}))

	req.Empty(sink.byType(model.TypeError))
	req.Empty(sink.byType(model.TypeChatMessage))
}

func TestDispatch_SignalToAbsentTargetReturnsError(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	p, sink := newSinkedParticipant("alice")
	g.dispatch(p, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(p, frame(t, model.TypeRTCOffer, "abc", model.SignalPayload{
		TargetID: "nobody",
		SDP:      "v=0",
	}))

	errs := sink.byType(model.TypeError)
	req.Len(errs, 1)
	req.Equal(model.ErrorPayload{Message: room.ErrTargetNotConnected.Error()}, errs[0].Payload)
}

func TestDispatch_SignalWithoutTargetIsDropped(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	p, sink := newSinkedParticipant("alice")
	g.dispatch(p, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(p, frame(t, model.TypeRTCOffer, "abc", model.SignalPayload{}))

	req.Empty(sink.byType(model.TypeError))
}

func TestDispatch_OfferIsRelayedToTargetOnly(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()
	alice, _ := newSinkedParticipant("alice")
	bob, bobSink := newSinkedParticipant("bob")
	g.dispatch(alice, frame(t, model.TypeJoinRoom, "abc", struct{}{}))
	g.dispatch(bob, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(alice, frame(t, model.TypeRTCOffer, "abc", model.SignalPayload{
		TargetID: bob.ID,
		SDP:      "v=0 offer",
	}))

	offers := bobSink.byType(model.TypeOffer)
	req.Len(offers, 1)
	event, ok := offers[0].Payload.(model.SignalEvent)
	req.True(ok)
	req.Equal(alice.ID, event.SenderID)
	req.Equal("v=0 offer", event.SDP)
}

func TestDispatch_DrawAndUndoRoundTrip(t *testing.T) {
	req := require.New(t)
	g, reg := newTestGateway()
	alice, _ := newSinkedParticipant("alice")
	bob, bobSink := newSinkedParticipant("bob")
	g.dispatch(alice, frame(t, model.TypeJoinRoom, "abc", struct{}{}))
	g.dispatch(bob, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(alice, frame(t, model.TypeWhiteboardDraw, "abc", model.DrawPayload{
		Op: json.RawMessage(`{"tool":"pen","points":[1,2]}`),
	}))
	req.Len(reg.Canvas("abc"), 1)
	req.Len(bobSink.byType(model.TypeWhiteboardDraw), 1)

	g.dispatch(alice, frame(t, model.TypeWhiteboardUndo, "abc", struct{}{}))
	req.Empty(reg.Canvas("abc"))
	req.Len(bobSink.byType(model.TypeWhiteboardState), 1)
}

func TestDispatch_LeaveRoomNotifiesRemainingMembers(t *testing.T) {
	req := require.New(t)
	g, reg := newTestGateway()
	alice, _ := newSinkedParticipant("alice")
	bob, bobSink := newSinkedParticipant("bob")
	g.dispatch(alice, frame(t, model.TypeJoinRoom, "abc", struct{}{}))
	g.dispatch(bob, frame(t, model.TypeJoinRoom, "abc", struct{}{}))

	g.dispatch(alice, frame(t, model.TypeLeaveRoom, "abc", struct{}{}))

	left := bobSink.byType(model.TypeUserLeft)
	req.Len(left, 1)
	req.Equal(model.UserLeftPayload{ParticipantID: alice.ID}, left[0].Payload)
	r, ok := reg.Room("abc")
	req.True(ok)
	req.Equal(1, r.MemberCount())
}

func TestAuthenticate_EmptyTokenIsRejected(t *testing.T) {
	req := require.New(t)
	g, _ := newTestGateway()

	_, err := g.authenticate("")
	req.ErrorIs(err, auth.ErrInvalidToken)
}
