package handler

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"realtime-core/internal/auth"
	"realtime-core/internal/config"
	"realtime-core/internal/model"
	"realtime-core/internal/room"
	"realtime-core/internal/stats"
)

// SessionGateway accepts session connections, authenticates them and
// dispatches inbound messages to the room registry until disconnect.
type SessionGateway struct {
	registry  *room.Registry
	validator auth.TokenValidator
	cfg       config.WebSocketConfig
	collector stats.Collector
}

// NewSessionGateway creates a gateway. A nil collector disables stats.
func NewSessionGateway(registry *room.Registry, validator auth.TokenValidator, cfg config.WebSocketConfig, collector stats.Collector) *SessionGateway {
	if collector == nil {
		collector = stats.Nop{}
	}
	return &SessionGateway{
		registry:  registry,
		validator: validator,
		cfg:       cfg,
		collector: collector,
	}
}

// UpgradeMiddleware gates the route to WebSocket upgrades and stashes
// the bearer token for the post-upgrade handshake.
func (g *SessionGateway) UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			header := c.Get("Authorization")
			if after, ok := strings.CutPrefix(header, "Bearer "); ok {
				token = after
			}
		}
		c.Locals("token", token)
		return c.Next()
	}
}

// Handle runs one connection: authenticate, then read and dispatch until
// the socket closes. Cleanup runs exactly once on every exit path.
func (g *SessionGateway) Handle(c *websocket.Conn) {
	token, _ := c.Locals("token").(string)
	claims, err := g.authenticate(token)
	if err != nil {
		log.Warn().Err(err).Msg("session rejected")
		// The write pump is not running yet, so the error frame can go
		// out synchronously before the close.
		frame, _ := json.Marshal(model.Outbound{
			Type:    model.TypeError,
			Payload: model.ErrorPayload{Message: "authentication failed"},
		})
		_ = c.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
		_ = c.WriteMessage(websocket.TextMessage, frame)
		_ = c.Close()
		return
	}

	client := newWSClient(c, g.cfg, g.collector)
	go client.writePump()

	p := room.NewParticipant(uuid.NewString(), claims.UserID, claims.Name, client)
	g.collector.ConnOpened()
	log.Info().Str("participant", p.ID).Str("user", p.UserID).Msg("session connected")

	var cleanup sync.Once
	disconnect := func() {
		cleanup.Do(func() {
			g.registry.DisconnectAll(p)
			client.close()
			g.collector.ConnClosed()
			log.Info().Str("participant", p.ID).Msg("session disconnected")
		})
	}
	defer disconnect()

	c.SetReadLimit(g.cfg.MaxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			// Covers explicit close and missed heartbeats alike.
			return
		}
		g.dispatch(p, data)
	}
}

func (g *SessionGateway) authenticate(token string) (*auth.Claims, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.validator.Validate(ctx, token)
}

// dispatch routes one inbound frame. A fault while handling it is scoped
// to that frame: the connection, other rooms and other participants are
// untouched.
func (g *SessionGateway) dispatch(p *room.Participant, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("participant", p.ID).Msg("message handler fault")
			g.sendError(p, "internal error")
		}
	}()

	var env model.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("participant", p.ID).Msg("malformed message dropped")
		return
	}
	g.collector.Message(string(env.Type))

	switch env.Type {
	case model.TypeJoinRoom:
		g.handleJoin(p, env)
	case model.TypeLeaveRoom:
		g.registry.LeaveRoom(p, env.RoomID)
	case model.TypeRTCOffer, model.TypeRTCAnswer, model.TypeICECandidate:
		g.handleSignal(p, env)
	case model.TypeChatMessage:
		g.handleChat(p, env)
	case model.TypeTyping:
		g.handleTyping(p, env)
	case model.TypeFileShare:
		g.handleFileShare(p, env)
	case model.TypeMessageReaction:
		g.handleReaction(p, env)
	case model.TypeWhiteboardDraw:
		g.handleDraw(p, env)
	case model.TypeWhiteboardClear:
		g.reportErr(p, g.registry.ClearBoard(p, env.RoomID))
	case model.TypeWhiteboardUndo:
		g.reportErr(p, g.registry.Undo(p, env.RoomID))
	case model.TypeWhiteboardRedo:
		g.reportErr(p, g.registry.Redo(p, env.RoomID))
	default:
		log.Warn().Str("type", string(env.Type)).Str("participant", p.ID).Msg("unknown message type dropped")
	}
}

func (g *SessionGateway) handleJoin(p *room.Participant, env model.Envelope) {
	if env.RoomID == "" {
		g.sendError(p, "join-room requires a roomId")
		return
	}
	payload := g.registry.JoinRoom(p, env.RoomID)
	payload.SelfID = p.ID
	p.Send(model.Outbound{
		Type:    model.TypeRoomJoined,
		RoomID:  env.RoomID,
		Payload: payload,
	})
}

func (g *SessionGateway) handleSignal(p *room.Participant, env model.Envelope) {
	var payload model.SignalPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.TargetID == "" {
		log.Warn().Str("participant", p.ID).Msg("malformed signal payload dropped")
		return
	}
	g.reportErr(p, g.registry.Relay(p, env.RoomID, env.Type, payload))
}

func (g *SessionGateway) handleChat(p *room.Participant, env model.Envelope) {
	var payload model.ChatPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.Body == "" {
		log.Warn().Str("participant", p.ID).Msg("malformed chat payload dropped")
		return
	}
	_, err := g.registry.SendChat(p, env.RoomID, payload)
	g.reportErr(p, err)
}

func (g *SessionGateway) handleTyping(p *room.Participant, env model.Envelope) {
	var payload model.TypingPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		log.Warn().Str("participant", p.ID).Msg("malformed typing payload dropped")
		return
	}
	g.reportErr(p, g.registry.SetTyping(p, env.RoomID, payload.IsTyping))
}

func (g *SessionGateway) handleFileShare(p *room.Participant, env model.Envelope) {
	var payload model.FileSharePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || len(payload.FileMeta) == 0 {
		log.Warn().Str("participant", p.ID).Msg("malformed file-share payload dropped")
		return
	}
	_, err := g.registry.ShareFile(p, env.RoomID, payload)
	g.reportErr(p, err)
}

func (g *SessionGateway) handleReaction(p *room.Participant, env model.Envelope) {
	var payload model.ReactionPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.MessageID == "" {
		log.Warn().Str("participant", p.ID).Msg("malformed reaction payload dropped")
		return
	}
	g.reportErr(p, g.registry.React(p, env.RoomID, payload))
}

func (g *SessionGateway) handleDraw(p *room.Participant, env model.Envelope) {
	var payload model.DrawPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || len(payload.Op) == 0 {
		log.Warn().Str("participant", p.ID).Msg("malformed draw payload dropped")
		return
	}
	g.reportErr(p, g.registry.Draw(p, env.RoomID, payload.Op))
}

// reportErr surfaces a recoverable handler error to the sender.
func (g *SessionGateway) reportErr(p *room.Participant, err error) {
	if err == nil {
		return
	}
	log.Debug().Err(err).Str("participant", p.ID).Msg("message rejected")
	g.sendError(p, err.Error())
}

func (g *SessionGateway) sendError(p *room.Participant, message string) {
	p.Send(model.Outbound{
		Type:    model.TypeError,
		Payload: model.ErrorPayload{Message: message},
	})
}
