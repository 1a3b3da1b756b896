package handler

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"realtime-core/internal/config"
	"realtime-core/internal/model"
	"realtime-core/internal/stats"
)

// wsClient owns one WebSocket connection. All writes go through the
// buffered send channel and a single writer goroutine; the application
// never writes to the socket from two goroutines.
type wsClient struct {
	conn      *websocket.Conn
	cfg       config.WebSocketConfig
	collector stats.Collector

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn, cfg config.WebSocketConfig, collector stats.Collector) *wsClient {
	return &wsClient{
		conn:      conn,
		cfg:       cfg,
		collector: collector,
		send:      make(chan []byte, cfg.SendBufferSize),
		done:      make(chan struct{}),
	}
}

// Send queues a frame for delivery. It never blocks: a full buffer or a
// closed connection drops the frame, so a vanished peer cannot stall a
// room broadcast or a relay.
func (c *wsClient) Send(msg model.Outbound) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(msg.Type)).Msg("outbound marshal failed")
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.collector.FrameDropped()
		log.Warn().Str("type", string(msg.Type)).Msg("send buffer full, frame dropped")
		return false
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// writePump is the single socket writer. It also drives the heartbeat:
// pings go out at a fraction of the pong timeout, and a failed write
// tears the connection down, which the read loop observes.
func (c *wsClient) writePump() {
	pingPeriod := c.cfg.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
