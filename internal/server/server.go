package server

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"realtime-core/internal/auth"
	"realtime-core/internal/config"
	"realtime-core/internal/handler"
	"realtime-core/internal/room"
	"realtime-core/internal/stats"
)

// Server wraps the Fiber app and its handlers.
type Server struct {
	app           *fiber.App
	cfg           *config.Config
	gateway       *handler.SessionGateway
	healthHandler *handler.HealthHandler
}

// New wires the session gateway and health handler into a Fiber app.
// redisClient may be nil when Redis is disabled.
func New(cfg *config.Config, registry *room.Registry, collector stats.Collector, redisClient *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		AppName:         "Session Coordination Core",
		ServerHeader:    "Fiber",
		StrictRouting:   true,
		CaseSensitive:   true,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		Prefork:         false, // incompatible with WebSocket connections
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
	})

	var validator auth.TokenValidator
	if cfg.Auth.ValidatorURL != "" {
		validator = auth.NewRemoteValidator(cfg.Auth.ValidatorURL)
		log.Info().Str("url", cfg.Auth.ValidatorURL).Msg("using remote token validator")
	} else {
		validator = auth.NewJWTValidator(cfg.Auth.JWTSecret)
	}

	return &Server{
		app:           app,
		cfg:           cfg,
		gateway:       handler.NewSessionGateway(registry, validator, cfg.WebSocket, collector),
		healthHandler: handler.NewHealthHandler(registry, redisClient, cfg.Auth.ValidatorURL),
	}
}

// SetupMiddleware installs panic recovery, request logging and CORS.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, POST, OPTIONS",
	}))
}

// SetupRoutes registers the health endpoints and the session socket.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)

	// Handshake rate limit; established sessions are unaffected.
	wsLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many connection attempts, please try again later",
			})
		},
	})

	s.app.Get("/ws/session", wsLimiter, s.gateway.UpgradeMiddleware(), websocket.New(s.gateway.Handle, websocket.Config{
		ReadBufferSize:   s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:  s.cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout: s.cfg.WebSocket.HandshakeTimeout,
	}))
}

// Start begins serving. It blocks until the listener stops.
func (s *Server) Start() error {
	log.Info().Str("port", s.cfg.Server.Port).Msg("session core listening")
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
