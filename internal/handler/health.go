package handler

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"realtime-core/internal/room"
)

// HealthHandler answers operator liveness queries. Nothing internal
// depends on it.
type HealthHandler struct {
	registry     *room.Registry
	redisClient  *redis.Client
	validatorURL string
}

// NewHealthHandler creates a health handler. redisClient may be nil when
// Redis is not configured.
func NewHealthHandler(registry *room.Registry, redisClient *redis.Client, validatorURL string) *HealthHandler {
	return &HealthHandler{
		registry:     registry,
		redisClient:  redisClient,
		validatorURL: validatorURL,
	}
}

// ComponentCheck is one dependency's status.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the full health report.
type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Rooms     int                       `json:"rooms"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check reports process health plus dependency status.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Rooms:     h.registry.RoomCount(),
		Checks:    make(map[string]ComponentCheck),
	}

	if h.redisClient != nil {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := h.redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			response.Status = "degraded"
			response.Checks["redis"] = ComponentCheck{Status: "unhealthy", Error: err.Error()}
		} else {
			response.Checks["redis"] = ComponentCheck{Status: "healthy", Latency: time.Since(start).String()}
		}
	} else {
		response.Checks["redis"] = ComponentCheck{Status: "not_configured"}
	}

	if h.validatorURL != "" {
		start := time.Now()
		if addr, err := dialAddr(h.validatorURL); err != nil {
			response.Checks["auth_service"] = ComponentCheck{Status: "degraded", Error: err.Error()}
		} else if conn, err := net.DialTimeout("tcp", addr, 2*time.Second); err != nil {
			response.Status = "degraded"
			response.Checks["auth_service"] = ComponentCheck{Status: "unhealthy", Error: "auth service unreachable"}
		} else {
			conn.Close()
			response.Checks["auth_service"] = ComponentCheck{Status: "healthy", Latency: time.Since(start).String()}
		}
	} else {
		response.Checks["auth_service"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

// Liveness is the plain process liveness probe.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

func dialAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	return host, nil
}
