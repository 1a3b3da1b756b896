package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RemoteValidator delegates token verification to an external auth
// service over HTTP. The service answers 200 with the token's identity
// or a 4xx for anything it rejects.
type RemoteValidator struct {
	url     string
	timeout time.Duration
}

// NewRemoteValidator creates a validator against the given introspection
// endpoint.
func NewRemoteValidator(url string) *RemoteValidator {
	return &RemoteValidator{url: url, timeout: 3 * time.Second}
}

type introspectResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// Validate posts the token to the auth service and maps the response to
// Claims. The Fiber agent has no context plumbing, so the caller's
// deadline is honored by shrinking the request timeout to whatever is
// left on the context.
func (v *RemoteValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(v.url)
	agent.Timeout(timeout)
	agent.JSON(fiber.Map{"token": token})

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("token introspection: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return nil, ErrInvalidToken
	}

	var res introspectResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("token introspection response: %w", err)
	}
	if res.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{UserID: res.UserID, Name: res.Name}, nil
}
