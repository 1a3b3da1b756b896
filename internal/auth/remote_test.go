package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRemoteValidator_HonorsCancelledContext(t *testing.T) {
	req := require.New(t)
	v := NewRemoteValidator("http://auth.invalid/introspect")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Validate(ctx, "some-token")
	req.ErrorIs(err, context.Canceled)
}

func TestRemoteValidator_HonorsExpiredDeadline(t *testing.T) {
	req := require.New(t)
	v := NewRemoteValidator("http://auth.invalid/introspect")

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := v.Validate(ctx, "some-token")
	req.ErrorIs(err, context.DeadlineExceeded)
}
