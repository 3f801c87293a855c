package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle limits failed login attempts per identifier using Redis.
// It fails open: if Redis is unreachable, logins are allowed and the error is
// logged, so an observability outage cannot lock everyone out.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
}

// NewLoginThrottle creates a throttle that blocks an identifier after
// maxAttempts failed logins within the window.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration, logger *slog.Logger) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

func (t *LoginThrottle) key(identifier string) string {
	return fmt.Sprintf("login_attempts:%s", identifier)
}

// Blocked reports whether the identifier has exhausted its attempt budget.
func (t *LoginThrottle) Blocked(ctx context.Context, identifier string) bool {
	if t == nil || t.client == nil {
		return false
	}

	count, err := t.client.Get(ctx, t.key(identifier)).Int()
	if err != nil {
		if err != redis.Nil {
			t.logger.WarnContext(ctx, "login throttle lookup failed",
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	return count >= t.maxAttempts
}

// RecordFailure increments the failed-attempt counter for the identifier and
// refreshes the window expiry.
func (t *LoginThrottle) RecordFailure(ctx context.Context, identifier string) {
	if t == nil || t.client == nil {
		return
	}

	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, t.key(identifier))
	pipe.Expire(ctx, t.key(identifier), t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.WarnContext(ctx, "login throttle record failed",
			slog.String("error", err.Error()),
		)
	}
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, identifier string) {
	if t == nil || t.client == nil {
		return
	}

	if err := t.client.Del(ctx, t.key(identifier)).Err(); err != nil {
		t.logger.WarnContext(ctx, "login throttle reset failed",
			slog.String("error", err.Error()),
		)
	}
}
