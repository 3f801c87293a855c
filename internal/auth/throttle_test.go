package auth

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func throttleTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// A nil throttle (throttling disabled) must be safe to call and never block.
func TestLoginThrottle_NilSafe(t *testing.T) {
	var throttle *LoginThrottle
	ctx := context.Background()

	assert.False(t, throttle.Blocked(ctx, "johndoe"))
	throttle.RecordFailure(ctx, "johndoe")
	throttle.Reset(ctx, "johndoe")
}

func TestLoginThrottle_NilClientSafe(t *testing.T) {
	throttle := NewLoginThrottle(nil, 10, 15*time.Minute, throttleTestLogger())
	ctx := context.Background()

	assert.False(t, throttle.Blocked(ctx, "johndoe"))
	throttle.RecordFailure(ctx, "johndoe")
	throttle.Reset(ctx, "johndoe")
}

// With Redis unreachable the throttle fails open: lookups report not blocked
// and writes are swallowed after logging.
func TestLoginThrottle_FailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "localhost:1", // nothing listens here
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	throttle := NewLoginThrottle(client, 10, 15*time.Minute, throttleTestLogger())
	ctx := context.Background()

	assert.False(t, throttle.Blocked(ctx, "johndoe"))
	throttle.RecordFailure(ctx, "johndoe")
	throttle.Reset(ctx, "johndoe")
}

func TestLoginThrottle_KeyNamespacing(t *testing.T) {
	throttle := NewLoginThrottle(nil, 10, 15*time.Minute, throttleTestLogger())

	assert.Equal(t, "login_attempts:johndoe", throttle.key("johndoe"))
	assert.Equal(t, "login_attempts:john@example.com", throttle.key("john@example.com"))
}
