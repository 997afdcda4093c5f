package internal

import (
	"context"
	"time"
)

const defaultCallTimeout = 5 * time.Second

// WithTimeout bounds an outbound call. A non-positive duration falls back to
// defaultCallTimeout so that no gateway round trip can hang.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if duration <= 0 {
		duration = defaultCallTimeout
	}
	return context.WithTimeout(ctx, duration)
}
