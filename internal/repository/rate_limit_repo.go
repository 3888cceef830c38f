package repository

import (
	"context"
	"time"
)

// RateLimitRepository counts requests per key inside a fixed window.
type RateLimitRepository interface {
	// Hit records one request for key and returns the number of requests
	// seen in the current window, including this one.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}
