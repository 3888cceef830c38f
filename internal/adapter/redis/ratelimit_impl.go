package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notttired/aire-frontend/pkg/utils"
)

const rateLimitPrefix = "ratelimit:submit:"

// RateLimitRepoImpl implements repository.RateLimitRepository with
// fixed-window counters in Redis.
type RateLimitRepoImpl struct {
	client *redis.Client
}

// NewRateLimitRepo creates a new instance of RateLimitRepoImpl.
func NewRateLimitRepo(client *redis.Client) *RateLimitRepoImpl {
	return &RateLimitRepoImpl{client: client}
}

// generateKey hashes the caller key so raw client addresses never land in Redis.
func (r *RateLimitRepoImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", rateLimitPrefix, utils.HashKey(key))
}

// hitScript increments the counter and gives it a TTL whenever it has none,
// in one atomic step. A key left without a TTL heals on its next hit.
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Hit increments the counter for key. Counters expire with their window.
func (r *RateLimitRepoImpl) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.generateKey(key)
	count, err := hitScript.Run(ctx, r.client, []string{k}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("hit %s: %w", k, err)
	}
	return count, nil
}

// Ping checks the connection, used by the health endpoint.
func (r *RateLimitRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
