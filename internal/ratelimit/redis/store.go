package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/fgimenez/mythril-ci/internal/ratelimit"
	"github.com/redis/go-redis/v9"
)

// The script is the single atomic step: reset the hash when the window has
// elapsed (or never started), otherwise increment. Keys expire at twice the
// window duration so idle users cost nothing.
const incrementScript = `
local now = tonumber(ARGV[1])
local dur = tonumber(ARGV[2])
local start = redis.call("HGET", KEYS[1], "start")
if not start or now - tonumber(start) >= dur then
  redis.call("HSET", KEYS[1], "count", 1)
  redis.call("HSET", KEYS[1], "start", now)
  redis.call("PEXPIRE", KEYS[1], dur * 2)
  return 1
end
return redis.call("HINCRBY", KEYS[1], "count", 1)
`

var incrementLua = redis.NewScript(incrementScript)

// Store keeps the window counters in Redis hashes keyed per user+window.
type Store struct {
	client redis.UniversalClient
}

func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func Key(userID string, w ratelimit.Window) string {
	return "ratelimit:" + userID + ":" + w.Name
}

func (s *Store) Increment(ctx context.Context, userID string, w ratelimit.Window, now time.Time) (int, error) {
	count, err := incrementLua.Run(ctx, s.client,
		[]string{Key(userID, w)},
		now.UnixMilli(), w.Duration.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s window for user %s: %w", w.Name, userID, err)
	}

	return int(count), nil
}
