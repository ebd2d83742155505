package limiter

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Strategy decides whether a given key may pass within a window
type Strategy interface {
	Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error)
}

// Manager runs a rate limit strategy against a shared redis client. Callers
// own the failure policy: the chat gateway fails open when redis is down.
type Manager struct {
	rdb      *redis.Client
	strategy Strategy
}

// NewManager returns a manager bound to the given client and strategy
func NewManager(rdb *redis.Client, strategy Strategy) *Manager {
	return &Manager{rdb: rdb, strategy: strategy}
}

// Allow delegates to the configured strategy
func (m *Manager) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.strategy.Allow(ctx, m.rdb, key, limit, window)
}

// FixedWindow is a counter-based fixed window limiter. INCR and EXPIRE run in
// one Lua script so the first hit of a window always sets the expiry.
type FixedWindow struct{}

func (s *FixedWindow) Allow(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	const script = `
		local current = redis.call("INCR", KEYS[1])
		if current == 1 then
			redis.call("EXPIRE", KEYS[1], ARGV[2])
		end
		if current > tonumber(ARGV[1]) then
			return 0
		end
		return 1
	`
	result, err := rdb.Eval(ctx, script, []string{key}, limit, int(window.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
