// Package visits counts index page visits per browser session.
package visits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionTTL is how long an idle session keeps its count.
const SessionTTL = 30 * 24 * time.Hour

// Counter records a visit and returns the session's total including it.
type Counter interface {
	Hit(ctx context.Context, session string) (int64, error)
}

var errNoSession = errors.New("visits: empty session id")

type memoryEntry struct {
	count   int64
	expires time.Time
}

// Memory is a process-local Counter.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	entries   map[string]memoryEntry
	lastSweep time.Time
}

// sweepEvery bounds how often Hit scans for expired sessions.
const sweepEvery = time.Minute

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

func (m *Memory) Hit(_ context.Context, session string) (int64, error) {
	if session == "" {
		return 0, errNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if m.lastSweep.IsZero() {
		m.lastSweep = now
	}
	if now.Sub(m.lastSweep) > sweepEvery {
		for k, old := range m.entries {
			if now.After(old.expires) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}
	e := m.entries[session]
	if !e.expires.IsZero() && now.After(e.expires) {
		e = memoryEntry{}
	}
	e.count++
	e.expires = now.Add(m.ttl)
	m.entries[session] = e
	return e.count, nil
}

var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return count
`)

// Redis keeps counts under <prefix>:<session> with a sliding TTL.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "catalog:visits"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, timeout: 2 * time.Second}
}

func (r *Redis) Hit(ctx context.Context, session string) (int64, error) {
	if session == "" {
		return 0, errNoSession
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	key := r.prefix + ":" + session
	n, err := hitScript.Run(ctx, r.client, []string{key}, r.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis visit hit: %w", err)
	}
	return n, nil
}

// Guarded sends hits to primary through a breaker and to fallback while the
// breaker is open or primary fails.
type Guarded struct {
	primary  Counter
	fallback Counter
	breaker  *Breaker
}

func NewGuarded(primary, fallback Counter, breaker *Breaker) *Guarded {
	return &Guarded{primary: primary, fallback: fallback, breaker: breaker}
}

func (g *Guarded) Hit(ctx context.Context, session string) (int64, error) {
	var n int64
	err := g.breaker.Do(func() error {
		var err error
		n, err = g.primary.Hit(ctx, session)
		return err
	})
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, ErrBreakerOpen) {
		slog.Warn("visit counter degraded", "error", err, "breaker", g.breaker.State().String())
	}
	return g.fallback.Hit(ctx, session)
}
