package chat

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/solace-health/therapy/config"
)

// Limiter enforces a fixed-window message rate per sender identity. Windows
// live in an LRU cache so the tracked identity set stays bounded no matter
// how many distinct senders show up.
type Limiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries *lru.Cache
}

type limiterWindow struct {
	startedAt time.Time
	count     int
}

func NewLimiter(cfg *config.Config) (*Limiter, error) {
	return newLimiter(cfg.ChatRateLimitPerMinute, time.Minute, cfg.ChatRateLimitMaxKeys, time.Now)
}

func newLimiter(limit int, window time.Duration, maxKeys int, now func() time.Time) (*Limiter, error) {
	entries, err := lru.New(maxKeys)
	if err != nil {
		return nil, err
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     now,
		entries: entries,
	}, nil
}

// Allow consumes one slot for the identity, reporting whether it was within
// the rate. A new window starts once the previous one ages out.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	current := &limiterWindow{startedAt: now}
	if cached, ok := l.entries.Get(identity); ok {
		window := cached.(*limiterWindow)
		if now.Sub(window.startedAt) < l.window {
			current = window
		}
	}

	if current.count >= l.limit {
		return false
	}
	current.count++
	l.entries.Add(identity, current)
	return true
}
