package rate

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Config holds limiter tuning parameters.
type Config struct {
	// MaxRequests is the number of requests admitted per key per window.
	MaxRequests int
	// Window is the sliding window length.
	Window time.Duration
}

// Limiter is a concurrency-safe sliding-window counter keyed by an
// opaque client key, usually the remote address. State lives entirely
// in process memory.
type Limiter struct {
	config Config
	now    func() time.Time
	shards [shardCount]shard
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*window
}

type window struct {
	start time.Time
	count int
}

// New creates a [Limiter]. MaxRequests and Window must be positive.
func New(cfg Config) *Limiter {
	l := &Limiter{
		config: cfg,
		now:    time.Now,
	}
	for i := range l.shards {
		l.shards[i].entries = make(map[string]*window)
	}
	return l
}

// NewWithClock creates a [Limiter] with an injected clock.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	l := New(cfg)
	l.now = now
	return l
}

// Admit records a request for key and reports whether it is within the
// budget. The first request past the limit is rejected; rejections do
// not advance the counter and do not reset the window.
func (l *Limiter) Admit(key string) bool {
	now := l.now()
	s := &l.shards[shardIndex(key)]

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok || now.Sub(w.start) > l.config.Window {
		s.entries[key] = &window{start: now, count: 1}
		s.evictStale(now, l.config.Window)
		return true
	}

	if w.count >= l.config.MaxRequests {
		return false
	}

	w.count++
	s.evictStale(now, l.config.Window)
	return true
}

// Len reports the number of tracked keys across all shards.
func (l *Limiter) Len() int {
	total := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// evictStale drops entries idle for more than twice the window length.
// Caller holds the shard lock.
func (s *shard) evictStale(now time.Time, windowLen time.Duration) {
	for key, w := range s.entries {
		if now.Sub(w.start) > 2*windowLen {
			delete(s.entries, key)
		}
	}
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}
