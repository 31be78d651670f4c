package authbackend

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for a taken email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts access tokens reissued from a refresh token.
	MetricRefreshSuccess
	// MetricRefreshInvalid counts refresh attempts with a missing or expired token.
	MetricRefreshInvalid
	// MetricLogout counts logout calls.
	MetricLogout
	// MetricResetRequest counts password reset requests, known email or not.
	MetricResetRequest
	// MetricResetConfirmSuccess counts redeemed reset tokens.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure counts rejected redemptions.
	MetricResetConfirmFailure
	// MetricRateLimitHit counts requests rejected by the limiter.
	MetricRateLimitHit
	// MetricRefreshSwept counts refresh tokens removed by the sweeper.
	MetricRefreshSwept
	// MetricResetSwept counts reset tokens removed by the sweeper.
	MetricResetSwept
	metricIDCount
)

const cacheLineSize = 64

// paddedCounter keeps each counter on its own cache line to avoid
// false sharing between hot flows.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. No-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to the counter. Sweeps use this to record removal counts.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters. Reads are individually atomic, not a
// consistent cut across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
