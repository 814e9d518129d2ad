package silosession

import "sync/atomic"

// MetricID identifies a counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts refresh calls that yielded a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh calls that ended the session.
	MetricRefreshFailure
	// MetricRefreshShared counts callers that waited on another caller's
	// in-flight refresh instead of issuing their own.
	MetricRefreshShared
	// MetricRetryAfter401 counts requests transparently re-issued after a
	// successful refresh.
	MetricRetryAfter401
	// MetricRetryExhausted counts requests that stayed 401 after the single
	// permitted retry.
	MetricRetryExhausted
	// MetricVerifySuccess counts accepted verify calls.
	MetricVerifySuccess
	// MetricVerifyFailure counts rejected verify calls.
	MetricVerifyFailure
	// MetricAuthFailure counts forced logouts (store cleared after an
	// irrecoverable refresh failure).
	MetricAuthFailure
	// MetricLogout counts explicit logouts.
	MetricLogout
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:    "login_success",
	MetricLoginFailure:    "login_failure",
	MetricRegisterSuccess: "register_success",
	MetricRegisterFailure: "register_failure",
	MetricRefreshSuccess:  "refresh_success",
	MetricRefreshFailure:  "refresh_failure",
	MetricRefreshShared:   "refresh_shared",
	MetricRetryAfter401:   "retry_after_401",
	MetricRetryExhausted:  "retry_exhausted",
	MetricVerifySuccess:   "verify_success",
	MetricVerifyFailure:   "verify_failure",
	MetricAuthFailure:     "auth_failure",
	MetricLogout:          "logout",
}

func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters for session lifecycle operations.
// Counters are stored in cache-line-padded slots and incremented atomically;
// the write path is allocation-free.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a [Metrics] instance. When cfg.Enabled is false, all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the given counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
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
