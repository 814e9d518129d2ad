package silosession

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricRefreshSuccess)
	m.Inc(MetricRefreshSuccess)
	m.Inc(MetricRetryAfter401)

	if got := m.Value(MetricRefreshSuccess); got != 2 {
		t.Fatalf("refresh_success: got %d want 2", got)
	}
	if got := m.Value(MetricRetryAfter401); got != 1 {
		t.Fatalf("retry_after_401: got %d want 1", got)
	}
	if got := m.Value(MetricLogout); got != 0 {
		t.Fatalf("logout: got %d want 0", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if m.Enabled() {
		t.Fatal("metrics should report disabled")
	}
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics must not count, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %v", snap.Counters)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Enabled() || m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricAuthFailure)

	snap := m.Snapshot()
	if snap.Counters[MetricAuthFailure] != 1 {
		t.Fatalf("snapshot auth_failure: got %d want 1", snap.Counters[MetricAuthFailure])
	}

	// The snapshot is a copy.
	m.Inc(MetricAuthFailure)
	if snap.Counters[MetricAuthFailure] != 1 {
		t.Fatal("snapshot must not track later increments")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricRetryAfter401)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRetryAfter401); got != 8000 {
		t.Fatalf("got %d want 8000", got)
	}
}

func TestMetricIDString(t *testing.T) {
	if MetricRefreshShared.String() != "refresh_shared" {
		t.Fatalf("unexpected name: %s", MetricRefreshShared)
	}
	if MetricID(200).String() != "unknown" {
		t.Fatal("out-of-range ids stringify as unknown")
	}
}
