package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2025, 3, 15, 2, 0, 0, 0, time.UTC)

	m.ObserveRun("loyalty_points_expiry", 2*time.Second, finished, nil)
	m.ObserveRun("loyalty_points_expiry", time.Second, finished.Add(time.Hour), errors.New("db down"))
	m.ObserveRun("inventory_low_stock_scan", 100*time.Millisecond, finished, nil)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("loyalty_points_expiry", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs.WithLabelValues("loyalty_points_expiry", "failure")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	// the failed run must not move the last-success stamp
	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("loyalty_points_expiry")); got != float64(finished.Unix()) {
		t.Fatalf("expected last success %d, got %v", finished.Unix(), got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 2 {
		t.Fatalf("expected duration series for 2 jobs, got %d", got)
	}
}

func TestCronJobMetricsSkippedCycles(t *testing.T) {
	m := NewCronJobMetrics(prometheus.NewRegistry())
	m.IncSkippedCycle("locked")
	m.IncSkippedCycle("locked")
	m.IncSkippedCycle("")

	if got := testutil.ToFloat64(m.skipped.WithLabelValues("locked")); got != 2 {
		t.Fatalf("expected 2 locked skips, got %v", got)
	}
	if got := testutil.ToFloat64(m.skipped.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty reason to map to unknown, got %v", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", time.Second, time.Now(), nil)
	m.IncSkippedCycle("locked")
	NewCronJobMetrics(nil).ObserveRun("job", time.Second, time.Now(), errors.New("x"))
}
