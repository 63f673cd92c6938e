package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("reward_redeemed")
	m.IncPublished("reward_redeemed")
	m.IncRetry("inventory_low_stock")
	m.IncDeadLetter("core_status_changed", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "reward_redeemed"); err != nil || got != 2 {
		t.Fatalf("expected 2 published, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_retry_total", "event_type", "inventory_low_stock"); err != nil || got != 1 {
		t.Fatalf("expected 1 retry, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_dead_letter_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected 1 dead letter, got %f (%v)", got, err)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("x")
	NewOutboxMetrics(nil).IncDeadLetter("x", "y")
}
