package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDomainMetricsCountsMovementsAndPoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)
	m.IncMovement("issue")
	m.IncMovement("issue")
	m.IncInsufficient("sale")
	m.AddPoints("redeemed", -250)
	m.IncRedemption("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "inventory_movements_total", "type", "issue"); err != nil || got != 2 {
		t.Fatalf("expected 2 issue movements, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "inventory_insufficient_total", "type", "sale"); err != nil || got != 1 {
		t.Fatalf("expected 1 rejected sale, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "loyalty_points_total", "type", "redeemed"); err != nil || got != 250 {
		t.Fatalf("expected 250 redeemed points, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "loyalty_redemptions_total", "outcome", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown outcome label, got %f (%v)", got, err)
	}
}

func TestDomainMetricsNilSafe(t *testing.T) {
	var m *DomainMetrics
	m.IncMovement("issue")
	NewDomainMetrics(nil).AddPoints("earned", 10)
}
