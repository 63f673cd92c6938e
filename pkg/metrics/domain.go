package metrics

import "github.com/prometheus/client_golang/prometheus"

// DomainMetrics counts inventory movements and loyalty activity.
type DomainMetrics struct {
	movements   *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	points      *prometheus.CounterVec
	redemptions *prometheus.CounterVec
}

// NewDomainMetrics registers the domain counters on the provided registerer.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_movements_total",
		Help: "Part transactions recorded, by transaction type.",
	}, []string{"type"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_insufficient_total",
		Help: "Movements rejected for insufficient stock, by transaction type.",
	}, []string{"type"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_points_total",
		Help: "Loyalty points moved, by ledger entry type.",
	}, []string{"type"})
	redemptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_redemptions_total",
		Help: "Redemption attempts, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(movements, rejected, points, redemptions)
	return &DomainMetrics{
		movements:   movements,
		rejected:    rejected,
		points:      points,
		redemptions: redemptions,
	}
}

func (d *DomainMetrics) IncMovement(txType string) {
	if d == nil || d.movements == nil {
		return
	}
	d.movements.WithLabelValues(normalizeLabel(txType)).Inc()
}

func (d *DomainMetrics) IncInsufficient(txType string) {
	if d == nil || d.rejected == nil {
		return
	}
	d.rejected.WithLabelValues(normalizeLabel(txType)).Inc()
}

// AddPoints records the absolute size of a ledger entry.
func (d *DomainMetrics) AddPoints(entryType string, points int) {
	if d == nil || d.points == nil {
		return
	}
	if points < 0 {
		points = -points
	}
	d.points.WithLabelValues(normalizeLabel(entryType)).Add(float64(points))
}

func (d *DomainMetrics) IncRedemption(outcome string) {
	if d == nil || d.redemptions == nil {
		return
	}
	d.redemptions.WithLabelValues(normalizeLabel(outcome)).Inc()
}
