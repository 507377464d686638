package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics tracks shared cart lifecycle activity.
type CartMetrics struct {
	transitions   *prometheus.CounterVec
	contributions prometheus.Counter
	units         prometheus.Counter
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "shared_cart",
		Name:      "transitions_total",
		Help:      "Shared cart status transitions, including deletion.",
	}, []string{"from", "to"})
	contributions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "shared_cart",
		Name:      "contributions_total",
		Help:      "Accepted add-to-cart calls.",
	})
	units := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "shared_cart",
		Name:      "contributed_units_total",
		Help:      "Units committed through add-to-cart calls.",
	})
	reg.MustRegister(transitions, contributions, units)
	return &CartMetrics{transitions: transitions, contributions: contributions, units: units}
}

// ObserveTransition counts a status change. to is "deleted" when the cart row goes away.
func (m *CartMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *CartMetrics) ObserveContribution(quantity int) {
	if m == nil || m.contributions == nil {
		return
	}
	m.contributions.Inc()
	if quantity > 0 {
		m.units.Add(float64(quantity))
	}
}
