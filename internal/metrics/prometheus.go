package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "label_gateway"
	subsystem = "router"
)

type promMetrics struct {
	selections      *prometheus.CounterVec
	forwards        *prometheus.CounterVec
	forwardDuration *prometheus.HistogramVec
	reachable       *prometheus.GaugeVec
	probeDuration   *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	factory := promauto.With(reg)

	return &promMetrics{
		selections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "selections_total",
				Help:      "Times each endpoint was picked by the rotation pointer",
			},
			[]string{"endpoint"},
		),
		forwards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "forwards_total",
				Help:      "Forwarded labeling requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		forwardDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "forward_duration_seconds",
				Help:      "Upstream labeling call duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		reachable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "warmup",
				Name:      "endpoint_reachable",
				Help:      "1 if the last warm-up probe reached the endpoint, 0 otherwise",
			},
			[]string{"endpoint"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "warmup",
				Name:      "probe_duration_seconds",
				Help:      "Warm-up probe duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_requests_total",
				Help:      "Labeling requests rejected before forwarding, by reason",
			},
			[]string{"reason"},
		),
	}
}
