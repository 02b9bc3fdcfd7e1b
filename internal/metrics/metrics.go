package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restyle_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restyle_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restyle_generations_total",
			Help: "Total number of generation pipeline runs.",
		},
		[]string{"status"},
	)

	GenerationStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restyle_generation_stage_duration_seconds",
			Help:    "Duration of each generation pipeline stage.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"stage"},
	)

	PaymentConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restyle_payment_confirmations_total",
			Help: "Total number of payment confirmation attempts.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GenerationsTotal,
		GenerationStageDuration,
		PaymentConfirmationsTotal,
	)
}
