package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(fetchesTotal, rateRemaining) }

var fetchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "github_fetches_total",
		Help: "GitHub stat fetches by source (accurate/estimated) and result.",
	},
	[]string{"source", "result"},
)

var rateRemaining = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "github_rate_limit_remaining",
		Help: "Remaining GitHub API quota as last observed.",
	},
)

func IncFetch(source, result string) {
	fetchesTotal.WithLabelValues(norm(source), norm(result)).Inc()
}

func SetRateRemaining(n int) { rateRemaining.Set(float64(n)) }
