package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(syncsTotal, syncLatency, batchUsers, ranksUpdated) }

var syncsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "user_syncs_total",
		Help: "User syncs by outcome (ok/failed/skipped).",
	},
	[]string{"outcome"},
)

var syncLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "user_sync_latency_ms",
		Help:    "Per-user sync latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
)

var batchUsers = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "sync_batch_last_users",
		Help: "Users processed in the last batch run, by outcome.",
	},
	[]string{"outcome"},
)

var ranksUpdated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rank_updates_total",
		Help: "Rank rows written by the recalculator, by period and outcome.",
	},
	[]string{"period", "outcome"},
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncSync(outcome string)          { syncsTotal.WithLabelValues(norm(outcome)).Inc() }
func ObserveSyncLatency(ms float64)   { syncLatency.Observe(ms) }
func SetBatchOutcome(o string, n int) { batchUsers.WithLabelValues(norm(o)).Set(float64(n)) }

func AddRankUpdates(period, outcome string, n int) {
	ranksUpdated.WithLabelValues(norm(period), norm(outcome)).Add(float64(n))
}
