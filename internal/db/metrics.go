package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenanceRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_db_compactions_total",
			Help: "Total number of database compactions",
		},
	)

	maintenanceOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_db_compaction_outcomes_total",
			Help: "Database compactions by outcome",
		},
		[]string{"status"},
	)

	maintenanceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainreplay_db_compaction_duration_seconds",
			Help:    "Duration of database compactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	dbSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_db_size_bytes",
			Help: "Database size in bytes including WAL",
		},
	)
)

func maintenanceRunsInc() {
	maintenanceRuns.Inc()
}

func maintenanceDurationLog(d time.Duration) {
	maintenanceDuration.Observe(d.Seconds())
}

func maintenanceErrorInc() {
	maintenanceOutcomes.WithLabelValues("error").Inc()
}

func maintenanceSuccessInc() {
	maintenanceOutcomes.WithLabelValues("success").Inc()
}

func dbSizeLog(size int64) {
	dbSize.Set(float64(size))
}
