// Package metrics holds the process-wide Prometheus collectors and the metrics HTTP server.
package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics, labelled by source ("live", "replay", "import")
	LastIngestedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainreplay_last_ingested_block",
			Help: "The last block number ingested by a source",
		},
		[]string{"source"},
	)

	ChainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_chain_head_block",
			Help: "The latest chain head observed by the live follower",
		},
	)

	BlocksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_blocks_ingested_total",
			Help: "Total number of blocks ingested",
		},
		[]string{"source"},
	)

	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_events_ingested_total",
			Help: "Total number of events handed to the indexer",
		},
		[]string{"source"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chainreplay_ingest_duration_seconds",
			Help:    "Time taken to fetch, parse and index one block range",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainreplay_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chainreplay_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastIngestedBlockSet(source string, blockNum uint64) {
	LastIngestedBlock.WithLabelValues(source).Set(float64(blockNum))
}

func ChainHeadSet(blockNum uint64) {
	ChainHead.Set(float64(blockNum))
}

func BlocksIngestedAdd(source string, count uint64) {
	BlocksIngested.WithLabelValues(source).Add(float64(count))
}

func EventsIngestedAdd(source string, count int) {
	EventsIngested.WithLabelValues(source).Add(float64(count))
}

func IngestDurationLog(source string, duration time.Duration) {
	IngestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
