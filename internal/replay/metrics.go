package replay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	replaySessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_replay_sessions_total",
			Help: "Replay sessions by final status",
		},
		[]string{"status"},
	)

	replayBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_replay_blocks_processed_total",
			Help: "Blocks visited by replay sessions",
		},
	)

	replayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_replay_events_total",
			Help: "Replay events by outcome (indexed, skipped)",
		},
		[]string{"outcome"},
	)

	replayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_replay_errors_total",
			Help: "Replay errors by stage (fetch, parse, store)",
		},
		[]string{"stage"},
	)

	replayProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_replay_progress_percent",
			Help: "Progress of the current replay session",
		},
	)

	replayBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainreplay_replay_batch_duration_seconds",
			Help:    "Time spent fetching, parsing and indexing one batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), //nolint:mnd
		},
	)
)

func sessionFinishedInc(status string) {
	replaySessions.WithLabelValues(status).Inc()
}

func batchLog(blocks uint64, indexed, skipped int, d time.Duration) {
	replayBlocks.Add(float64(blocks))
	replayEvents.WithLabelValues("indexed").Add(float64(indexed))
	replayEvents.WithLabelValues("skipped").Add(float64(skipped))
	replayBatchDuration.Observe(d.Seconds())
}

func replayErrorInc(stage string) {
	replayErrors.WithLabelValues(stage).Inc()
}

func progressLog(percent int) {
	replayProgress.Set(float64(percent))
}
