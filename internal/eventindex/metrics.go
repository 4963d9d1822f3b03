package eventindex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_events_indexed_total",
			Help: "Events stored or overwritten in the index",
		},
	)

	eventsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_events_removed_total",
			Help: "Events removed by retention cleanup",
		},
	)

	indexedEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_index_events",
			Help: "Events currently held by the index",
		},
	)

	indexTerms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chainreplay_index_terms",
			Help: "Distinct terms in the inverted index",
		},
	)

	indexRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chainreplay_index_rebuilds_total",
			Help: "Full search index rebuilds",
		},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chainreplay_search_duration_seconds",
			Help:    "Duration of event searches",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	storageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_index_storage_errors_total",
			Help: "Write-through storage failures",
		},
		[]string{"op"},
	)
)

func eventsIndexedAdd(n int) {
	eventsIndexed.Add(float64(n))
}

func eventsRemovedAdd(n int) {
	eventsRemoved.Add(float64(n))
}

func indexSizeLog(events, terms int) {
	indexedEvents.Set(float64(events))
	indexTerms.Set(float64(terms))
}

func indexRebuildsInc() {
	indexRebuilds.Inc()
}

func searchDurationLog(d time.Duration) {
	searchDuration.Observe(d.Seconds())
}

func storageErrorsInc(op string) {
	storageErrors.WithLabelValues(op).Inc()
}

var importFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "chainreplay_import_failures_total",
		Help: "Imports rejected during validation",
	},
)

func importFailuresInc() {
	importFailures.Inc()
}
