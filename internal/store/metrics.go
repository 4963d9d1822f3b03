package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_store_writes_total",
			Help: "Events written to the storage backend",
		},
		[]string{"backend"},
	)

	storeDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chainreplay_store_deletes_total",
			Help: "Events deleted from the storage backend",
		},
		[]string{"backend"},
	)
)

func storeWritesAdd(backend string, n int) {
	storeWrites.WithLabelValues(backend).Add(float64(n))
}

func storeDeletesAdd(backend string, n int) {
	storeDeletes.WithLabelValues(backend).Add(float64(n))
}
