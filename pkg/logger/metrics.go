package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics. Every hub reports under its identity string, e.g. "SMA(5)".

var (
	HubArrivalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_arrivals_total",
			Help: "Total number of classified arrivals (append, update, insert, remove)",
		},
		[]string{"hub", "kind"},
	)

	HubReplayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_replayed_items_total",
			Help: "Total number of items replayed through an indicator transform",
		},
		[]string{"hub"},
	)

	HubPrunedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_pruned_items_total",
			Help: "Total number of cache entries dropped by pruning",
		},
		[]string{"hub"},
	)

	HubFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_faults_total",
			Help: "Total number of faults and rejected mutations",
		},
		[]string{"hub", "reason"},
	)

	HubRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_rebuild_duration_seconds",
			Help:    "Duration of a single hub rebuild in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		},
		[]string{"hub"},
	)
)
