package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SeriesLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climaserie_series_loads_total",
			Help: "Station series loaded from CSV source files",
		},
		[]string{"estado", "status"},
	)

	SeriesCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "climaserie_series_cache_hits_total",
			Help: "Series requests served from the in-memory cache",
		},
	)

	SeriesLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "climaserie_series_load_duration_seconds",
			Help:    "Time spent parsing a station CSV into a series",
			Buckets: prometheus.DefBuckets,
		},
	)

	RowsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climaserie_rows_dropped_total",
			Help: "Source rows dropped during parsing",
		},
		[]string{"reason"},
	)

	CatalogEntriesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "climaserie_catalog_entries_skipped_total",
			Help: "Malformed station catalog entries skipped during load",
		},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climaserie_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
