// Package metrics holds the process-wide prometheus collectors the HTTP
// surface registers at startup and exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RequestDuration tracks handler latency per endpoint and outcome.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gtoverlay",
	Name:      "request_duration_seconds",
	Help:      "HTTP handler latency by endpoint and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"endpoint", "status"})

// PipelineStageDuration tracks time spent in internal pipeline stages. The
// weighted overlay ("weighted_overlay") and mask application
// ("apply_masks") record into it; catalog reads and analytics are not
// timed here.
var PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gtoverlay",
	Name:      "pipeline_stage_duration_seconds",
	Help:      "Pipeline stage latency by stage name.",
	Buckets:   prometheus.DefBuckets,
}, []string{"stage"})

// CatalogTileReads counts tile reads against the catalog, split by hit/miss
// against the in-process LRU cache.
var CatalogTileReads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gtoverlay",
	Name:      "catalog_tile_reads_total",
	Help:      "Catalog tile reads by cache outcome.",
}, []string{"outcome"})
