// Package metrics holds the Prometheus collectors of songshelf.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songshelf_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songshelf_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// File server metrics
var (
	ListingFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songshelf_listing_fetches_total",
			Help: "Total number of requests made to the file server",
		},
		[]string{"kind", "status"}, // kind: "tracks", "albums", "metadata"
	)

	ListingFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "songshelf_listing_fetch_duration_seconds",
			Help:    "Duration of requests made to the file server",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	AlbumMetadataFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songshelf_album_metadata_failures_total",
			Help: "Number of albums skipped because their metadata could not be read",
		},
	)
)

// Playback metrics
var (
	TransportOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "songshelf_transport_operations_total",
			Help: "Number of transport operations by outcome",
		},
		[]string{"operation", "status"},
	)

	StaleListingsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "songshelf_stale_listings_discarded_total",
			Help: "Folder listings that arrived after a newer load was started",
		},
	)
)

// Status converts an error into a metric status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
