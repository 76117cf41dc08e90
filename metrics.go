package aerialmap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tileRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerialmap_tile_requests_total",
		Help: "Number of tile fetches started, per tile server.",
	}, []string{"server"})

	tileFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerialmap_tile_fetch_errors_total",
		Help: "Number of tile fetches that failed or produced an undecodable payload.",
	}, []string{"server"})

	tileFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aerialmap_tile_fetch_duration_seconds",
		Help:    "Wall time from fetch start to decoded texture.",
		Buckets: prometheus.DefBuckets,
	})
)
