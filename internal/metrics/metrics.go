package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ShadowsProjected *prometheus.CounterVec
	SegmentsScored   *prometheus.CounterVec
	RouteQueries     *prometheus.CounterVec
	StageSeconds     *prometheus.HistogramVec
	GeocoderSeconds  *prometheus.HistogramVec
	ActiveWorkers    prometheus.Gauge
	LastRefresh      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ShadowsProjected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "shadeway_shadows_projected_total",
			Help: "Total number of shadow polygons produced, by source kind and status.",
		}, []string{"kind", "status"}),
		SegmentsScored: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "shadeway_segments_scored_total",
			Help: "Total number of network segments scored for shade coverage.",
		}, []string{"status"}),
		RouteQueries: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "shadeway_route_queries_total",
			Help: "Total number of route queries.",
		}, []string{"status"}),
		StageSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shadeway_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		GeocoderSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shadeway_geocoder_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "shadeway_active_workers",
			Help: "Current number of active workers scoring segments.",
		}),
		LastRefresh: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "shadeway_last_refresh_timestamp_seconds",
			Help: "Unix time of the last published coverage snapshot.",
		}),
	}
}
