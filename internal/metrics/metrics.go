package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recommender",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	RecommendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recommender",
		Name:      "recommend_requests_total",
		Help:      "Recommendation requests by strategy and whether they were served from cache.",
	}, []string{"strategy", "cached"})

	StrategyFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recommender",
		Name:      "recommend_strategy_failures_total",
		Help:      "Strategy runs that failed and contributed nothing.",
	}, []string{"strategy"})

	StrategyDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recommender",
		Name:      "recommend_strategy_duration_seconds",
		Help:      "Strategy run duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"strategy"})

	CacheEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recommender",
		Name:      "recommend_cache_events_total",
		Help:      "Recommendation cache events (hit, miss, write, invalidate, purge).",
	}, []string{"event"})

	CatalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recommender",
		Name:      "catalog_requests_total",
		Help:      "Catalog API requests by endpoint and result status.",
	}, []string{"endpoint", "status"})

	CatalogRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recommender",
		Name:      "catalog_request_duration_seconds",
		Help:      "Catalog API request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	CatalogBreakerOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "recommender",
		Name:      "catalog_breaker_open",
		Help:      "Whether the catalog circuit breaker is open (1) or not (0).",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		RecommendRequestsTotal,
		StrategyFailuresTotal,
		StrategyDuration,
		CacheEventsTotal,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		CatalogBreakerOpen,
	)
}
