package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 持有服务进程的全部 Prometheus 指标。
type Metrics struct {
	Requests      *prometheus.CounterVec
	ScoreDuration prometheus.Histogram
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	Reloads       prometheus.Counter
}

// NewMetrics 创建并注册全部指标。
func NewMetrics() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "matchkit_requests_total",
			Help: "Total HTTP requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		ScoreDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchkit_score_duration_seconds",
			Help:    "Latency of a single scoring call",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "matchkit_score_cache_hits_total",
			Help: "Score cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "matchkit_score_cache_misses_total",
			Help: "Score cache misses",
		}),
		Reloads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "matchkit_artifact_reloads_total",
			Help: "Successful artifact hot reloads",
		}),
	}
}
