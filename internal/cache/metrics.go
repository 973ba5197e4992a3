package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_statement_cache_hits_total",
		Help: "Total number of statement cache Get calls that found an entry",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_statement_cache_misses_total",
		Help: "Total number of statement cache Get calls that found nothing",
	})
	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_statement_cache_evictions_total",
		Help: "Total number of statement cache entries evicted to stay within budget",
	})
	forcedDirtyEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_statement_cache_forced_dirty_evictions_total",
		Help: "Total number of dirty entries evicted because a document's budget was exceeded by dirty entries alone",
	})
	cacheBytesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "langservice_statement_cache_bytes",
		Help: "Sum of byte_size across all live statement cache entries, across all documents",
	})
)
