package suggest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	memoHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_suggestion_memo_hits_total",
		Help: "Total number of suggestion requests served from the memoization cache",
	})
	memoMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "langservice_suggestion_memo_misses_total",
		Help: "Total number of suggestion requests that required recomputation",
	})
)
