package statementparser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dirtyBacklogGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "langservice_validation_dirty_backlog",
		Help: "Number of statements currently queued for validation across all documents",
	})
	validationPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "langservice_validation_pass_duration_seconds",
		Help: "Wall-clock duration of one debounce-triggered validation pass",
	})
)
