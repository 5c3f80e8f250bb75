package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PredictionCounter counts prediction calls, successful or not.
var PredictionCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "predictions_total",
	Help: "Total prediction calls",
})

// PredictionLatency observes end-to-end prediction call latency.
var PredictionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "prediction_latency_seconds",
	Help: "Latency of prediction calls in seconds",
})
