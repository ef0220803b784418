package predict

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusOK          = "ok"
	statusUnavailable = "unavailable"
	statusError       = "error"
)

// Metrics are the prediction counters exported on /metrics.
type Metrics struct {
	predictions *prometheus.CounterVec
	imputations *prometheus.CounterVec
	duration    prometheus.Histogram
	cacheHits   prometheus.Counter
}

// NewMetrics creates the collectors and registers them when registerer is
// not nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popularity_predictions_total",
			Help: "Prediction requests by outcome",
		}, []string{"status"}),
		imputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "popularity_imputations_total",
			Help: "Feature slots filled from the median table",
		}, []string{"feature", "reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "popularity_prediction_duration_seconds",
			Help:    "Time spent normalizing and scoring a request",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "popularity_prediction_cache_hits_total",
			Help: "Predictions answered from the score cache",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.predictions)
		registerer.MustRegister(m.imputations)
		registerer.MustRegister(m.duration)
		registerer.MustRegister(m.cacheHits)
	}
	return m
}
