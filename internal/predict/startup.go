package predict

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/krithika183/spotify-popularity-predicton/internal/features"
	"github.com/krithika183/spotify-popularity-predicton/internal/model"
)

// Options locate the startup artifacts.
type Options struct {
	ModelPath     string
	DataPath      string
	MaxModelBytes int64
	CacheSize     int
	Registerer    prometheus.Registerer
}

// Startup loads the model and the reference dataset and computes the median
// table. It never fails: any loading problem yields a Degraded service that
// reports the StartupError on every request.
func Startup(opts Options) *Service {
	metrics := NewMetrics(opts.Registerer)

	m, err := model.LoadModel(opts.ModelPath, opts.MaxModelBytes)
	if err != nil {
		return degraded("model", err, metrics)
	}

	table, err := features.LoadReferenceTable(opts.DataPath)
	if err != nil {
		return degraded("reference data", err, metrics)
	}
	medians := features.BuildMedians(table)

	svc, err := NewService(m, medians, Config{
		Info:      m.Info,
		CacheSize: opts.CacheSize,
		Metrics:   metrics,
	})
	if err != nil {
		return degraded("model", err, metrics)
	}

	log.Info().
		Str("model", m.Info.Model).
		Str("uuid", m.Info.UUID).
		Str("type", m.Info.Type).
		Float64("size_mb", m.Info.SizeMB).
		Int("reference_rows", table.Rows()).
		Int("medians", medians.Len()).
		Msg("Model and original data loaded successfully")
	return svc
}

func degraded(stage string, err error, metrics *Metrics) *Service {
	startupErr := &StartupError{Stage: stage, Err: err}
	log.Error().Err(startupErr).Msg("Error loading model or data, predictions disabled")
	return NewDegraded(startupErr, metrics)
}
