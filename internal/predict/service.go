package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hnlq715/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/krithika183/spotify-popularity-predicton/internal/features"
	"github.com/krithika183/spotify-popularity-predicton/internal/model"
)

// State is fixed at startup and never changes afterwards.
type State int

const (
	Ready State = iota
	Degraded
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "degraded"
}

// Result is a successful prediction.
type Result struct {
	Popularity  int
	Score       float64
	Vector      features.Vector
	Imputations []features.Imputation
}

// Description summarizes what the service was started with.
type Description struct {
	State    string                    `json:"state"`
	Model    model.Info                `json:"model"`
	Features []string                  `json:"features"`
	Medians  map[string]features.Entry `json:"medians"`
}

// Service owns the loaded model and median table. Both are read only after
// construction, so Predict can be called from any number of goroutines.
type Service struct {
	regressor  model.Regressor
	info       model.Info
	medians    features.MedianTable
	startupErr error
	cache      *lru.Cache
	metrics    *Metrics
}

// Config tunes a Ready service.
type Config struct {
	Info      model.Info
	CacheSize int
	Metrics   *Metrics
}

// NewService builds a Ready service. The regressor must have been trained on
// exactly the canonical feature order.
func NewService(regressor model.Regressor, medians features.MedianTable, cfg Config) (*Service, error) {
	if err := checkFeatureOrder(regressor.Features()); err != nil {
		return nil, err
	}

	s := &Service{
		regressor: regressor,
		info:      cfg.Info,
		medians:   medians,
		metrics:   cfg.Metrics,
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// NewDegraded builds a service that refuses every prediction because
// startup failed with err.
func NewDegraded(err error, metrics *Metrics) *Service {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Service{startupErr: err, metrics: metrics}
}

func checkFeatureOrder(trained []string) error {
	expected := features.Names()
	if len(trained) != len(expected) {
		return fmt.Errorf("model expects %d features, service provides %d", len(trained), len(expected))
	}
	for i := range expected {
		if trained[i] != expected[i] {
			return fmt.Errorf("model feature %d is %q, expected %q", i, trained[i], expected[i])
		}
	}
	return nil
}

// State reports whether the service can predict.
func (s *Service) State() State {
	if s.startupErr != nil {
		return Degraded
	}
	return Ready
}

// StartupErr is the reason the service is Degraded, or nil.
func (s *Service) StartupErr() error {
	return s.startupErr
}

// Medians returns the fallback table.
func (s *Service) Medians() features.MedianTable {
	return s.medians
}

// Describe reports the model and median table the service runs with.
func (s *Service) Describe() Description {
	d := Description{
		State:   s.State().String(),
		Model:   s.info,
		Medians: s.medians.Entries(),
	}
	if s.regressor != nil {
		d.Features = s.regressor.Features()
	}
	return d
}

// Predict normalizes a raw request and scores it. The score is rounded half
// to even. A Degraded service fails with ErrModelUnavailable without looking
// at the request.
func (s *Service) Predict(ctx context.Context, raw map[string]any) (Result, error) {
	if s.State() == Degraded {
		s.metrics.predictions.WithLabelValues(statusUnavailable).Inc()
		return Result{}, ErrModelUnavailable
	}

	start := time.Now()
	defer func() {
		s.metrics.duration.Observe(time.Since(start).Seconds())
	}()

	logger := log.Ctx(ctx)
	vec, notices := features.Normalize(raw, s.medians)
	for _, n := range notices {
		s.metrics.imputations.WithLabelValues(n.Feature, string(n.Reason)).Inc()
		logger.Warn().
			Str("feature", n.Feature).
			Str("reason", string(n.Reason)).
			Float64("value", n.Value).
			Interface("raw", n.Raw).
			Msg("imputing feature with median")
	}

	score, err := s.score(vec)
	if err != nil {
		s.metrics.predictions.WithLabelValues(statusError).Inc()
		logger.Error().Err(err).Msg("prediction failed")
		return Result{}, err
	}

	s.metrics.predictions.WithLabelValues(statusOK).Inc()
	return Result{
		Popularity:  int(math.RoundToEven(score)),
		Score:       score,
		Vector:      vec,
		Imputations: notices,
	}, nil
}

func (s *Service) score(vec features.Vector) (float64, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(vec); ok {
			s.metrics.cacheHits.Inc()
			return v.(float64), nil
		}
	}

	score, err := s.regressor.Predict(vec.Slice())
	if err != nil {
		return 0, &PredictionError{Err: err}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &PredictionError{Err: errors.New("model returned a non-finite score")}
	}
	// Rounded scores must fit an int. float64(math.MaxInt) rounds up past it.
	if r := math.RoundToEven(score); r < math.MinInt || r >= -math.MinInt {
		return 0, &PredictionError{Err: fmt.Errorf("model score %g out of range", score)}
	}

	if s.cache != nil {
		s.cache.Add(vec, score)
	}
	return score, nil
}
