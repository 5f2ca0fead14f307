package generation

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/starford/quest/internal/apperr"
	"github.com/starford/quest/internal/models"
)

// Metrics holds the generation collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	cost     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the generation collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by operation, provider and outcome.",
		}, []string{"operation", "provider", "outcome"}),
		cost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quest",
			Subsystem: "generation",
			Name:      "cost_usd_total",
			Help:      "Estimated provider spend in USD.",
		}, []string{"provider"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quest",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Duration of generation requests in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation", "provider"}),
	}
}

// outcome classifies err for the requests counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperr.ErrContentTooShort):
		return "content_too_short"
	case errors.Is(err, apperr.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrProvider):
		return "provider_error"
	case errors.Is(err, apperr.ErrDecode):
		return "decode_error"
	default:
		return "error"
	}
}

func (m *Metrics) observe(op string, p models.Provider, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, string(p), outcome(err)).Inc()
	m.duration.WithLabelValues(op, string(p)).Observe(d.Seconds())
}

func (m *Metrics) addCost(p models.Provider, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.cost.WithLabelValues(string(p)).Add(usd)
}
