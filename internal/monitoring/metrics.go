package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ExtractionsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	PriceUpdates     prometheus.Counter
}

// NewMetrics registers the metric set on the given registerer. Tests
// pass a fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricetrack_extractions_total",
			Help: "The total number of successful extractions by platform",
		}, []string{"platform"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pricetrack_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g. 'fetch_failed', 'no_price', 'db_save_failed'
		PriceUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "pricetrack_price_updates_total",
			Help: "The total number of price history entries written",
		}),
	}
}

func (m *Metrics) IncExtractions(platform string) {
	m.ExtractionsTotal.WithLabelValues(platform).Inc()
}

func (m *Metrics) IncErrors(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

func (m *Metrics) IncPriceUpdates() {
	m.PriceUpdates.Inc()
}
