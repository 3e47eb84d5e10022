package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mintpress/pkg/domain"
)

// Metrics provides observability for the ledger module.
type Metrics struct {
	CredentialsIssued prometheus.Counter
	PostsCreated      prometheus.Counter
	TipsTotal         prometheus.Counter
	// Tipped value in wei; float precision is enough for dashboards.
	TippedWei prometheus.Counter

	// Rejected operations by operation and error code
	Failures *prometheus.CounterVec

	OperationLatency *prometheus.HistogramVec
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintpress_credentials_issued_total",
			Help: "Credentials issued",
		}),
		PostsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintpress_posts_created_total",
			Help: "Posts created",
		}),
		TipsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintpress_tips_total",
			Help: "Tips recorded",
		}),
		TippedWei: factory.NewCounter(prometheus.CounterOpts{
			Name: "mintpress_tipped_wei_total",
			Help: "Value transferred by tips, in wei",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mintpress_ledger_failures_total",
			Help: "Rejected or failed ledger operations by operation and error code",
		}, []string{"operation", "code"}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mintpress_ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCredentialsIssued() {
	if m != nil {
		m.CredentialsIssued.Inc()
	}
}

func (m *Metrics) IncrementPostsCreated() {
	if m != nil {
		m.PostsCreated.Inc()
	}
}

// RecordTip counts one tip and adds its value.
func (m *Metrics) RecordTip(amount domain.Amount) {
	if m == nil {
		return
	}
	m.TipsTotal.Inc()
	wei, _ := new(big.Float).SetInt(amount.Big()).Float64()
	m.TippedWei.Add(wei)
}

func (m *Metrics) IncrementFailure(operation, code string) {
	if m != nil {
		m.Failures.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) ObserveLatency(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
