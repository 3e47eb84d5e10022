package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mintpress/pkg/platform/circuit"
)

const (
	defaultRelayInterval = time.Second
	defaultRelayBatch    = 100
)

// Relay forwards unpublished events from the outbox to a sink. Delivery is
// at-least-once: a crash between Publish and MarkPublished re-sends the batch.
type Relay struct {
	outbox   Outbox
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
	breaker  *circuit.Breaker

	published prometheus.Counter
	failures  prometheus.Counter
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithBreaker replaces the default sink circuit breaker.
func WithBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		if b != nil {
			r.breaker = b
		}
	}
}

// WithRegisterer registers relay metrics on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) RelayOption {
	return func(r *Relay) {
		r.registerMetrics(reg)
	}
}

// NewRelay constructs a Relay.
func NewRelay(outbox Outbox, sink Sink, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:   outbox,
		sink:     sink,
		logger:   slog.Default(),
		interval: defaultRelayInterval,
		batch:    defaultRelayBatch,
		breaker:  circuit.New("event-relay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.published == nil {
		r.registerMetrics(prometheus.DefaultRegisterer)
	}
	return r
}

func (r *Relay) registerMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	r.published = factory.NewCounter(prometheus.CounterOpts{
		Name: "mintpress_events_relayed_total",
		Help: "Observations forwarded to the external sink",
	})
	r.failures = factory.NewCounter(prometheus.CounterOpts{
		Name: "mintpress_events_relay_failures_total",
		Help: "Failed relay attempts",
	})
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.PublishOnce(ctx)
			if err != nil {
				r.failures.Inc()
				r.logger.WarnContext(ctx, "event relay failed", "error", err)
				break
			}
			if n < r.batch {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PublishOnce forwards at most one batch and returns how many events it sent.
// While the sink breaker is open it sends nothing until the next probe. An
// empty outbox does not use up a probe.
func (r *Relay) PublishOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.Unpublished(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 || !r.breaker.Allow() {
		return 0, nil
	}
	if err := r.sink.Publish(ctx, pending); err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "event sink circuit opened", "breaker", r.breaker.Name())
		}
		return 0, err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "event sink circuit closed", "breaker", r.breaker.Name())
	}
	seqs := make([]uint64, len(pending))
	for i, e := range pending {
		seqs[i] = e.Seq
	}
	if err := r.outbox.MarkPublished(ctx, seqs); err != nil {
		return 0, err
	}
	r.published.Add(float64(len(pending)))
	return len(pending), nil
}
