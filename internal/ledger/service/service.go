// Package service implements the ledger operations: credential issuance,
// profile selection, posting and tipping.
//
// Every mutation runs inside store.LedgerTx.RunInTx, so checks and effects of
// one operation are never interleaved with another. Reads go through View.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mintpress/internal/events"
	"mintpress/internal/ledger/metrics"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/store"
	"mintpress/internal/wallet"
	dErrors "mintpress/pkg/domain-errors"
	"mintpress/pkg/platform/sentinel"
	"mintpress/pkg/requestcontext"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	tracerName      = "mintpress/ledger"
)

// Service is the ledger facade used by transports.
type Service struct {
	tx         store.LedgerTx
	wallet     wallet.Wallet
	events     events.Log
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	policy     models.ProfilePolicy
	requireCID bool
	collection models.Collection
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithProfilePolicy selects what issuance does to the requester's profile.
// Unknown policies are ignored.
func WithProfilePolicy(policy models.ProfilePolicy) Option {
	return func(s *Service) {
		if policy.IsValid() {
			s.policy = policy
		}
	}
}

// WithRequireCID makes CreatePost reject hashes that are not IPFS CIDs.
func WithRequireCID(require bool) Option {
	return func(s *Service) {
		s.requireCID = require
	}
}

func WithCollection(c models.Collection) Option {
	return func(s *Service) {
		s.collection = c
	}
}

// New constructs the ledger service.
func New(tx store.LedgerTx, w wallet.Wallet, log events.Log, opts ...Option) *Service {
	s := &Service{
		tx:         tx,
		wallet:     w,
		events:     log,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
		policy:     models.ProfilePolicyFirst,
		collection: models.Collection{Name: "Decentratwitter", Symbol: "DAPP"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the static collection metadata.
func (s *Service) Collection() models.Collection {
	return s.collection
}

// start opens a span for op and returns a func that closes it and records
// latency and failures.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		s.metrics.ObserveLatency(op, time.Since(begin))
		if err != nil {
			code := string(dErrors.CodeOf(err))
			s.metrics.IncrementFailure(op, code)
			span.RecordError(err)
			span.SetStatus(codes.Error, code)
		}
		span.End()
	}
}

// internalError keeps domain errors as they are and hides everything else
// behind an internal error.
func internalError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}

func (s *Service) logAttrs(ctx context.Context, attrs ...any) []any {
	return append(attrs, "request_id", requestcontext.RequestID(ctx))
}

func pageBounds(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
