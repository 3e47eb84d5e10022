package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "mintpress/internal/jwt_token"
	"mintpress/internal/ledger/handler"
	ledgermetrics "mintpress/internal/ledger/metrics"
	"mintpress/internal/ledger/models"
	"mintpress/internal/ledger/service"
	"mintpress/internal/platform/config"
	"mintpress/internal/platform/httpserver"
	"mintpress/internal/platform/logger"
	"mintpress/internal/platform/metrics"
	"mintpress/internal/platform/middleware"
)

// main wires high-level dependencies and owns the process lifecycle.
// Business logic lives in internal/ledger.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mintpress exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	svc := service.New(deps.ledger, deps.wallet, deps.events,
		service.WithLogger(log),
		service.WithMetrics(ledgermetrics.New(reg)),
		service.WithProfilePolicy(models.ProfilePolicy(cfg.Ledger.ProfilePolicy)),
		service.WithRequireCID(cfg.Ledger.RequireCID),
		service.WithCollection(models.Collection{Name: cfg.Collection.Name, Symbol: cfg.Collection.Symbol}),
	)
	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(metrics.New(reg)))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", healthz(deps))
	handler.New(svc, handler.Config{
		Validator:  jwt,
		Issuer:     jwt,
		AdminToken: cfg.Auth.AdminAPIToken,
		TokenTTL:   cfg.Auth.TokenTTL,
	}, log).Register(r)

	srv := httpserver.New(cfg.Server, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mintpress",
			"addr", cfg.Server.Addr,
			"ledger_store", cfg.Ledger.Store,
			"wallet_backend", cfg.Wallet.Backend,
			"profile_policy", cfg.Ledger.ProfilePolicy,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.KafkaEnabled() {
		relay, err := newRelay(ctx, cfg, deps, reg, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event relay: %w", err)
			}
			return nil
		})
	} else {
		log.Info("kafka brokers not configured, event relay disabled")
	}

	return g.Wait()
}

func healthz(deps *backends) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.ping(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
