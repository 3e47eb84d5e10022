package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"mintpress/internal/events"
	"mintpress/internal/ledger/store"
	"mintpress/internal/ledger/store/memory"
	pgstore "mintpress/internal/ledger/store/postgres"
	"mintpress/internal/platform/config"
	"mintpress/internal/platform/postgres"
	"mintpress/internal/platform/redis"
	"mintpress/internal/wallet"
)

// eventLog is what the service reads and the relay drains.
type eventLog interface {
	events.Log
	events.Outbox
}

type backends struct {
	ledger store.LedgerTx
	wallet wallet.Wallet
	events eventLog

	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
}

func openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.Ledger.Store {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		b.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			b.close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pgLog := events.NewPostgresLog(db)
		b.ledger = pgstore.New(db, pgLog)
		b.events = pgLog
	default:
		memLog := events.NewMemoryLog()
		b.ledger = memory.New(memLog)
		b.events = memLog
	}

	switch cfg.Wallet.Backend {
	case config.BackendPostgres:
		b.wallet = wallet.NewPostgres(b.db)
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.redis = client
		b.wallet = wallet.NewRedis(client.Client)
	default:
		b.wallet = wallet.NewMemory()
	}

	log.InfoContext(ctx, "backends ready",
		"ledger_store", cfg.Ledger.Store,
		"wallet_backend", cfg.Wallet.Backend,
		"tip_atomicity", atomicity(b.wallet),
	)
	return b, nil
}

func atomicity(w wallet.Wallet) string {
	if wallet.JoinsLedgerTx(w) {
		return "shared_transaction"
	}
	return "compensating_transfer"
}

func newRelay(ctx context.Context, cfg *config.Config, b *backends, reg prometheus.Registerer, log *slog.Logger) (*events.Relay, error) {
	client, err := events.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	b.kafka = client
	if err := events.EnsureTopic(ctx, client, cfg.Kafka.Topic, cfg.Kafka.Partitions); err != nil {
		return nil, fmt.Errorf("ensure topic %s: %w", cfg.Kafka.Topic, err)
	}
	return events.NewRelay(b.events, events.NewKafkaSink(client, cfg.Kafka.Topic),
		events.WithInterval(cfg.Kafka.RelayInterval),
		events.WithBatchSize(cfg.Kafka.RelayBatch),
		events.WithLogger(log),
		events.WithRegisterer(reg),
	), nil
}

func (b *backends) ping(ctx context.Context) error {
	if b.db != nil {
		if err := b.db.PingContext(ctx); err != nil {
			return err
		}
	}
	if b.redis != nil {
		if err := b.redis.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *backends) close() {
	if b.kafka != nil {
		b.kafka.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
