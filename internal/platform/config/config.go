package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage and wallet backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Profile policies applied when a credential is issued.
const (
	ProfilePolicyFirst  = "first"
	ProfilePolicyLatest = "latest"
)

// Config captures process configuration. Values come from the environment;
// defaults live in the struct tags so main stays lean.
type Config struct {
	Server     Server
	Ledger     Ledger
	Wallet     Wallet
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	Auth       Auth
	Log        Log
	Collection Collection
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"MINTPRESS_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
}

// Ledger selects the ledger store and its behavioral switches.
type Ledger struct {
	Store         string `env:"LEDGER_STORE" envDefault:"memory"`
	ProfilePolicy string `env:"LEDGER_PROFILE_POLICY" envDefault:"first"`
	RequireCID    bool   `env:"LEDGER_REQUIRE_CID" envDefault:"false"`
}

// Wallet selects the value-transfer backend.
type Wallet struct {
	Backend string `env:"WALLET_BACKEND" envDefault:"memory"`
}

// Database configures the postgres connection shared by the ledger and wallet stores.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig configures the Redis client used by the redis wallet.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka configures the observation relay. Empty Brokers disables it.
type Kafka struct {
	Brokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic         string        `env:"KAFKA_TOPIC" envDefault:"mintpress.ledger.events"`
	Partitions    int32         `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
	RelayInterval time.Duration `env:"KAFKA_RELAY_INTERVAL" envDefault:"1s"`
	RelayBatch    int           `env:"KAFKA_RELAY_BATCH" envDefault:"100"`
}

// Auth configures caller tokens and the admin surface.
type Auth struct {
	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"mintpress"`
	TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"1h"`
	AdminAPIToken string        `env:"ADMIN_API_TOKEN" envDefault:"dev-admin-token"`
}

// Log configures the process logger.
type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Collection is the static naming metadata of the credential collection.
type Collection struct {
	Name   string `env:"COLLECTION_NAME" envDefault:"Decentratwitter"`
	Symbol string `env:"COLLECTION_SYMBOL" envDefault:"DAPP"`
}

// Load parses and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Ledger.Store {
	case BackendMemory, BackendPostgres:
	default:
		return fmt.Errorf("LEDGER_STORE must be memory or postgres, got %q", c.Ledger.Store)
	}
	switch c.Wallet.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("WALLET_BACKEND must be memory, redis or postgres, got %q", c.Wallet.Backend)
	}
	switch c.Ledger.ProfilePolicy {
	case ProfilePolicyFirst, ProfilePolicyLatest:
	default:
		return fmt.Errorf("LEDGER_PROFILE_POLICY must be first or latest, got %q", c.Ledger.ProfilePolicy)
	}
	if c.usesPostgres() && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required for postgres backends")
	}
	if c.Wallet.Backend == BackendPostgres && c.Ledger.Store != BackendPostgres {
		return fmt.Errorf("WALLET_BACKEND=postgres requires LEDGER_STORE=postgres")
	}
	// A wallet outside the ledger transaction is compensated under the ledger
	// lock, which only the in-process memory ledger provides.
	if c.Ledger.Store == BackendPostgres && c.Wallet.Backend != BackendPostgres {
		return fmt.Errorf("LEDGER_STORE=postgres requires WALLET_BACKEND=postgres, got %q", c.Wallet.Backend)
	}
	if c.Wallet.Backend == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required for the redis wallet")
	}
	if strings.TrimSpace(c.Collection.Name) == "" || strings.TrimSpace(c.Collection.Symbol) == "" {
		return fmt.Errorf("COLLECTION_NAME and COLLECTION_SYMBOL must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return nil
}

// KafkaEnabled reports whether the observation relay should run.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) usesPostgres() bool {
	return c.Ledger.Store == BackendPostgres || c.Wallet.Backend == BackendPostgres
}
