package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, BackendMemory, cfg.Ledger.Store)
	assert.Equal(t, BackendMemory, cfg.Wallet.Backend)
	assert.Equal(t, ProfilePolicyFirst, cfg.Ledger.ProfilePolicy)
	assert.Equal(t, "Decentratwitter", cfg.Collection.Name)
	assert.Equal(t, "DAPP", cfg.Collection.Symbol)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LEDGER_STORE", "postgres")
	t.Setenv("WALLET_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/mintpress")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("LEDGER_PROFILE_POLICY", "latest")
	t.Setenv("LEDGER_REQUIRE_CID", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, ProfilePolicyLatest, cfg.Ledger.ProfilePolicy)
	assert.True(t, cfg.Ledger.RequireCID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown ledger store", map[string]string{"LEDGER_STORE": "sqlite"}},
		{"postgres without url", map[string]string{"LEDGER_STORE": "postgres"}},
		{"postgres wallet on memory ledger", map[string]string{"WALLET_BACKEND": "postgres", "DATABASE_URL": "postgres://x"}},
		{"redis wallet without url", map[string]string{"WALLET_BACKEND": "redis"}},
		{"redis wallet on postgres ledger", map[string]string{
			"LEDGER_STORE": "postgres", "WALLET_BACKEND": "redis",
			"DATABASE_URL": "postgres://x", "REDIS_URL": "redis://localhost:6379",
		}},
		{"memory wallet on postgres ledger", map[string]string{"LEDGER_STORE": "postgres", "DATABASE_URL": "postgres://x"}},
		{"unknown profile policy", map[string]string{"LEDGER_PROFILE_POLICY": "never"}},
		{"production with dev key", map[string]string{"ENVIRONMENT": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
