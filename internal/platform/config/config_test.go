package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "did:pixel", cfg.DID.Method)
	assert.Equal(t, 2*time.Second, cfg.Oracle.AttemptTimeout)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Empty(t, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PIXEL_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ORACLE_ATTEMPT_TIMEOUT", "750ms")
	t.Setenv("RECONCILER_BATCH_SIZE", "7")
	t.Setenv("LEDGER_CHAIN_ID", "11155111")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Oracle.AttemptTimeout)
	assert.Equal(t, 7, cfg.Reconciler.BatchSize)
	assert.Equal(t, int64(11155111), cfg.Ledger.ChainID)
}

func TestFromEnv_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("ORACLE_MAX_ATTEMPTS", "three")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORACLE_MAX_ATTEMPTS")
}

func TestValidate(t *testing.T) {
	t.Run("production requires real secrets", func(t *testing.T) {
		t.Setenv("PIXEL_ENV", "production")
		cfg, err := FromEnv()
		require.NoError(t, err)
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")
		assert.Contains(t, err.Error(), "DID_KEY_SEAL_SECRET")
	})

	t.Run("ledger needs contract and key", func(t *testing.T) {
		t.Setenv("LEDGER_RPC_URL", "http://localhost:8545")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects malformed did method", func(t *testing.T) {
		t.Setenv("DID_METHOD", "pixel")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Error(t, cfg.Validate())
	})
}
