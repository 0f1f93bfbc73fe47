// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultJWTSigningKey = "dev-secret-key-change-in-production"
	defaultKeySealSecret = "dev-key-seal-secret-change-in-production"
)

// Config is the full process configuration.
type Config struct {
	Server       Server
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Ledger       LedgerConfig
	ContentStore ContentStoreConfig
	DID          DIDConfig
	Oracle       OracleConfig
	Reconciler   ReconcilerConfig
	Log          LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	JWTIssuer     string
}

// DatabaseConfig selects the credential and DID stores. An empty URL keeps
// everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the revocation cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// KafkaConfig configures the audit sink. No brokers keeps audit in memory.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// LedgerConfig configures the on-chain revocation oracle. An empty RPC URL
// selects the deterministic in-process oracle.
type LedgerConfig struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	PrivateKeyHex   string
	GasLimit        uint64
}

// ContentStoreConfig configures document storage. An empty API URL keeps
// documents in memory.
type ContentStoreConfig struct {
	IPFSAPIURL     string
	AttemptTimeout time.Duration
	MaxAttempts    int
}

// DIDConfig configures the local DID method and private key sealing.
type DIDConfig struct {
	Method        string
	KeySealSecret string
}

// OracleConfig tunes the resilience wrapper around the revocation oracle.
type OracleConfig struct {
	AttemptTimeout   time.Duration
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// ReconcilerConfig drives the pending-anchor worker.
type ReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	chainID, err := envInt64("LEDGER_CHAIN_ID", 1337)
	if err != nil {
		return Config{}, err
	}
	gasLimit, err := envInt64("LEDGER_GAS_LIMIT", 200_000)
	if err != nil {
		return Config{}, err
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		errs = append(errs, err)
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		errs = append(errs, err)
		return v
	}

	cfg := Config{
		Server: Server{
			Addr:          envString("PIXEL_ADDR", ":8080"),
			Environment:   envString("PIXEL_ENV", "development"),
			JWTSigningKey: envString("JWT_SIGNING_KEY", defaultJWTSigningKey),
			JWTIssuer:     os.Getenv("JWT_ISSUER"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    intVar("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    intVar("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: durVar("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", 10),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durVar("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durVar("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durVar("REDIS_WRITE_TIMEOUT", 3*time.Second),
			KeyPrefix:    envString("REDIS_KEY_PREFIX", "pixel:revoked:"),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "credential-audit"),
		},
		Ledger: LedgerConfig{
			RPCURL:          os.Getenv("LEDGER_RPC_URL"),
			ContractAddress: os.Getenv("LEDGER_CONTRACT_ADDRESS"),
			ChainID:         chainID,
			PrivateKeyHex:   os.Getenv("LEDGER_PRIVATE_KEY"),
			GasLimit:        uint64(gasLimit),
		},
		ContentStore: ContentStoreConfig{
			IPFSAPIURL:     os.Getenv("IPFS_API_URL"),
			AttemptTimeout: durVar("CONTENT_STORE_ATTEMPT_TIMEOUT", 5*time.Second),
			MaxAttempts:    intVar("CONTENT_STORE_MAX_ATTEMPTS", 2),
		},
		DID: DIDConfig{
			Method:        envString("DID_METHOD", "did:pixel"),
			KeySealSecret: envString("DID_KEY_SEAL_SECRET", defaultKeySealSecret),
		},
		Oracle: OracleConfig{
			AttemptTimeout:   durVar("ORACLE_ATTEMPT_TIMEOUT", 2*time.Second),
			MaxAttempts:      intVar("ORACLE_MAX_ATTEMPTS", 3),
			InitialBackoff:   durVar("ORACLE_INITIAL_BACKOFF", 100*time.Millisecond),
			MaxBackoff:       durVar("ORACLE_MAX_BACKOFF", time.Second),
			FailureThreshold: intVar("ORACLE_FAILURE_THRESHOLD", 5),
			Cooldown:         durVar("ORACLE_COOLDOWN", 10*time.Second),
		},
		Reconciler: ReconcilerConfig{
			Interval:  durVar("RECONCILER_INTERVAL", 30*time.Second),
			BatchSize: intVar("RECONCILER_BATCH_SIZE", 50),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("PIXEL_ADDR must not be empty"))
	}
	if !strings.HasPrefix(c.DID.Method, "did:") || strings.Count(c.DID.Method, ":") != 1 {
		errs = append(errs, fmt.Errorf("DID_METHOD %q must look like did:<name>", c.DID.Method))
	}
	if c.Oracle.MaxAttempts < 1 || c.ContentStore.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Oracle.AttemptTimeout <= 0 || c.ContentStore.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("attempt timeouts must be positive"))
	}
	if c.Reconciler.Interval <= 0 || c.Reconciler.BatchSize < 1 {
		errs = append(errs, errors.New("reconciler interval and batch size must be positive"))
	}
	if c.Ledger.RPCURL != "" {
		if c.Ledger.ContractAddress == "" || c.Ledger.PrivateKeyHex == "" {
			errs = append(errs, errors.New("LEDGER_CONTRACT_ADDRESS and LEDGER_PRIVATE_KEY are required with LEDGER_RPC_URL"))
		}
	}
	if c.IsProduction() {
		if c.Server.JWTSigningKey == defaultJWTSigningKey {
			errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
		}
		if c.DID.KeySealSecret == defaultKeySealSecret {
			errs = append(errs, errors.New("DID_KEY_SEAL_SECRET must be set in production"))
		}
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set in production"))
		}
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envInt64(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
