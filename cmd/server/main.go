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
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"pixelgenesis/internal/contentstore"
	"pixelgenesis/internal/contentstore/kubo"
	contentmemory "pixelgenesis/internal/contentstore/memory"
	credhandler "pixelgenesis/internal/credential/handler"
	credmetrics "pixelgenesis/internal/credential/metrics"
	"pixelgenesis/internal/credential/reconcile"
	credservice "pixelgenesis/internal/credential/service"
	credstore "pixelgenesis/internal/credential/store"
	didhandler "pixelgenesis/internal/did/handler"
	"pixelgenesis/internal/did/keyseal"
	didservice "pixelgenesis/internal/did/service"
	didstore "pixelgenesis/internal/did/store"
	"pixelgenesis/internal/platform/config"
	"pixelgenesis/internal/platform/httpserver"
	"pixelgenesis/internal/platform/kafka"
	"pixelgenesis/internal/platform/logger"
	"pixelgenesis/internal/platform/metrics"
	"pixelgenesis/internal/platform/postgres"
	"pixelgenesis/internal/platform/redis"
	"pixelgenesis/internal/revocation"
	"pixelgenesis/internal/revocation/cache"
	"pixelgenesis/internal/revocation/fake"
	"pixelgenesis/internal/revocation/ledger"
	"pixelgenesis/internal/revocation/resilient"
	httptransport "pixelgenesis/internal/transport/http"
	"pixelgenesis/pkg/platform/audit"
	auditkafka "pixelgenesis/pkg/platform/audit/kafka"
	"pixelgenesis/pkg/platform/audit/publisher"
	auditmemory "pixelgenesis/pkg/platform/audit/store/memory"
	"pixelgenesis/pkg/platform/circuit"
	"pixelgenesis/pkg/platform/middleware/auth"
	"pixelgenesis/pkg/platform/retry"
)

const auditBufferSize = 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pixelgenesis:", err)
		os.Exit(1)
	}
}

// run wires dependencies, serves HTTP and drives the reconciler until a
// termination signal arrives.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]httptransport.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	var (
		dids  didservice.Store  = didstore.NewInMemoryStore()
		creds credservice.Store = credstore.NewInMemoryStore()
	)
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		dids = didstore.NewPostgres(db)
		creds = credstore.NewPostgres(db)
		checks["postgres"] = db.PingContext
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, credentials and DIDs are kept in memory")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		closers = append(closers, func() { _ = redisClient.Close() })
		checks["redis"] = redisClient.Health
	}

	emitter, closeAudit, err := newAuditPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	closers = append(closers, closeAudit)

	sealer, err := keyseal.New(cfg.DID.KeySealSecret)
	if err != nil {
		return fmt.Errorf("key sealer: %w", err)
	}
	didSvc := didservice.New(dids, sealer,
		didservice.WithMethod(cfg.DID.Method),
		didservice.WithLogger(log),
		didservice.WithAuditPublisher(emitter),
	)

	oracle, err := newOracle(ctx, cfg, reg, redisClient, log)
	if err != nil {
		return err
	}

	credSvc := credservice.New(creds, didSvc, oracle,
		credservice.WithContentStore(newContentStore(cfg.ContentStore, log)),
		credservice.WithAuditPublisher(emitter),
		credservice.WithMetrics(credmetrics.New(reg)),
		credservice.WithLogger(log),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Validator:   auth.NewValidator(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer),
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Checks:      checks,
		DIDs:        didhandler.New(didSvc, log),
		Credentials: credhandler.New(credSvc, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router)
	worker := reconcile.NewWorker(credSvc, cfg.Reconciler.Interval, cfg.Reconciler.BatchSize,
		reconcile.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pixelgenesis", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// newOracle builds the revocation oracle chain: ledger or in-process oracle,
// wrapped with retries and a circuit breaker, then the Redis cache when one is
// configured.
func newOracle(ctx context.Context, cfg config.Config, reg prometheus.Registerer, rc *redis.Client, log *slog.Logger) (revocation.Oracle, error) {
	var base revocation.Oracle
	if cfg.Ledger.RPCURL != "" {
		eth, err := ethclient.DialContext(ctx, cfg.Ledger.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial ledger: %w", err)
		}
		client, err := ledger.New(eth, cfg.Ledger.ContractAddress, cfg.Ledger.PrivateKeyHex, cfg.Ledger.ChainID,
			ledger.WithGasLimit(cfg.Ledger.GasLimit),
		)
		if err != nil {
			eth.Close()
			return nil, err
		}
		log.Info("using ledger revocation oracle", "contract", cfg.Ledger.ContractAddress, "from", client.From().Hex())
		base = client
	} else {
		log.Warn("LEDGER_RPC_URL not set, using the in-process revocation oracle")
		base = fake.New()
	}

	var oracle revocation.Oracle = resilient.New(base,
		resilient.WithPolicy(retry.Policy{
			MaxAttempts:    cfg.Oracle.MaxAttempts,
			AttemptTimeout: cfg.Oracle.AttemptTimeout,
			InitialBackoff: cfg.Oracle.InitialBackoff,
			MaxBackoff:     cfg.Oracle.MaxBackoff,
		}),
		resilient.WithBreaker(circuit.New("revocation-oracle",
			circuit.WithFailureThreshold(cfg.Oracle.FailureThreshold),
			circuit.WithCooldown(cfg.Oracle.Cooldown),
		)),
		resilient.WithMetrics(resilient.NewMetrics(reg)),
		resilient.WithLogger(log),
	)
	if rc != nil {
		oracle = cache.New(oracle, rc.Client,
			cache.WithKeyPrefix(cfg.Redis.KeyPrefix),
			cache.WithLogger(log),
		)
	}
	return oracle, nil
}

func newContentStore(cfg config.ContentStoreConfig, log *slog.Logger) contentstore.Store {
	if cfg.IPFSAPIURL == "" {
		log.Warn("IPFS_API_URL not set, credential documents are kept in memory")
		return contentmemory.New()
	}
	return kubo.New(cfg.IPFSAPIURL,
		kubo.WithPolicy(retry.Policy{
			MaxAttempts:    cfg.MaxAttempts,
			AttemptTimeout: cfg.AttemptTimeout,
		}),
		kubo.WithLogger(log),
	)
}

// newAuditPublisher sends audit events to Kafka when brokers are configured and
// keeps them in memory otherwise. The returned func drains the buffer.
func newAuditPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (*publisher.Publisher, func(), error) {
	client, err := kafka.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	var sink audit.Sink
	if client == nil {
		log.Warn("KAFKA_BROKERS not set, audit events are kept in memory")
		sink = auditmemory.NewInMemoryStore()
	} else {
		if err := kafka.EnsureTopic(ctx, kafka.NewAdmin(client), cfg.AuditTopic); err != nil {
			client.Close()
			return nil, nil, err
		}
		sink = auditkafka.NewSink(client, cfg.AuditTopic)
	}
	pub := publisher.NewPublisher(sink, publisher.WithAsyncBuffer(auditBufferSize))
	return pub, func() {
		pub.Close()
		if client != nil {
			client.Close()
		}
	}, nil
}
