package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/config"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkdeck/internal/maintenance"
	"github.com/IgorGrieder/linkdeck/internal/messaging"
	mongoStorage "github.com/IgorGrieder/linkdeck/internal/storage/mongo"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type workerConfig struct {
	appEnv        string
	appName       string
	appVersion    string
	logLevel      string
	otelEnabled   bool
	otelEndpoint  string
	mongoURI      string
	mongoDatabase string

	kafkaBrokers []string
	kafkaTopic   string
	workerID     string

	pollInterval time.Duration
	batchSize    int
	writeTimeout time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	idleWait     time.Duration
	claimLease   time.Duration

	purgeSpec string
	retention time.Duration
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.appEnv, cfg.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceName := fmt.Sprintf("%s-outbox-worker", cfg.appName)
	shutdownTracer, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:        cfg.otelEnabled,
		Endpoint:       cfg.otelEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: cfg.appVersion,
		Environment:    cfg.appEnv,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
		shutdownTracer = nil
	}
	defer func() {
		if shutdownTracer == nil {
			return
		}
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("failed to shutdown tracer", zap.Error(err))
		}
	}()

	mongoConn, err := db.ConnectMongo(ctx, cfg.mongoURI, cfg.mongoDatabase)
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	outboxRepo, err := mongoStorage.NewVisitOutboxRepository(mongoConn)
	if err != nil {
		logger.Fatal("failed to initialize outbox repository", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.kafkaBrokers...),
		Topic:                  cfg.kafkaTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Warn("failed to close kafka writer", zap.Error(err))
		}
	}()

	relay := messaging.NewRelay(outboxRepo, writer, messaging.RelayOptions{
		WorkerID:     cfg.workerID,
		Topic:        cfg.kafkaTopic,
		BatchSize:    cfg.batchSize,
		Lease:        cfg.claimLease,
		WriteTimeout: cfg.writeTimeout,
		RetryBase:    cfg.retryBase,
		RetryMax:     cfg.retryMax,
	})

	scheduler := maintenance.NewScheduler(nil, outboxRepo, maintenance.Options{
		OutboxPurgeSpec: cfg.purgeSpec,
		OutboxRetention: cfg.retention,
	})
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start outbox purge schedule", zap.Error(err))
	}

	logger.Info("outbox worker started",
		zap.Strings("kafka_brokers", cfg.kafkaBrokers),
		zap.String("kafka_topic", cfg.kafkaTopic),
		zap.String("worker_id", cfg.workerID),
		zap.Int("batch_size", cfg.batchSize),
		zap.Duration("poll_interval", cfg.pollInterval),
		zap.Duration("claim_lease", cfg.claimLease),
	)

	ticker := time.NewTicker(cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox worker stopping")
			return
		default:
		}

		processed, err := relay.ProcessBatch(ctx)
		if err != nil {
			logger.Error("failed to process outbox batch", zap.Error(err))
		}

		if processed == 0 {
			select {
			case <-ctx.Done():
				logger.Info("outbox worker stopping")
				return
			case <-ticker.C:
			}
			continue
		}

		if cfg.idleWait > 0 {
			select {
			case <-ctx.Done():
				logger.Info("outbox worker stopping")
				return
			case <-time.After(cfg.idleWait):
			}
		}
	}
}

func loadConfig() (cfg workerConfig, _ error) {
	cfg = workerConfig{
		appEnv:        config.GetEnv("APP_ENV", "production"),
		appName:       config.GetEnv("APP_NAME", "linkdeck"),
		appVersion:    config.GetEnv("APP_VERSION", "0.1.0"),
		logLevel:      config.GetEnv("LOG_LEVEL", "info"),
		otelEnabled:   config.GetEnvBool("OTEL_ENABLED", false),
		otelEndpoint:  config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://jaeger:4318"),
		mongoURI:      config.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		mongoDatabase: config.GetEnv("MONGODB_DATABASE", "linkdeck"),
		kafkaBrokers:  config.SplitCSV(config.GetEnv("KAFKA_BROKERS", "kafka:9092")),
		kafkaTopic:    config.GetEnv("KAFKA_VISIT_TOPIC", "visits.recorded"),
		workerID:      config.GetEnv("OUTBOX_WORKER_ID", config.DefaultWorkerID("outbox-worker")),
		pollInterval:  config.GetEnvDuration("OUTBOX_POLL_INTERVAL", 250*time.Millisecond),
		batchSize:     config.GetEnvInt("OUTBOX_BATCH_SIZE", 200),
		writeTimeout:  config.GetEnvDuration("OUTBOX_WRITE_TIMEOUT", 5*time.Second),
		retryBase:     config.GetEnvDuration("OUTBOX_RETRY_BASE_DELAY", 1*time.Second),
		retryMax:      config.GetEnvDuration("OUTBOX_RETRY_MAX_DELAY", 30*time.Second),
		idleWait:      config.GetEnvDuration("OUTBOX_IDLE_WAIT", 50*time.Millisecond),
		claimLease:    config.GetEnvDuration("OUTBOX_CLAIM_LEASE", 30*time.Second),
		purgeSpec:     config.GetEnv("OUTBOX_PURGE_SCHEDULE", "0 3 * * *"),
		retention:     config.GetEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
	}

	if len(cfg.kafkaBrokers) == 0 {
		return workerConfig{}, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if strings.TrimSpace(cfg.kafkaTopic) == "" {
		return workerConfig{}, fmt.Errorf("KAFKA_VISIT_TOPIC must not be empty")
	}
	if cfg.batchSize <= 0 {
		return workerConfig{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be > 0")
	}
	if cfg.pollInterval <= 0 {
		return workerConfig{}, fmt.Errorf("OUTBOX_POLL_INTERVAL must be > 0")
	}
	if cfg.writeTimeout <= 0 {
		return workerConfig{}, fmt.Errorf("OUTBOX_WRITE_TIMEOUT must be > 0")
	}
	if cfg.retryBase <= 0 {
		return workerConfig{}, fmt.Errorf("OUTBOX_RETRY_BASE_DELAY must be > 0")
	}
	if cfg.retryMax < cfg.retryBase {
		return workerConfig{}, fmt.Errorf("OUTBOX_RETRY_MAX_DELAY must be >= OUTBOX_RETRY_BASE_DELAY")
	}
	if strings.TrimSpace(cfg.workerID) == "" {
		return workerConfig{}, fmt.Errorf("OUTBOX_WORKER_ID must not be empty")
	}
	if cfg.claimLease <= 0 {
		return workerConfig{}, fmt.Errorf("OUTBOX_CLAIM_LEASE must be > 0")
	}

	return cfg, nil
}
