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
	"github.com/IgorGrieder/linkdeck/internal/messaging"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	mongoStorage "github.com/IgorGrieder/linkdeck/internal/storage/mongo"
	postgresStorage "github.com/IgorGrieder/linkdeck/internal/storage/postgres"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type consumerConfig struct {
	appEnv        string
	appName       string
	appVersion    string
	logLevel      string
	otelEnabled   bool
	otelEndpoint  string
	backend       string
	mongoURI      string
	mongoDatabase string
	postgresDSN   string

	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroupID string

	fetchMaxWait   time.Duration
	operationTTL   time.Duration
	consumeBackoff time.Duration
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

	shutdownTracer, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:        cfg.otelEnabled,
		Endpoint:       cfg.otelEndpoint,
		ServiceName:    fmt.Sprintf("%s-visit-consumer", cfg.appName),
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

	recorder, closeStore, err := initRecorder(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize visit storage", zap.Error(err))
	}
	defer closeStore()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.kafkaBrokers,
		Topic:       cfg.kafkaTopic,
		GroupID:     cfg.kafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.fetchMaxWait,
		StartOffset: kafka.FirstOffset,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	logger.Info("visit consumer started",
		zap.Strings("kafka_brokers", cfg.kafkaBrokers),
		zap.String("kafka_topic", cfg.kafkaTopic),
		zap.String("kafka_group", cfg.kafkaGroupID),
		zap.String("backend", cfg.backend),
	)

	messaging.NewConsumer(reader, recorder, cfg.operationTTL, cfg.consumeBackoff).Run(ctx)
	logger.Info("visit consumer stopping")
}

// initRecorder applies consumed visits straight to the configured backend.
func initRecorder(ctx context.Context, cfg consumerConfig) (links.VisitRecorder, func(), error) {
	if cfg.backend == config.BackendPostgres {
		conn, err := db.ConnectPostgres(ctx, cfg.postgresDSN)
		if err != nil {
			return nil, nil, err
		}
		linkRepo, err := postgresStorage.NewLinksRepository(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		visitRepo, err := postgresStorage.NewVisitsRepository(conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return links.NewDirectVisitRecorder(linkRepo, visitRepo), conn.Close, nil
	}

	conn, err := db.ConnectMongo(ctx, cfg.mongoURI, cfg.mongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	closeConn := func() { _ = conn.Disconnect() }
	linkRepo, err := mongoStorage.NewLinksRepository(conn)
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	visitRepo, err := mongoStorage.NewVisitsRepository(conn)
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	return links.NewDirectVisitRecorder(linkRepo, visitRepo), closeConn, nil
}

func loadConfig() (consumerConfig, error) {
	cfg := consumerConfig{
		appEnv:         config.GetEnv("APP_ENV", "production"),
		appName:        config.GetEnv("APP_NAME", "linkdeck"),
		appVersion:     config.GetEnv("APP_VERSION", "0.1.0"),
		logLevel:       config.GetEnv("LOG_LEVEL", "info"),
		otelEnabled:    config.GetEnvBool("OTEL_ENABLED", false),
		otelEndpoint:   config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://jaeger:4318"),
		backend:        strings.ToLower(config.GetEnv("STORAGE_BACKEND", config.BackendMongo)),
		mongoURI:       config.GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
		mongoDatabase:  config.GetEnv("MONGODB_DATABASE", "linkdeck"),
		postgresDSN:    config.GetEnv("DB_DSN", config.DefaultPostgresDSN()),
		kafkaBrokers:   config.SplitCSV(config.GetEnv("KAFKA_BROKERS", "kafka:9092")),
		kafkaTopic:     config.GetEnv("KAFKA_VISIT_TOPIC", "visits.recorded"),
		kafkaGroupID:   config.GetEnv("KAFKA_GROUP_ID", "visit-counter"),
		fetchMaxWait:   config.GetEnvDuration("KAFKA_CONSUMER_MAX_WAIT", 500*time.Millisecond),
		operationTTL:   config.GetEnvDuration("KAFKA_CONSUMER_OPERATION_TIMEOUT", 5*time.Second),
		consumeBackoff: config.GetEnvDuration("KAFKA_CONSUMER_BACKOFF", 500*time.Millisecond),
	}

	if cfg.backend != config.BackendMongo && cfg.backend != config.BackendPostgres {
		return consumerConfig{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q", config.BackendMongo, config.BackendPostgres)
	}
	if len(cfg.kafkaBrokers) == 0 {
		return consumerConfig{}, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if strings.TrimSpace(cfg.kafkaTopic) == "" {
		return consumerConfig{}, fmt.Errorf("KAFKA_VISIT_TOPIC must not be empty")
	}
	if strings.TrimSpace(cfg.kafkaGroupID) == "" {
		return consumerConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
	}
	if cfg.operationTTL <= 0 {
		return consumerConfig{}, fmt.Errorf("KAFKA_CONSUMER_OPERATION_TIMEOUT must be > 0")
	}

	return cfg, nil
}
