package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/config"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkdeck/internal/maintenance"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	redisStorage "github.com/IgorGrieder/linkdeck/internal/storage/redis"
	httpTransport "github.com/IgorGrieder/linkdeck/internal/transport/http"
	"github.com/IgorGrieder/linkdeck/internal/transport/http/middleware"
	"github.com/IgorGrieder/linkdeck/pkg/httpclient"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:        cfg.OTel.Enabled,
		Endpoint:       cfg.OTel.Endpoint,
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		shutdownTracer = nil
	} else if cfg.OTel.Enabled {
		logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.close()

	checks := map[string]httpTransport.Pinger{cfg.Storage.Backend: store.pinger}

	// A typed nil must never reach the router, so the interface is only
	// assigned when redis is up.
	var limiter middleware.Limiter
	if cfg.Redis.Enabled {
		redisClient, err := redisStorage.New(ctx, redisStorage.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			limiter = redisStorage.NewFixedWindowLimiter(redisClient, cfg.App.Name+":rate", time.Minute)
			checks["redis"] = redisClient
		}
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.App.Name)
	accountSvc := accounts.NewService(store.users, tokens, cfg.Shortener.DefaultMonthlyLimit)

	var visits links.VisitRecorder = links.NewDirectVisitRecorder(store.links, store.visitLog)
	if cfg.Visits.Pipeline == config.PipelineOutbox {
		visits = store.outbox
	}
	logger.Info("Visit pipeline selected", zap.String("pipeline", cfg.Visits.Pipeline))

	codes := links.NewRandomCodeGenerator()
	linkSvc := links.NewService(store.links, visits, accountSvc, codes, links.Options{
		CodeLength:  cfg.Shortener.CodeLength,
		Lifetime:    cfg.Shortener.LinkLifetime,
		MaxAttempts: cfg.Shortener.MaxCodeAttempts,
	})

	gateSessions := unlocker.NewGateSessions(cfg.Unlocker.SessionTTL, cfg.Unlocker.MaxSessions)
	unlockerSvc := unlocker.NewService(store.gates, gateSessions, codes, cfg.Unlocker.Lifetime)
	cardSvc := biocards.NewService(store.cards, codes)

	var google httpTransport.GoogleAuthenticator
	if cfg.Google.Enabled() {
		google = auth.NewGoogleOAuth(
			cfg.Google.ClientID,
			cfg.Google.ClientSecret,
			cfg.Google.RedirectURL,
			httpclient.NewClient(httpclient.Options{Name: "google-oauth", Timeout: 5 * time.Second, MaxRetries: 2}),
		)
		logger.Info("Google sign-in enabled")
	}

	var purger maintenance.OutboxPurger
	if store.outbox != nil {
		purger = store.outbox
	}
	scheduler := maintenance.NewScheduler(unlockerSvc, purger, maintenance.Options{
		GateSweepSpec:   cfg.Maintenance.GateSweepSpec,
		OutboxPurgeSpec: cfg.Maintenance.OutboxPurgeSpec,
		OutboxRetention: cfg.Maintenance.OutboxRetention,
	})
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", zap.Error(err))
	}

	router := httpTransport.NewRouter(httpTransport.Handlers{
		Health: httpTransport.NewHealthHandler(checks),
		Links: httpTransport.NewLinksHandler(linkSvc, httpTransport.LinksHandlerOptions{
			BaseURL:        cfg.Shortener.BaseURL,
			RedirectStatus: cfg.Shortener.RedirectStatus,
			TrackTimeout:   cfg.Visits.TrackTimeout,
		}),
		Auth:     httpTransport.NewAuthHandler(accountSvc, google, cfg.Google.FrontendURL, cfg.IsProduction()),
		Accounts: httpTransport.NewAccountHandler(accountSvc),
		Unlocker: httpTransport.NewUnlockerHandler(unlockerSvc),
		BioCards: httpTransport.NewBioCardsHandler(cardSvc),
		Sessions: tokens,
	}, httpTransport.RouterOptions{
		AppName:              cfg.App.Name,
		EnableCORS:           true,
		EnableLogging:        true,
		EnableMetrics:        true,
		AllowedOrigins:       []string{cfg.Google.FrontendURL},
		AdminAPIKeys:         cfg.Security.AdminAPIKeys,
		Limiter:              limiter,
		CreateRatePerMinute:  cfg.Security.CreateRatePerMinute,
		SessionRatePerMinute: cfg.Security.SessionRatePerMinute,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
