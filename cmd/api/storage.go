package main

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/linkdeck/internal/config"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/db"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkdeck/internal/processing/accounts"
	"github.com/IgorGrieder/linkdeck/internal/processing/biocards"
	"github.com/IgorGrieder/linkdeck/internal/processing/links"
	"github.com/IgorGrieder/linkdeck/internal/processing/unlocker"
	mongoStorage "github.com/IgorGrieder/linkdeck/internal/storage/mongo"
	postgresStorage "github.com/IgorGrieder/linkdeck/internal/storage/postgres"
	httpTransport "github.com/IgorGrieder/linkdeck/internal/transport/http"
	"go.uber.org/zap"
)

// storage holds the repositories of the selected backend. outbox is only
// set for the mongo backend.
type storage struct {
	links    links.Repository
	visitLog links.VisitLog
	users    accounts.Repository
	gates    unlocker.Repository
	cards    biocards.Repository
	outbox   *mongoStorage.VisitOutboxRepository

	pinger httpTransport.Pinger
	close  func()
}

func initStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	var (
		s   *storage
		err error
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		s, err = initPostgres(ctx, cfg)
	default:
		s, err = initMongo(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("Storage backend selected", zap.String("backend", cfg.Storage.Backend))
	return s, nil
}

func initMongo(ctx context.Context, cfg *config.Config) (*storage, error) {
	conn, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	fail := func(what string, err error) (*storage, error) {
		_ = conn.Disconnect()
		return nil, fmt.Errorf("init mongo %s repository: %w", what, err)
	}

	linkRepo, err := mongoStorage.NewLinksRepository(conn)
	if err != nil {
		return fail("links", err)
	}
	visitRepo, err := mongoStorage.NewVisitsRepository(conn)
	if err != nil {
		return fail("visits", err)
	}
	userRepo, err := mongoStorage.NewUsersRepository(conn)
	if err != nil {
		return fail("users", err)
	}
	gateRepo, err := mongoStorage.NewUnlockersRepository(conn)
	if err != nil {
		return fail("unlockers", err)
	}
	cardRepo, err := mongoStorage.NewBioCardsRepository(conn)
	if err != nil {
		return fail("bio cards", err)
	}
	outboxRepo, err := mongoStorage.NewVisitOutboxRepository(conn)
	if err != nil {
		return fail("visit outbox", err)
	}

	return &storage{
		links:    linkRepo,
		visitLog: visitRepo,
		users:    userRepo,
		gates:    gateRepo,
		cards:    cardRepo,
		outbox:   outboxRepo,
		pinger:   conn,
		close:    func() { _ = conn.Disconnect() },
	}, nil
}

func initPostgres(ctx context.Context, cfg *config.Config) (*storage, error) {
	conn, err := db.ConnectPostgres(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := postgresStorage.Migrate(conn.DB.WithContext(ctx)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	fail := func(what string, err error) (*storage, error) {
		conn.Close()
		return nil, fmt.Errorf("init postgres %s repository: %w", what, err)
	}

	linkRepo, err := postgresStorage.NewLinksRepository(conn)
	if err != nil {
		return fail("links", err)
	}
	visitRepo, err := postgresStorage.NewVisitsRepository(conn)
	if err != nil {
		return fail("visits", err)
	}
	userRepo, err := postgresStorage.NewUsersRepository(conn)
	if err != nil {
		return fail("users", err)
	}
	gateRepo, err := postgresStorage.NewUnlockersRepository(conn)
	if err != nil {
		return fail("unlockers", err)
	}
	cardRepo, err := postgresStorage.NewBioCardsRepository(conn)
	if err != nil {
		return fail("bio cards", err)
	}

	return &storage{
		links:    linkRepo,
		visitLog: visitRepo,
		users:    userRepo,
		gates:    gateRepo,
		cards:    cardRepo,
		pinger:   conn,
		close:    conn.Close,
	}, nil
}
