// Package server wires the textli server together: it opens the database,
// applies migrations, builds the services and runs the HTTP API, the gRPC
// health server and the retention sweeper until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/textli/internal/logging"
	"github.com/dmitrijs2005/textli/internal/server/config"
	"github.com/dmitrijs2005/textli/internal/server/httpapi"
	"github.com/dmitrijs2005/textli/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/textli/internal/server/services"
	"github.com/dmitrijs2005/textli/internal/server/sweeper"

	gs "github.com/dmitrijs2005/textli/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	http    *httpapi.Server
	health  *gs.HealthServer
	sweeper *sweeper.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	sessions := services.NewSessionService(db, rm, c, logger)
	ledger := services.NewLedgerService(db, rm, c)
	gate := services.NewFundingGate(ledger)
	hasher := services.NewBcryptHasher(c.BcryptCost)

	svc := httpapi.Services{
		Sessions: sessions,
		Accounts: services.NewAccountService(db, rm, sessions, ledger, hasher, logger),
		Notes:    services.NewNoteService(db, rm, gate),
		Shares:   services.NewShareService(db, rm, gate, logger),
		Metering: services.NewMeteringService(db, rm, logger),
		Export:   services.NewExportService(db, rm, c, logger),
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		http:    httpapi.NewServer(c, svc, logger),
		health:  gs.NewHealthServer(c.HealthAddrGRPC, db, c.HealthCheckInterval, logger),
		sweeper: sweeper.NewSweeper(db, rm, c, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runServer runs one long-lived server; a failure brings the whole app down.
func (app *App) runServer(ctx context.Context, cancelFunc context.CancelFunc, name string, run func(context.Context) error) {
	if err := run(ctx); err != nil {
		app.logger.Error(ctx, "server failed", "server", name, "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "http", app.http.Run)
	}()
	go func() {
		defer wg.Done()
		app.runServer(ctx, cancelFunc, "grpc_health", app.health.Run)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "error closing database", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
