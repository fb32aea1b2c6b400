// Package server wires the document server: storage backend, document
// service, gRPC endpoint and the optional S3 backup loop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/soullink/internal/logging"
	"github.com/dmitrijs2005/soullink/internal/server/config"
	"github.com/dmitrijs2005/soullink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soullink/internal/server/services"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/soullink/internal/server/grpc"
)

// openPostgres is a seam for tests.
var openPostgres = func(ctx context.Context, dsn string) (*sql.DB, repomanager.RepositoryManager, error) {
	return repomanager.OpenPostgres(ctx, dsn)
}

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	documentService *services.DocumentService
	backupService   *services.BackupService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	var (
		db  *sql.DB
		rm  repomanager.RepositoryManager
		err error
	)

	switch c.StorageBackend {
	case config.StorageMemory:
		rm = repomanager.NewMemoryRepositoryManager()
	case config.StoragePostgres:
		db, rm, err = openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	app := &App{
		config:          c,
		logger:          logger,
		db:              db,
		documentService: services.NewDocumentService(db, rm, logger),
	}
	if c.BackupEnabled {
		app.backupService = services.NewBackupService(db, rm, c, logger)
	}

	return app, nil
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

// Run blocks until a signal arrives, ctx is canceled, or a component fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.documentService)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Run(gctx)
	})

	if app.backupService != nil {
		g.Go(func() error {
			return app.backupService.Run(gctx)
		})
	}

	err = g.Wait()

	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil {
			app.logger.Error(ctx, "db close failed", "err", cerr)
		}
	}

	app.logger.Info(context.Background(), "App stopped")
	return err
}
