// Package server initializes and runs the storage daemon: it opens the
// database, applies migrations, builds the blob backend, starts the
// reconciliation sweeper on its schedule and serves prometheus metrics.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/server/blob"
	"github.com/campusshare/campusshare/internal/server/config"
	"github.com/campusshare/campusshare/internal/server/metrics"
	"github.com/campusshare/campusshare/internal/server/repositories/repomanager"
	"github.com/campusshare/campusshare/internal/server/services"
	"github.com/campusshare/campusshare/internal/server/sweeper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	accountService *services.AccountService
	contentService *services.ContentService
	folderService  *services.FolderService
	sweeper        *sweeper.Sweeper
}

// NewBlobStore builds the payload backend selected by the config.
func NewBlobStore(ctx context.Context, c *config.Config) (blob.Store, error) {
	switch c.BlobBackend {
	case "s3":
		return blob.NewS3Store(ctx, blob.S3Options{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case "fs":
		return blob.NewOsFSStore(c.BlobDir), nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %q", c.BlobBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	blobs, err := NewBlobStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	cs := services.NewContentService(db, rm, blobs, c, logger)
	as := services.NewAccountService(db, rm, cs, c, logger)
	fs := services.NewFolderService(db, rm, cs, logger)

	sm := metrics.NewSweepMetrics(nil)
	sw := sweeper.New(db, rm, cs, blobs, logger, sm, c.SweepInterval, c.OrphanScan, c.OrphanGrace)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		accountService: as,
		contentService: cs,
		folderService:  fs,
		sweeper:        sw,
	}, nil
}

// Accounts exposes the account service to the transport layer.
func (app *App) Accounts() *services.AccountService { return app.accountService }

// Contents exposes the content service to the transport layer.
func (app *App) Contents() *services.ContentService { return app.contentService }

// Folders exposes the folder service to the transport layer.
func (app *App) Folders() *services.FolderService { return app.folderService }

// SweepNow is the operator trigger: it runs one reconciliation pass and
// returns the same summary a scheduled run produces.
func (app *App) SweepNow(ctx context.Context) *sweeper.Summary {
	return app.sweeper.Run(ctx)
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

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: app.config.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
