// Package server wires configuration, storage backends, the file service and
// the HTTP API together, and runs them until a termination signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/examvault/internal/logging"
	"github.com/dmitrijs2005/examvault/internal/server/config"
	"github.com/dmitrijs2005/examvault/internal/server/httpapi"
	"github.com/dmitrijs2005/examvault/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      *logging.SlogLogger
	fileService *services.FileService
	closeRepo   closeFunc
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	repo, closeRepo, err := openMetadata(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("metadata store init error: %w", err)
	}

	store, err := openBlobs(ctx, c)
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	fs := services.NewFileService(repo, store, c, logger)

	return &App{config: c, logger: logger, fileService: fs, closeRepo: closeRepo}, nil
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

func (app *App) newHTTPServer() *httpapi.Server {
	handler := httpapi.NewHandler(app.fileService, app.logger)
	return httpapi.New(&httpapi.ServerConfig{
		ListenAddr:        app.config.HTTPAddr,
		CORSOrigins:       app.config.CORSOrigins,
		Log:               app.logger.Slog(),
		RequestTimeout:    app.config.RequestTimeout,
		UploadTimeout:     app.config.UploadTimeout,
		DownloadTimeout:   app.config.DownloadTimeout,
		ReadHeaderTimeout: app.config.ReadHeaderTimeout,
		ShutdownTimeout:   app.config.ShutdownTimeout,
	}, handler)
}

// Run serves until ctx is cancelled, a signal arrives or the listener fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"metadata", app.config.MetadataBackend,
		"blobs", app.config.BlobBackend,
		"conceal_missing", app.config.ConcealMissing)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.fileService.RunJanitor(ctx, app.config.SweepInterval, app.config.SweepMaxAge)
	}()

	srv := app.newHTTPServer()
	errc := make(chan error, 1)
	srv.RunInBackground(errc)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		cancelFunc()
	}

	srv.Shutdown()
	wg.Wait()

	if err := app.closeRepo(); err != nil {
		app.logger.Error(context.Background(), "metadata store close failed", "err", err)
		runErr = errors.Join(runErr, err)
	}

	app.logger.Info(context.Background(), "Stopped")
	return runErr
}
