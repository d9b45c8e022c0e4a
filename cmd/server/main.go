package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"homedeck/internal/config"
	"homedeck/internal/db"
	"homedeck/internal/db/mock"
	applog "homedeck/internal/log"
	"homedeck/internal/server"
	"homedeck/internal/shortcuts"
	"homedeck/internal/storage"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	newBucketFunc       = storage.New
	loadCatalogFunc     = shortcuts.LoadCatalog
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		applog.Warn(context.Background(), "failed to load .env file", "error", err)
	}
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}
	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "level", cfg.Logging.Level, "error", err)
		return 1
	}
	if cfg.Auth.JWTSecretGenerated {
		applog.Warn(ctx, "AUTH_JWT_SECRET not set, using a random secret; sessions end on restart")
	}

	var database *gorm.DB
	if cfg.Database.UseMock || cfg.Database.URL == "" {
		applog.Info(ctx, "using in-memory mock database")
		database, err = newMockDatabaseFunc(ctx)
	} else {
		database, err = configureDatabase(cfg.Database)
	}
	if err != nil {
		applog.Error(ctx, "failed to configure database", "error", err)
		return 1
	}

	bucket, err := newBucketFunc(ctx, cfg.Storage)
	if err != nil {
		applog.Error(ctx, "failed to configure avatar storage", "backend", cfg.Storage.Backend, "error", err)
		return 1
	}

	var catalog *shortcuts.Catalog
	if cfg.Catalog.File != "" {
		catalog, err = loadCatalogFunc(cfg.Catalog.File)
		if err != nil {
			applog.Error(ctx, "failed to load app catalog", "file", cfg.Catalog.File, "error", err)
			return 1
		}
		applog.Info(ctx, "app catalog loaded", "file", cfg.Catalog.File)
	}

	srv, err := newServerFunc(server.Config{
		Addr:            cfg.Server.Addr,
		PublicURL:       cfg.Server.PublicURL,
		CORSOrigins:     cfg.Server.CORSOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Auth:            cfg.Auth,
		Preferences:     cfg.Preferences,
		Database:        database,
		Bucket:          bucket,
		AvatarMaxBytes:  cfg.Storage.AvatarMaxBytes,
		Catalog:         catalog,
		CVDir:           cfg.CV.Dir,
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	shutdown, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case sig := <-shutdown:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
	case <-ctx.Done():
		applog.Info(ctx, "shutting down http server", "reason", ctx.Err())
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(ctx, "server encountered an error", "error", err)
		return 1
	}
	return 0
}
