package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"gorm.io/gorm"

	"homedeck/internal/config"
	"homedeck/internal/server"
	"homedeck/internal/shortcuts"
	"homedeck/internal/storage"
)

func stubBucket(t *testing.T) {
	t.Helper()
	original := newBucketFunc
	t.Cleanup(func() { newBucketFunc = original })
	newBucketFunc = func(ctx context.Context, cfg config.StorageConfig) (storage.Bucket, error) {
		return storage.NewLocalBucket(t.TempDir(), "/avatars")
	}
}

type stubServer struct {
	startErr       error
	stopErr        error
	blockUntilStop bool

	startCalled bool
	stopCalled  bool

	startGate   chan struct{}
	startNotify chan struct{}
}

func newStubServer(startErr, stopErr error, block bool) *stubServer {
	s := &stubServer{
		startErr:       startErr,
		stopErr:        stopErr,
		blockUntilStop: block,
		startNotify:    make(chan struct{}),
	}
	if block {
		s.startGate = make(chan struct{})
	}
	return s
}

func (s *stubServer) Start() error {
	s.startCalled = true
	close(s.startNotify)
	if s.blockUntilStop {
		<-s.startGate
	}
	return s.startErr
}

func (s *stubServer) Stop() error {
	s.stopCalled = true
	if s.blockUntilStop {
		close(s.startGate)
	}
	return s.stopErr
}

func TestRunUsesMockDatabaseWhenConfigured(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc
	originalMock := newMockDatabaseFunc
	originalConfigure := configureDatabase
	originalNewServer := newServerFunc
	originalSubscribe := subscribeShutdownSig

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
		newMockDatabaseFunc = originalMock
		configureDatabase = originalConfigure
		newServerFunc = originalNewServer
		subscribeShutdownSig = originalSubscribe
	})

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{
			UseMock: true,
		},
		Logging: config.LoggingConfig{Level: "debug"},
		Auth: config.AuthConfig{
			Session: config.SessionConfig{
				Lifetime:     time.Hour,
				CookieName:   "test",
				CookieSecure: true,
			},
		},
	}

	stubBucket(t)

	var mockCalled bool
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(level string) error { return nil }
	newMockDatabaseFunc = func(ctx context.Context) (*gorm.DB, error) {
		mockCalled = true
		return &gorm.DB{}, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		t.Fatal("configureDatabase should not be called when mock is enabled")
		return nil, nil
	}

	serverStub := newStubServer(http.ErrServerClosed, nil, true)
	newServerFunc = func(server.Config) (serverLifecycle, error) {
		return serverStub, nil
	}

	shutdownCh := make(chan os.Signal, 1)
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return shutdownCh, func() {}
	}

	go func() {
		<-serverStub.startNotify
		shutdownCh <- syscall.SIGTERM
	}()

	code := run(context.Background())
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !mockCalled {
		t.Fatal("expected mock database to be used")
	}
	if !serverStub.startCalled || !serverStub.stopCalled {
		t.Fatal("expected server start and stop to be invoked")
	}
}

func TestRunReturnsErrorWhenServerStartFails(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc
	originalMock := newMockDatabaseFunc
	originalNewServer := newServerFunc
	originalSubscribe := subscribeShutdownSig

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
		newMockDatabaseFunc = originalMock
		newServerFunc = originalNewServer
		subscribeShutdownSig = originalSubscribe
	})

	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{
			UseMock: true,
		},
		Logging: config.LoggingConfig{Level: "info"},
		Auth:    config.AuthConfig{Session: config.SessionConfig{Lifetime: time.Hour}},
	}

	stubBucket(t)
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) { return &gorm.DB{}, nil }

	serverStub := newStubServer(errors.New("listener failure"), nil, false)
	newServerFunc = func(server.Config) (serverLifecycle, error) {
		return serverStub, nil
	}

	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return make(chan os.Signal), func() {}
	}

	code := run(context.Background())
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if serverStub.stopCalled {
		t.Fatal("server stop should not be called on start error")
	}
}

func TestRunHandlesDatabaseConfigurationError(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc
	originalMock := newMockDatabaseFunc
	originalConfigure := configureDatabase

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
		newMockDatabaseFunc = originalMock
		configureDatabase = originalConfigure
	})

	cfg := config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{URL: "postgres://example", UseMock: false},
		Logging:  config.LoggingConfig{Level: "info"},
	}

	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		t.Fatal("mock database should not be used when URL is configured")
		return nil, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		return nil, errors.New("db connection refused")
	}

	code := run(context.Background())
	if code != 1 {
		t.Fatalf("expected exit code 1 on database configuration failure, got %d", code)
	}
}

func TestRunReturnsErrorWhenLogLevelInvalid(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
	})

	cfg := config.Config{Logging: config.LoggingConfig{Level: "invalid"}}
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return errors.New("invalid level") }

	code := run(context.Background())
	if code != 1 {
		t.Fatalf("expected exit code 1 for invalid log level, got %d", code)
	}
}

func TestRunPassesCatalogToServer(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc
	originalMock := newMockDatabaseFunc
	originalCatalog := loadCatalogFunc
	originalNewServer := newServerFunc
	originalSubscribe := subscribeShutdownSig

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
		newMockDatabaseFunc = originalMock
		loadCatalogFunc = originalCatalog
		newServerFunc = originalNewServer
		subscribeShutdownSig = originalSubscribe
	})
	stubBucket(t)

	cfg := config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{UseMock: true},
		Catalog:  config.CatalogConfig{File: "catalog.yaml"},
	}
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) { return &gorm.DB{}, nil }

	catalog := shortcuts.DefaultCatalog()
	var loadedFrom string
	loadCatalogFunc = func(path string) (*shortcuts.Catalog, error) {
		loadedFrom = path
		return catalog, nil
	}

	var got server.Config
	serverStub := newStubServer(nil, nil, false)
	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		got = cfg
		return serverStub, nil
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return make(chan os.Signal), func() {}
	}

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if loadedFrom != "catalog.yaml" {
		t.Fatalf("expected catalog to be loaded from catalog.yaml, got %q", loadedFrom)
	}
	if got.Catalog != catalog {
		t.Fatal("expected the loaded catalog to reach the server")
	}
	if got.Bucket == nil {
		t.Fatal("expected an avatar bucket to be configured")
	}
}

func TestRunFailsOnInvalidCatalog(t *testing.T) {
	originalLoadConfig := loadConfigFunc
	originalSetLogLevel := setLogLevelFunc
	originalMock := newMockDatabaseFunc
	originalCatalog := loadCatalogFunc

	t.Cleanup(func() {
		loadConfigFunc = originalLoadConfig
		setLogLevelFunc = originalSetLogLevel
		newMockDatabaseFunc = originalMock
		loadCatalogFunc = originalCatalog
	})
	stubBucket(t)

	cfg := config.Config{
		Database: config.DatabaseConfig{UseMock: true},
		Catalog:  config.CatalogConfig{File: "broken.yaml"},
	}
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) { return &gorm.DB{}, nil }
	loadCatalogFunc = func(string) (*shortcuts.Catalog, error) {
		return nil, errors.New("catalog: duplicate app id")
	}

	if code := run(context.Background()); code != 1 {
		t.Fatalf("expected exit code 1 for an invalid catalog, got %d", code)
	}
}
