// Audioguide storefront server
// Entry point for the web server
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findosh/audioguide/internal/config"
	"github.com/findosh/audioguide/internal/device"
	"github.com/findosh/audioguide/internal/handlers"
	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/logger"
	"github.com/findosh/audioguide/internal/middleware"
	"github.com/findosh/audioguide/internal/services/catalog"
	"github.com/findosh/audioguide/internal/services/checkout"
	"github.com/findosh/audioguide/internal/services/identity"
	"github.com/findosh/audioguide/internal/services/media"
	"github.com/findosh/audioguide/internal/services/session"
	"github.com/findosh/audioguide/internal/services/viewer"
	"github.com/findosh/audioguide/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	deviceIdleTimeout = 30 * time.Minute
	devicePruneEvery  = 5 * time.Minute
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(db)
	productRepo := storage.NewProductRepository(db)
	poiRepo := storage.NewPOIRepository(db)

	localStore, closeStore, err := newLocalStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	mediaStorage, err := newMediaStorage(cfg)
	if err != nil {
		return err
	}

	// Initialize services
	provider := identity.NewLocalProvider(userRepo, cfg.SecretKey, cfg.SessionDuration)
	catalogService := catalog.NewService(productRepo, poiRepo, userRepo, zl.Named("catalog"))
	checkoutService := checkout.NewService(catalogService, cfg.CheckoutDelay, zl.Named("checkout"))
	viewerService := viewer.NewService(catalogService)

	demoAdmin := session.DemoAdmin{
		Enabled:  cfg.DemoAdminEnabled(),
		Email:    cfg.AdminEmail,
		Password: cfg.DemoAdminPassword,
	}
	if demoAdmin.Enabled {
		zl.Warn("demo administrator sign-in is enabled", zap.String("email", demoAdmin.Email))
	}

	registry := device.NewRegistry(device.Options{
		Store:            localStore,
		Provider:         provider,
		SessionDuration:  cfg.SessionDuration,
		AdminEmail:       cfg.AdminEmail,
		DemoAdmin:        demoAdmin,
		PublicStorageURL: cfg.PublicStorageURL,
		MediaStorage:     mediaStorage,
		Logger:           zl.Named("device"),
	})
	go registry.PruneLoop(ctx, devicePruneEvery, deviceIdleTimeout)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := handlers.New(cfg, zl.Named("http"), registry, catalogService, checkoutService, viewerService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Routes(middleware.NewMetrics(promRegistry), promRegistry),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("audioguide server starting",
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment),
			zap.String("local_store", cfg.LocalStore),
			zap.String("media_driver", cfg.MediaDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocalStore(ctx context.Context, cfg *config.Config, db *storage.DB) (kv.Store, func(), error) {
	switch cfg.LocalStore {
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return kv.NewRedis(client), func() { client.Close() }, nil
	case config.StoreMemory:
		return kv.NewMemory(), func() {}, nil
	default:
		return storage.NewKVRepository(db), func() {}, nil
	}
}

func newMediaStorage(cfg *config.Config) (func() media.ObjectStorage, error) {
	if cfg.MediaDriver != config.MediaS3 {
		return func() media.ObjectStorage { return media.NewDataURIStore() }, nil
	}

	client, err := media.NewS3Client(media.S3Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	store := media.NewS3Store(client)
	return func() media.ObjectStorage { return store }, nil
}
