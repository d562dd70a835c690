package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/homeservices/mediasync/internal/config"
	"github.com/homeservices/mediasync/internal/handlers"
	custommw "github.com/homeservices/mediasync/internal/middleware"
	"github.com/homeservices/mediasync/internal/observability"
	"github.com/homeservices/mediasync/internal/repository"
	"github.com/homeservices/mediasync/internal/services"
)

func main() {
	log := observability.GetLogger()
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// Initialize telemetry
	telemetry, err := observability.InitTelemetry(ctx, observability.TelemetryConfig{
		ServiceName:    "mediasync",
		ServiceVersion: handlers.Version,
		Environment:    cfg.Telemetry.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Errorf("Failed to initialize telemetry: %v", err)
		os.Exit(1)
	}

	// Initialize database and repositories
	var images repository.GalleryImageRepo
	var runs repository.SyncRunRepo
	if cfg.UsePostgres() {
		log.Info("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Errorf("Failed to initialize PostgreSQL database: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		images = repository.NewGalleryImageRepositoryPostgres(db)
		runs = repository.NewSyncRunRepositoryPostgres(db)
	} else {
		log.Infof("Using SQLite database at %s", cfg.DatabasePath)
		db, err := repository.NewSQLiteDB(ctx, cfg.DatabasePath)
		if err != nil {
			log.Errorf("Failed to initialize SQLite database: %v", err)
			os.Exit(1)
		}
		defer db.Close()
		images = repository.NewGalleryImageRepository(db)
		runs = repository.NewSyncRunRepository(db)
	}

	// Initialize services
	store, localStore, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Errorf("Failed to initialize object store: %v", err)
		os.Exit(1)
	}

	syncMetrics, err := observability.NewSyncMetrics()
	if err != nil {
		log.Errorf("Failed to create sync metrics: %v", err)
		os.Exit(1)
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Errorf("Failed to create HTTP metrics: %v", err)
		os.Exit(1)
	}

	serviceAccount, err := cfg.Drive.ServiceAccountKey()
	if err != nil {
		// Runs will fail at the config stage and say so in the ledger
		log.Warnf("Service account key unavailable: %v", err)
	}
	if cfg.ServiceRoleKey == "" {
		log.Warn("SERVICE_ROLE_KEY is not set; sync endpoints will reject every request")
	}

	signer := services.NewCredentialSigner(&http.Client{Timeout: 2 * time.Minute}, services.DriveScopes)
	mediaSync := services.NewMediaSyncService(
		services.MediaSyncConfig{
			ServiceAccountJSON: serviceAccount,
			RootFolderID:       cfg.Drive.RootFolderID,
			MaxFilesPerFolder:  cfg.Sync.MaxFilesPerFolder,
			Workers:            cfg.Sync.Workers,
			FileTimeout:        cfg.Sync.FileTimeout(),
			RunTimeout:         cfg.Sync.RunTimeout(),
		},
		signer,
		services.DriveProviderFactory(cfg.Drive.APIEndpoint),
		store,
		images,
		services.NewRunLedger(runs),
		syncMetrics,
	)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(mediaSync, runs)
	galleryHandler := handlers.NewGalleryHandler(images)
	healthHandler := handlers.NewHealthHandler()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observability.TracingMiddleware())
	r.Use(observability.MetricsMiddleware(httpMetrics))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/api/version", handlers.VersionHandler)
	r.Get("/api/gallery", galleryHandler.ListImages)

	r.Group(func(r chi.Router) {
		r.Use(custommw.ServiceRoleAuth(cfg.ServiceRoleKey))
		r.HandleFunc("/api/sync/drive", syncHandler.TriggerSync)
		r.Get("/api/sync/runs", syncHandler.ListRuns)
		r.Get("/api/sync/runs/{id}", syncHandler.GetRun)
	})

	if localStore != nil {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(localStore.BasePath())))
		r.Handle("/media/*", fs)
	}

	// Create server
	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// A sync request is held open for the whole run
		WriteTimeout: cfg.Sync.RunTimeout() + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Media sync server %s (%s) starting on %s", handlers.Version, handlers.GitCommit, cfg.ServerAddress)
		log.Infof("Object store: %s", cfg.ObjectStore.Provider)
		log.Infof("Sync: max %d files per folder, %d worker(s), run timeout %s",
			cfg.Sync.MaxFilesPerFolder, cfg.Sync.Workers, cfg.Sync.RunTimeout())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Telemetry shutdown: %v", err)
	}

	log.Info("Server stopped")
}

// newObjectStore builds the configured backend. The local store is also returned
// so main can serve its files.
func newObjectStore(ctx context.Context, cfg config.ObjectStore) (services.ObjectStore, *services.LocalObjectStore, error) {
	switch cfg.Provider {
	case config.ObjectStoreMinio:
		store, err := services.NewMinioObjectStore(services.MinioOptions{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
			PublicURL: cfg.PublicURL,
		})
		return store, nil, err
	case config.ObjectStoreS3:
		store, err := services.NewS3ObjectStore(ctx, services.S3Options{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			PublicURL: cfg.PublicURL,
		})
		return store, nil, err
	default:
		store, err := services.NewLocalObjectStore(cfg.LocalPath, cfg.PublicURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}
