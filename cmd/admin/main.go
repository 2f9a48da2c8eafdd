package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"finitefield.org/estate-admin/internal/admin/banners"
	"finitefield.org/estate-admin/internal/admin/config"
	"finitefield.org/estate-admin/internal/admin/httpserver"
	"finitefield.org/estate-admin/internal/admin/httpserver/middleware"
	"finitefield.org/estate-admin/internal/admin/observability"
	"finitefield.org/estate-admin/internal/admin/session"
	"finitefield.org/estate-admin/internal/admin/uploads"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("admin server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newFirebaseApp(ctx, cfg.Firebase, logger)

	service, err := buildService(ctx, cfg, app, logger)
	if err != nil {
		return err
	}

	uploader, uploadsHandler := buildUploader(ctx, cfg.Uploads, app, logger)

	hashKey, blockKey := cfg.Session.HashKey, cfg.Session.BlockKey
	if len(hashKey) == 0 {
		logger.Warn("session keys not configured; sessions will not survive a restart")
		hashKey, blockKey = session.GenerateKeys()
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookiePath:   cfg.Server.BasePath,
		CookieSecure: cfg.Session.Secure,
	})
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	registry := banners.NewRegistry(
		banners.WithIdleTTL(cfg.Banners.EditorIdleTTL),
		banners.WithRegistryLogger(logger),
	)
	go registry.Run(ctx, cfg.Banners.SweepInterval)

	var authenticator middleware.Authenticator
	if app != nil {
		authenticator = buildAuthenticator(ctx, app, logger)
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set; using passthrough authenticator")
	}

	srv, err := httpserver.New(httpserver.Config{
		Address:          cfg.Server.Address,
		BasePath:         cfg.Server.BasePath,
		Environment:      cfg.Server.Environment,
		Logger:           logger,
		Authenticator:    authenticator,
		SessionStore:     sessions,
		Controller:       banners.NewController(service, uploader, logger),
		Registry:         registry,
		MaxUploadBytes:   cfg.Uploads.MaxBytes,
		UploadsHandler:   uploadsHandler,
		CSRFCookieSecure: cfg.Session.Secure,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("admin server listening",
		zap.String("addr", cfg.Server.Address),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("backend", string(cfg.Banners.Backend)),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("admin server stopped")
	return nil
}

// newFirebaseApp returns nil when no project is configured.
func newFirebaseApp(ctx context.Context, cfg config.FirebaseConfig, logger *zap.Logger) *firebase.App {
	if cfg.ProjectID == "" {
		return nil
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		logger.Error("failed to initialise Firebase app", zap.Error(err))
		return nil
	}
	return app
}

func buildService(ctx context.Context, cfg config.Config, app *firebase.App, logger *zap.Logger) (banners.Service, error) {
	switch cfg.Banners.Backend {
	case config.BackendHTTP:
		return newHTTPService(cfg.Banners)
	case config.BackendFirestore:
		if app == nil {
			return nil, errors.New("firestore backend requires a Firebase project")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		fsCfg := banners.FirestoreConfig{Logger: logger}
		if cfg.Banners.APIBaseURL != "" {
			catalogue, err := newHTTPService(cfg.Banners)
			if err != nil {
				return nil, err
			}
			fsCfg.Catalogue = catalogue
		}
		return banners.NewFirestoreService(client, fsCfg), nil
	default:
		logger.Info("using seeded static banner backend")
		return banners.NewStaticService(), nil
	}
}

func newHTTPService(cfg config.BannersConfig) (*banners.HTTPService, error) {
	return banners.NewHTTPService(cfg.APIBaseURL, &http.Client{Timeout: cfg.BackendTimeout})
}

// buildUploader prefers Firebase Storage and falls back to serving uploads
// from memory, which only suits local development.
func buildUploader(ctx context.Context, cfg config.UploadsConfig, app *firebase.App, logger *zap.Logger) (uploads.Uploader, http.Handler) {
	if app != nil {
		uploader, err := newStorageUploader(ctx, cfg, app, logger)
		if err == nil {
			return uploader, nil
		}
		logger.Error("failed to initialise Firebase Storage; keeping uploads in memory", zap.Error(err))
	}
	memory := uploads.NewMemoryUploader("/uploads", cfg.MaxBytes)
	return memory, memory
}

func newStorageUploader(ctx context.Context, cfg config.UploadsConfig, app *firebase.App, logger *zap.Logger) (*uploads.StorageUploader, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	return uploads.NewStorageUploader(client, cfg.Bucket,
		uploads.WithMaxBytes(cfg.MaxBytes),
		uploads.WithLogger(logger),
	)
}

func buildAuthenticator(ctx context.Context, app *firebase.App, logger *zap.Logger) middleware.Authenticator {
	client, err := app.Auth(ctx)
	if err != nil {
		logger.Error("failed to initialise Firebase auth client", zap.Error(err))
		return nil
	}
	logger.Info("Firebase authenticator enabled")
	return middleware.NewFirebaseAuthenticator(client)
}
