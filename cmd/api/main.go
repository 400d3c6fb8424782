package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/linkpage/server/internal/config"
	"github.com/linkpage/server/internal/content"
	"github.com/linkpage/server/internal/db"
	"github.com/linkpage/server/internal/gate"
	httphandler "github.com/linkpage/server/internal/http"
	"github.com/linkpage/server/internal/http/handlers"
	"github.com/linkpage/server/internal/repo"
)

func main() {
	// Load .env from CWD if present; real env vars win
	_ = godotenv.Load(".env")

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	pageRepo := repo.NewPageRepo(database)
	profileRepo := repo.NewProfileRepo(database)
	trustRepo := repo.NewTrustTokenRepo(database)
	downloadRepo := repo.NewDownloadTokenRepo(database)

	// Expiry is evaluated lazily at read time; this just reclaims dead rows
	sweepExpiredTokens(ctx, trustRepo, downloadRepo, logger)

	engine := gate.NewLockoutEngine(pageRepo, cfg.LockThreshold, cfg.LockDuration)
	trustIssuer := gate.NewTrustIssuer(trustRepo, cfg.TrustTokenTTL)
	downloadIssuer := gate.NewDownloadIssuer(downloadRepo, cfg.DownloadTokenTTL)
	proofService := gate.NewProofService(cfg.UnlockJWTSecret, cfg.UnlockProofTTL)
	fetcher := content.NewPostgresFetcher(database)

	accessService := gate.NewAccessService(pageRepo, profileRepo, engine, trustIssuer, downloadIssuer, proofService, fetcher, logger)
	pageManager := gate.NewPageManager(pageRepo, logger)

	accessHandler := handlers.NewAccessHandler(accessService, logger)
	pageHandler := handlers.NewPageHandler(pageManager, logger)

	router := httphandler.NewRouter(accessHandler, pageHandler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	// Resolve migration dir so it works from repo root or cmd/api
	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		migrationDir = "../../internal/db/migrations"
	}
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from repo root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// sweepExpiredTokens deletes token rows that can no longer grant anything
func sweepExpiredTokens(ctx context.Context, trustRepo repo.TrustTokenRepo, downloadRepo repo.DownloadTokenRepo, logger *zap.Logger) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if n, err := trustRepo.DeleteExpired(sweepCtx); err != nil {
		logger.Warn("trust token sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("removed expired trust tokens", zap.Int64("count", n))
	}
	if n, err := downloadRepo.DeleteExpired(sweepCtx); err != nil {
		logger.Warn("download token sweep failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("removed spent download tokens", zap.Int64("count", n))
	}
}
