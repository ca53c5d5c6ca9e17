package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/audit"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/config"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/devicetrust"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/devicetrust/api"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/ratelimit"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/stepup"
	"github.com/AdityaC-0605/Zero-Trust-Security-Framework-sub002/pkg/telemetry"
)

func main() {
	// Load .env file if present; environment variables take precedence
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	var cfg config.Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	telemetry.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repoConfig := devicetrust.RepositoryConfig{
		EncryptionKey: cfg.DeviceTrust.EncryptionKey,
		CacheTTL:      cfg.DeviceTrust.CacheTTL,
	}
	if cfg.DeviceTrust.Persistence == "postgres" || cfg.DeviceTrust.Persistence == "postgresql" {
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("failed to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		repoConfig.DB = pool
	}

	repo, err := devicetrust.NewDeviceRepository(cfg.DeviceTrust.Persistence, repoConfig)
	if err != nil {
		slog.Error("failed to create device repository", "error", err)
		os.Exit(1)
	}

	service := devicetrust.NewDeviceTrustService(
		repo,
		devicetrust.WithAuditRecorder(audit.NewSlogRecorder(slog.Default())),
		devicetrust.WithRetentionWindow(cfg.DeviceTrust.RetentionWindow),
	)
	stepupService := stepup.NewService(stepup.NewInMemSecretSource(), service)
	handler := api.NewDeviceTrustHandler(service, stepupService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Server.RateLimitBurst > 0 {
		r.Use(ratelimit.Middleware(cfg.Server.RateLimitBurst, float64(cfg.Server.RateLimitPerMinute)/60.0))
	}
	handler.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("device trust server listening", "addr", server.Addr, "persistence", cfg.DeviceTrust.Persistence)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
