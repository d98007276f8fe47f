// Package main provides the entry point for the shortlink service.
package main

import (
	"context"
	"fmt"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/analytics"
	"shortlink/internal/auth"
	"shortlink/internal/config"
	"shortlink/internal/database"
	"shortlink/internal/geo"
	httpHandler "shortlink/internal/handler/http"
	"shortlink/internal/repository/sqlstore"
	"shortlink/internal/service"
	"shortlink/internal/transfer"
	"shortlink/pkg/logger"
	"shortlink/pkg/useragent"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting shortlink service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	passwordService := auth.NewPasswordService()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Seed the default admin account if enabled
	if cfg.Database.SeedAdmin {
		if err := database.SeedDefaultAdmin(db, passwordService, cfg.Auth.DefaultUsername, cfg.Auth.DefaultPassword, log); err != nil {
			log.Fatal("failed to seed default admin", zap.Error(err))
		}
	}

	// Initialize storage and services
	storage := sqlstore.New(db, log)
	linkService := service.NewLinkService(storage, &cfg.ShortCode, log)

	sessionTTL := parseDurationOr(cfg.Auth.SessionTTL, auth.DefaultSessionTTL, log, "session_ttl")
	sessionService, err := auth.NewSessionService(cfg.Auth.JWTSecret, cfg.Env, sessionTTL)
	if err != nil {
		log.Fatal("failed to initialize session service", zap.Error(err))
	}

	// Click accounting: engine plus async processor
	engine := analytics.NewEngine(storage, analytics.ParseAggLevel(cfg.Analytics.RefAggLevel), log)
	processorCfg := analytics.ProcessorConfig{
		WorkerCount:     cfg.Analytics.WorkerCount,
		BufferSize:      cfg.Analytics.BufferSize,
		RetryAttempts:   cfg.Analytics.RetryAttempts,
		RetryDelay:      parseDurationOr(cfg.Analytics.RetryDelay, time.Second, log, "retry_delay"),
		ShutdownTimeout: parseDurationOr(cfg.Analytics.ShutdownTimeout, 30*time.Second, log, "shutdown_timeout"),
	}
	processor := analytics.NewProcessor(engine, log, processorCfg)
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start click processor", zap.Error(err))
	}

	transferEngine := transfer.NewEngine(storage, cfg.Transfer.ChunkSize, log)
	geoResolver := geo.NewHeaderResolver(cfg.GeoHeaders)
	uaParser := useragent.NewParser()

	// Create unified HTTP server
	httpAPIServer := httpHandler.NewServer(
		storage,
		linkService,
		engine,
		processor,
		transferEngine,
		sessionService,
		passwordService,
		geoResolver,
		uaParser,
		cfg.Auth.CookieName,
		cfg.Env == "production",
		cfg.HTTPServer.BaseURL,
		log,
	)

	httpMux := httpAPIServer.SetupRoutes()

	addr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      httpMux,
		ReadTimeout:  parseDurationOr(cfg.HTTPServer.ReadTimeout, 30*time.Second, log, "read_timeout"),
		WriteTimeout: parseDurationOr(cfg.HTTPServer.WriteTimeout, 30*time.Second, log, "write_timeout"),
		IdleTimeout:  parseDurationOr(cfg.HTTPServer.IdleTimeout, 60*time.Second, log, "idle_timeout"),
	}

	log.Info("starting HTTP server", zap.String("address", addr))

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down shortlink service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Drain pending click jobs before exit
	if err := processor.Stop(); err != nil {
		log.Error("click processor shutdown incomplete", zap.Error(err))
	} else {
		log.Info("click processor stopped")
	}
}

func parseDurationOr(s string, fallback time.Duration, log *zap.Logger, field string) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("invalid duration in config, using default",
			zap.String("field", field), zap.String("value", s), zap.Duration("default", fallback))
		return fallback
	}
	return d
}
