// Package main initializes and starts the job tracker HTTP server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/JobTracker/internal/config"
	"github.com/atinyakov/JobTracker/internal/db"
	"github.com/atinyakov/JobTracker/internal/logger"
	"github.com/atinyakov/JobTracker/internal/repository"
	"github.com/atinyakov/JobTracker/internal/server/handler/http"
	"github.com/atinyakov/JobTracker/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDriver, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repositories.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	appRepo := repository.NewPostgresApplicationRepository(postgresDB)

	// Initialize business-logic services.
	tokens := service.NewTokenManager(options.JWTSecret, options.TokenTTL.Duration)
	authService := service.NewAuthService(authRepo, tokens)
	appService := service.NewApplicationService(appRepo)

	model, err := service.NewGeminiModel(ctx, options.GeminiAPIKey, options.GeminiModel)
	if err != nil {
		zapLogger.Warn("cover letters will use the template", zap.Error(err))
	}
	letters := service.NewCoverLetterService(model, zapLogger)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:         &http.AuthHandler{AuthService: authService, Log: zapLogger},
		Applications: &http.ApplicationHandler{Service: appService, Log: zapLogger},
		Users:        &http.UserHandler{Service: authService, Log: zapLogger},
		AI:           &http.AIHandler{Service: letters, Log: zapLogger},
	}, authService, options.CORSOrigins, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Address))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
