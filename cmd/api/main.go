package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerwise/internal/ai"
	"ledgerwise/internal/config"
	"ledgerwise/internal/database"
	"ledgerwise/internal/logger"
	"ledgerwise/internal/server"
	"ledgerwise/internal/services"
	"ledgerwise/internal/validator"
)

// @title           LedgerWise API
// @version         1.0
// @description     LedgerWise is a GST bookkeeping service for Indian small businesses: ledger entries with computed GST, invoice extraction and a bookkeeping assistant.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	validator.Register()

	loc, err := time.LoadLocation(appConfig.Timezone)
	if err != nil {
		log.Warnw("unknown timezone, using UTC", "timezone", appConfig.Timezone, "error", err)
		loc = time.UTC
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("database close failed", "error", err)
		}
	}()

	if err := dbManager.RunMigrations(database.DefaultMigrationsSource); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// The generator stays a nil interface without an API key so that the
	// services report AI_NOT_CONFIGURED and fall back to templates.
	var gen services.Generator
	if appConfig.GeminiAPIKey != "" {
		gemini, err := ai.NewGemini(ctx, ai.GeminiConfig{APIKey: appConfig.GeminiAPIKey, Model: appConfig.GeminiModel})
		if err != nil {
			return fmt.Errorf("failed to create gemini client: %w", err)
		}
		gen = ai.NewClient(gemini, appConfig.GeminiModel, ai.WithTimeout(appConfig.AITimeout))
		log.Infow("AI features enabled", "model", appConfig.GeminiModel)
	} else {
		log.Info("GEMINI_API_KEY not set, invoice extraction disabled and assistant using templates")
	}

	router := server.NewRouter(server.Options{
		DB:             dbManager.DB(),
		Generator:      gen,
		AdminEmails:    appConfig.AdminEmails,
		MaxUploadBytes: appConfig.MaxUploadBytes,
		Location:       loc,
		Settings: services.Settings{
			DefaultGSTRate: appConfig.DefaultGSTRate,
			Timezone:       appConfig.Timezone,
			Currency:       appConfig.Currency,
		},
		RequestLogging: true,
		Swagger:        true,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      appConfig.AITimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting LedgerWise API on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
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

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
