// Package cli provides common CLI initialization utilities shared by the
// bankbot subcommands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bankbot/internal/config"
	"bankbot/internal/log"
	"bankbot/internal/storage"
)

// SetupLogger builds the root logger from LOG_LEVEL and LOG_FORMAT and sets
// it as the slog default.
func SetupLogger(cfg *config.Config) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	lc := log.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration from the environment, lets
// override adjust it (flags), and validates the result.
func LoadAndValidateConfig(override func(*config.Config)) (*config.Config, error) {
	cfg := config.Load()
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitJournal opens the delivery journal when a path is configured. It
// returns nil, nil when the journal is disabled.
func InitJournal(logger *log.Logger, dbPath string) (*storage.Journal, error) {
	if dbPath == "" {
		return nil, nil
	}
	journal, err := storage.NewJournal(dbPath, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize delivery journal at %s: %w", dbPath, err)
	}
	return journal, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. A
// second signal exits immediately.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received",
				"signal", sig.String(),
				log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
			return
		}

		sig := <-sigChan
		logger.Warn("Second signal received, exiting", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx, cancel
}
