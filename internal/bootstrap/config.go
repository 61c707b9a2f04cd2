package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/principal-auth/config"
)

// InitLogger installs a JSON logger at info level. It covers startup until the
// configuration is loaded and ConfigureLogger replaces it.
func InitLogger() *slog.Logger {
	return installLogger(os.Stdout, config.LoggingConfig{Level: "info", Format: config.LogFormatJSON})
}

// ConfigureLogger installs the logger described by cfg as the slog default.
func ConfigureLogger(cfg config.LoggingConfig) *slog.Logger {
	return installLogger(os.Stdout, cfg)
}

func installLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	logger := slog.New(newLogHandler(w, cfg))
	slog.SetDefault(logger)
	return logger
}

func newLogHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == config.LogFormatText {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// LoadConfig reads an optional .env file, parses the environment into AppConfig,
// then sanitises and validates it.
func LoadConfig() (config.AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
	}

	cfg, err := env.ParseAs[config.AppConfig]()
	if err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
