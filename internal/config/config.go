package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"rocket-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	SolverURL         string
	SolverTimeout     time.Duration
	DBPath            string
	ServerPort        string
	LogLevel          string
	RequestsPerMinute int
	RetryAttempts     int
	RetryDelay        time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		SolverURL:         getEnv("SOLVER_URL", ""),
		SolverTimeout:     getEnvDuration("SOLVER_TIMEOUT", constants.SolverTimeout),
		DBPath:            getEnv("DB_PATH", "tracker.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RequestsPerMinute: getEnvInt("SOLVER_REQUESTS_PER_MINUTE", constants.DefaultRequestsPerMinute),
		RetryAttempts:     getEnvInt("SOLVER_RETRY_ATTEMPTS", constants.DefaultRetryAttempts),
		RetryDelay:        getEnvDuration("SOLVER_RETRY_DELAY", constants.DefaultRetryDelay),
	}

	if cfg.SolverURL == "" {
		return nil, fmt.Errorf("SOLVER_URL is required")
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("SOLVER_REQUESTS_PER_MINUTE must be positive, got %d", cfg.RequestsPerMinute)
	}
	if cfg.RetryAttempts <= 0 {
		return nil, fmt.Errorf("SOLVER_RETRY_ATTEMPTS must be positive, got %d", cfg.RetryAttempts)
	}

	logger.Info().
		Str("solver_url", cfg.SolverURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("requests_per_minute", cfg.RequestsPerMinute).
		Int("retry_attempts", cfg.RetryAttempts).
		Dur("retry_delay", cfg.RetryDelay).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
