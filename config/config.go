package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/storage"
	"github.com/joho/godotenv"
)

const (
	defaultServerPort       = 8080
	defaultBuildConcurrency = 4
	defaultSweepSpec        = "@every 1m"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseDriver     string
	DatabaseURL        string
	RunMigrations      bool
	JWTSecretKey       string
	ServerPort         int
	LogLevel           slog.Level
	CORSAllowedOrigins []string
	BuildConcurrency   int
	PlacementSweepSpec string
	R2                 storage.CloudflareR2UploaderConfig
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function. Load passes os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		DatabaseDriver:     db.DriverPostgres,
		RunMigrations:      true,
		ServerPort:         defaultServerPort,
		LogLevel:           slog.LevelInfo,
		CORSAllowedOrigins: []string{"*"},
		BuildConcurrency:   defaultBuildConcurrency,
		PlacementSweepSpec: defaultSweepSpec,
	}

	if driver := get("DATABASE_DRIVER"); driver != "" {
		switch driver {
		case db.DriverPostgres, db.DriverSQLite:
			cfg.DatabaseDriver = driver
		default:
			return nil, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, driver)
		}
	}

	cfg.DatabaseURL = get("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is not set")
	}

	cfg.JWTSecretKey = get("JWT_SECRET_KEY")
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY environment variable is not set")
	}

	if portStr := get("SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
		}
		cfg.ServerPort = port
	}

	if level := get("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	if origins := get("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = splitList(origins)
	}

	if v := get("BUILD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BUILD_CONCURRENCY environment variable: %w", err)
		}
		if n < 1 {
			return nil, fmt.Errorf("BUILD_CONCURRENCY must be positive, got %d", n)
		}
		cfg.BuildConcurrency = n
	}

	// Пустое значение отключает sweeper.
	if spec, ok := lookup("PLACEMENT_SWEEP_SPEC"); ok {
		cfg.PlacementSweepSpec = strings.TrimSpace(spec)
	}

	if v := get("RUN_MIGRATIONS"); v != "" {
		run, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RUN_MIGRATIONS environment variable: %w", err)
		}
		cfg.RunMigrations = run
	}

	cfg.R2 = storage.CloudflareR2UploaderConfig{
		AccountID:       get("R2_ACCOUNT_ID"),
		AccessKeyID:     get("R2_ACCESS_KEY_ID"),
		SecretAccessKey: get("R2_SECRET_ACCESS_KEY"),
		BucketName:      get("R2_BUCKET_NAME"),
		PublicBaseURL:   get("R2_PUBLIC_BASE_URL"),
	}
	if cfg.R2.Enabled() {
		if err := cfg.R2.Validate(); err != nil {
			return nil, fmt.Errorf("invalid R2 configuration: %w", err)
		}
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
