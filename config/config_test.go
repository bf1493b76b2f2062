package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":   "postgres://localhost/brackets?sslmode=disable",
		"JWT_SECRET_KEY": "secret",
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(lookupFrom(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 4, cfg.BuildConcurrency)
	assert.Equal(t, "@every 1m", cfg.PlacementSweepSpec)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.R2.Enabled())
}

func TestFromEnvOverrides(t *testing.T) {
	env := baseEnv()
	env["DATABASE_DRIVER"] = "sqlite3"
	env["SERVER_PORT"] = "9090"
	env["LOG_LEVEL"] = "debug"
	env["CORS_ALLOWED_ORIGINS"] = "https://a.example, https://b.example,"
	env["BUILD_CONCURRENCY"] = "8"
	env["PLACEMENT_SWEEP_SPEC"] = ""
	env["RUN_MIGRATIONS"] = "false"
	env["R2_ACCOUNT_ID"] = "acc"
	env["R2_ACCESS_KEY_ID"] = "key"
	env["R2_SECRET_ACCESS_KEY"] = "secret"
	env["R2_BUCKET_NAME"] = "results"
	env["R2_PUBLIC_BASE_URL"] = "https://cdn.example"

	cfg, err := FromEnv(lookupFrom(env))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 8, cfg.BuildConcurrency)
	assert.Empty(t, cfg.PlacementSweepSpec)
	assert.False(t, cfg.RunMigrations)
	assert.True(t, cfg.R2.Enabled())
	assert.Equal(t, "results", cfg.R2.BucketName)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing database url", "DATABASE_URL", ""},
		{"missing jwt secret", "JWT_SECRET_KEY", ""},
		{"unknown driver", "DATABASE_DRIVER", "mysql"},
		{"bad port", "SERVER_PORT", "http"},
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"zero concurrency", "BUILD_CONCURRENCY", "0"},
		{"bad migrations flag", "RUN_MIGRATIONS", "sometimes"},
		{"partial r2", "R2_BUCKET_NAME", "results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			env[tt.key] = tt.val
			_, err := FromEnv(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}
