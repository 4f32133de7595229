package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty file keeps defaults",
			yaml:    ``,
			wantErr: "",
		},
		{
			name: "valid overrides",
			yaml: `
log_level: debug
session:
  ttl: 2h
  max_per_user: 3
uploads:
  backend: s3
  s3:
    bucket: club-images`,
			wantErr: "",
		},
		{
			name:    "unknown log level fails validation",
			yaml:    `log_level: loud`,
			wantErr: "config validation failed",
		},
		{
			name:    "non-positive ttl fails validation",
			yaml:    "session:\n  ttl: 0s",
			wantErr: "session.ttl must be positive",
		},
		{
			name:    "s3 without bucket fails validation",
			yaml:    "uploads:\n  backend: s3",
			wantErr: "uploads.s3.bucket is required",
		},
		{
			name:    "oidc without issuer fails validation",
			yaml:    "auth:\n  oidc:\n    enabled: true\n    client_id: x",
			wantErr: "auth.oidc requires",
		},
		{
			name:    "tls without files fails validation",
			yaml:    "http:\n  tls:\n    enabled: true",
			wantErr: "http.tls.cert_file",
		},
		{
			name:    "invalid yaml syntax",
			yaml:    `invalid: [yaml: content`,
			wantErr: "failed to unmarshal config file",
		},
	}

	// No t.Parallel: other tests in this package set environment variables.
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeTestConfig(t, test.yaml)
			cfg, err := Load(path)

			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeTestConfig(t, "session:\n  ttl: 2h\nhttp:\n  address: 0.0.0.0:9000")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTP.Address)
	assert.Equal(t, Default().Session.CookieName, cfg.Session.CookieName)
	assert.Equal(t, Default().Database.Path, cfg.Database.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvAddress, "127.0.0.1:7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTP.Address)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.ErrorContains(t, err, "failed to read config file")
	assert.Nil(t, cfg)
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}
