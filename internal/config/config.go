// Package config handles resolving configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvDBPath  = "CAMPUSHUB_DB_PATH"
	EnvAddress = "CAMPUSHUB_ADDRESS"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	DevMode  bool           `yaml:"dev_mode"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads"`
}

type HTTPConfig struct {
	Address        string    `yaml:"address"`
	AllowedOrigins []string  `yaml:"allowed_origins"`
	TrustedProxies []string  `yaml:"trusted_proxies"`
	StaticDir      string    `yaml:"static_dir"`
	BodyLimit      string    `yaml:"body_limit"`
	TLS            TLSConfig `yaml:"tls"`
}

// TLSConfig enables HTTPS. With SelfSigned a certificate is generated into
// CertDir on first start; otherwise CertFile and KeyFile must exist.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SelfSigned bool   `yaml:"self_signed"`
	CertDir    string `yaml:"cert_dir"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SessionConfig struct {
	CookieName  string        `yaml:"cookie_name"`
	TTL         time.Duration `yaml:"ttl"`
	MaxPerUser  int           `yaml:"max_per_user"`
	ForceSecure bool          `yaml:"force_secure"`
}

type AuthConfig struct {
	MinPasswordLength int           `yaml:"min_password_length"`
	LoginAttempts     int           `yaml:"login_attempts"`
	LoginWindow       time.Duration `yaml:"login_window"`
	Lockout           time.Duration `yaml:"lockout"`
	OIDC              OIDCConfig    `yaml:"oidc"`
}

type OIDCConfig struct {
	Enabled      bool     `yaml:"enabled"`
	IssuerURL    string   `yaml:"issuer_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	EmailClaim   string   `yaml:"email_claim"`
}

type UploadsConfig struct {
	Backend       string   `yaml:"backend"`
	Dir           string   `yaml:"dir"`
	MaxImageBytes int64    `yaml:"max_image_bytes"`
	S3            S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Default returns a version of the config with all default values populated.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Address:        "localhost:8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			BodyLimit:      "8M",
			TLS: TLSConfig{
				CertDir: filepath.Join(xdg.DataHome, "campushub", "certs"),
			},
		},
		Database: DatabaseConfig{
			Path: filepath.Join(xdg.DataHome, "campushub", "campushub.db"),
		},
		Session: SessionConfig{
			CookieName: "campushub_session",
			TTL:        24 * time.Hour,
			MaxPerUser: 10,
		},
		Auth: AuthConfig{
			MinPasswordLength: 8,
			LoginAttempts:     5,
			LoginWindow:       15 * time.Minute,
			Lockout:           15 * time.Minute,
			OIDC: OIDCConfig{
				Scopes:     []string{"openid", "profile", "email"},
				EmailClaim: "email",
			},
		},
		Uploads: UploadsConfig{
			Backend:       "disk",
			Dir:           filepath.Join(xdg.DataHome, "campushub", "uploads"),
			MaxImageBytes: 5 << 20,
		},
	}
}

// DefaultPath is where the config file is looked up when none is given
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "campushub", "config.yaml")
}

// Load loads a YAML configuration file from a path, merges it with defaults,
// applies environment overrides and validates the result. An empty path
// skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		bytes, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = yaml.Unmarshal(bytes, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvAddress); v != "" {
		c.HTTP.Address = v
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.HTTP.TLS.Enabled && !c.HTTP.TLS.SelfSigned && (c.HTTP.TLS.CertFile == "" || c.HTTP.TLS.KeyFile == "") {
		errs = append(errs, errors.New("http.tls.cert_file and http.tls.key_file are required unless self_signed"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.MaxPerUser < 0 {
		errs = append(errs, errors.New("session.max_per_user must not be negative"))
	}
	if c.Auth.MinPasswordLength < 1 {
		errs = append(errs, errors.New("auth.min_password_length must be at least 1"))
	}
	if c.Auth.LoginAttempts < 1 || c.Auth.LoginWindow <= 0 || c.Auth.Lockout <= 0 {
		errs = append(errs, errors.New("auth.login_attempts, auth.login_window and auth.lockout must be positive"))
	}
	if o := c.Auth.OIDC; o.Enabled && (o.IssuerURL == "" || o.ClientID == "" || o.RedirectURL == "") {
		errs = append(errs, errors.New("auth.oidc requires issuer_url, client_id and redirect_url when enabled"))
	}
	switch c.Uploads.Backend {
	case "disk":
		if c.Uploads.Dir == "" {
			errs = append(errs, errors.New("uploads.dir is required for the disk backend"))
		}
	case "s3":
		if c.Uploads.S3.Bucket == "" {
			errs = append(errs, errors.New("uploads.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("uploads.backend must be disk or s3, got %q", c.Uploads.Backend))
	}
	if c.Uploads.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("uploads.max_image_bytes must be positive"))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a config log level name to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
}
