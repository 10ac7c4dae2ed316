// Package config loads folio's settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	DBPath  string `env:"FOLIO_DB" envDefault:"folio.db"`
	PeerURL string `env:"FOLIO_PEER_URL"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	AdminUsername   string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword   string        `env:"ADMIN_PASSWORD"`
	AdminSessionTTL time.Duration `env:"ADMIN_SESSION_TTL" envDefault:"24h"`

	HashSalt         string        `env:"FOLIO_HASH_SALT"`
	VisitorRetention time.Duration `env:"VISITOR_RETENTION" envDefault:"720h"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	AllowedWSOrigins []string      `env:"FOLIO_WS_ORIGINS" envSeparator:","`

	ToEmail string `env:"TO_EMAIL"`
	SMTP    SMTP   `envPrefix:"SMTP_"`
	Media   Media  `envPrefix:"MEDIA_"`
	S3      S3     `envPrefix:"S3_"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

type SMTP struct {
	Host string `env:"HOST"`
	Port string `env:"PORT" envDefault:"587"`
	User string `env:"USER"`
	Pass string `env:"PASS"`
}

type Media struct {
	Backend  string `env:"BACKEND" envDefault:"disk"`
	Dir      string `env:"DIR" envDefault:"media"`
	MaxBytes int64  `env:"MAX_BYTES" envDefault:"5242880"`
}

type S3 struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	PathStyle bool   `env:"PATH_STYLE"`
	PublicURL string `env:"PUBLIC_URL"`
	Prefix    string `env:"PREFIX" envDefault:"uploads/"`
}

// SMTPEnabled reports whether contact messages should also be mailed.
func (c Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.User != "" && c.SMTP.Pass != "" && c.ToEmail != ""
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Media.Backend {
	case "disk":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("MEDIA_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown MEDIA_BACKEND %q", c.Media.Backend)
	}
	if c.AdminSessionTTL <= 0 {
		return fmt.Errorf("ADMIN_SESSION_TTL must be positive")
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
