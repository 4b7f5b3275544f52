// Package config loads server settings from defaults, an optional YAML file,
// a .env file and KOMPONENTE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "KOMPONENTE_"

// Asset backends.
const (
	AssetsLocal = "local"
	AssetsGCS   = "gcs"
)

type Config struct {
	DatabaseURL string        `yaml:"database_url"`
	Addr        string        `yaml:"addr"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	JWTSecret   string        `yaml:"jwt_secret"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	LoginRate   string        `yaml:"login_rate"`

	Redis  RedisConfig  `yaml:"redis"`
	Assets AssetsConfig `yaml:"assets"`
	SMTP   SMTPConfig   `yaml:"smtp"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AssetsConfig struct {
	Backend         string `yaml:"backend"`
	Dir             string `yaml:"dir"`
	BaseURL         string `yaml:"base_url"`
	GCSBucket       string `yaml:"gcs_bucket"`
	CredentialsFile string `yaml:"gcs_credentials_file"`
}

type SMTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	From      string `yaml:"from"`
	ContactTo string `yaml:"contact_to"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DatabaseURL: "komponente.sqlite3",
		Addr:        ":8080",
		LogLevel:    "info",
		SessionTTL:  7 * 24 * time.Hour,
		LoginRate:   "10-M",
		Assets: AssetsConfig{
			Backend: AssetsLocal,
			Dir:     "uploads",
		},
		SMTP: SMTPConfig{Port: 587},
	}
}

// Load builds the configuration. path names an optional YAML file; an empty
// path skips it. A missing .env file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overrides cfg with every KOMPONENTE_* variable lookup finds.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATABASE_URL":         &cfg.DatabaseURL,
		"ADDR":                 &cfg.Addr,
		"LOG_FILE":             &cfg.LogFile,
		"LOG_LEVEL":            &cfg.LogLevel,
		"JWT_SECRET":           &cfg.JWTSecret,
		"LOGIN_RATE":           &cfg.LoginRate,
		"REDIS_ADDR":           &cfg.Redis.Addr,
		"REDIS_PASSWORD":       &cfg.Redis.Password,
		"ASSET_BACKEND":        &cfg.Assets.Backend,
		"ASSET_DIR":            &cfg.Assets.Dir,
		"ASSET_BASE_URL":       &cfg.Assets.BaseURL,
		"GCS_BUCKET":           &cfg.Assets.GCSBucket,
		"GCS_CREDENTIALS_FILE": &cfg.Assets.CredentialsFile,
		"SMTP_HOST":            &cfg.SMTP.Host,
		"SMTP_USERNAME":        &cfg.SMTP.Username,
		"SMTP_PASSWORD":        &cfg.SMTP.Password,
		"SMTP_FROM":            &cfg.SMTP.From,
		"CONTACT_TO":           &cfg.SMTP.ContactTo,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REDIS_DB":  &cfg.Redis.DB,
		"SMTP_PORT": &cfg.SMTP.Port,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", EnvPrefix, err)
		}
		cfg.SessionTTL = d
	}
	return nil
}

// Validate checks settings that would otherwise fail late at startup.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database url is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Assets.Backend {
	case AssetsLocal:
		if c.Assets.Dir == "" {
			return errors.New("asset dir is required for the local backend")
		}
	case AssetsGCS:
		if c.Assets.GCSBucket == "" {
			return errors.New("gcs bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown asset backend %q", c.Assets.Backend)
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("invalid smtp port %d", c.SMTP.Port)
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn" or "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// MailEnabled reports whether enough SMTP settings are present to send mail.
func (c Config) MailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}
