package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"book-review/models"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

var AppConfigFile = getConfigPath("app.json")

func getConfigPath(filename string) string {
	// packaged install
	if _, err := os.Stat("/etc/book-review"); err == nil {
		return filepath.Join("/etc/book-review", filename)
	}
	return filepath.Join("config", filename)
}

// AppConfig is the runtime configuration of the service. Values are layered:
// defaults, then the JSON file, then .env, then the process environment,
// then command line flags.
type AppConfig struct {
	Host string `env:"HOST"`
	Port string `env:"PORT"`

	StoreDriver   string        `env:"STORE_DRIVER"`
	MongoURI      string        `env:"MONGODB_URI"`
	MongoDatabase string        `env:"MONGODB_DATABASE"`
	PostgresDSN   string        `env:"POSTGRES_DSN"`
	DBTimeout     time.Duration `env:"DB_TIMEOUT"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST"`

	// CORSOrigins is semicolon-separated in the environment.
	CORSOrigins []string `env:"CORS_ORIGINS"`
	TrustProxy  bool     `env:"TRUST_PROXY"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

func Default() *AppConfig {
	return &AppConfig{
		Host:           "0.0.0.0",
		Port:           "8081",
		StoreDriver:    string(models.MongoDB),
		MongoURI:       "mongodb://localhost:27017",
		MongoDatabase:  "bookreview",
		DBTimeout:      5 * time.Second,
		TokenTTL:       24 * time.Hour,
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

type LoadOptions struct {
	// Path of the JSON config file. When empty AppConfigFile is tried and may
	// be missing.
	Path string
	// EnvFile is the dotenv file to load. When empty ".env" is tried and may
	// be missing.
	EnvFile string
}

// Load builds the configuration from defaults, the JSON file, the dotenv file
// and the environment. Flags are applied by the caller.
func Load(opts LoadOptions) (*AppConfig, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = AppConfigFile
	}
	if err := loadFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	envFile, explicit := opts.EnvFile, opts.EnvFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	return cfg, nil
}

// fileConfig is the on-disk shape of AppConfig. Durations are Go duration
// strings such as "24h".
type fileConfig struct {
	Host           string   `json:"host"`
	Port           string   `json:"port"`
	StoreDriver    string   `json:"store_driver"`
	MongoURI       string   `json:"mongodb_uri"`
	MongoDatabase  string   `json:"mongodb_database"`
	PostgresDSN    string   `json:"postgres_dsn"`
	DBTimeout      string   `json:"db_timeout"`
	JWTSecret      string   `json:"jwt_secret"`
	TokenTTL       string   `json:"token_ttl"`
	RateLimitRPS   *float64 `json:"rate_limit_rps"`
	RateLimitBurst *int     `json:"rate_limit_burst"`
	CORSOrigins    []string `json:"cors_origins"`
	TrustProxy     *bool    `json:"trust_proxy"`
	LogLevel       string   `json:"log_level"`
	LogFormat      string   `json:"log_format"`
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.apply(cfg)
}

func (fc *fileConfig) apply(cfg *AppConfig) error {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.Host, fc.Host)
	setString(&cfg.Port, fc.Port)
	setString(&cfg.StoreDriver, fc.StoreDriver)
	setString(&cfg.MongoURI, fc.MongoURI)
	setString(&cfg.MongoDatabase, fc.MongoDatabase)
	setString(&cfg.PostgresDSN, fc.PostgresDSN)
	setString(&cfg.JWTSecret, fc.JWTSecret)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)

	for name, d := range map[string]struct {
		raw string
		dst *time.Duration
	}{
		"db_timeout": {fc.DBTimeout, &cfg.DBTimeout},
		"token_ttl":  {fc.TokenTTL, &cfg.TokenTTL},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		*d.dst = v
	}

	if fc.RateLimitRPS != nil {
		cfg.RateLimitRPS = *fc.RateLimitRPS
	}
	if fc.RateLimitBurst != nil {
		cfg.RateLimitBurst = *fc.RateLimitBurst
	}
	if fc.CORSOrigins != nil {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.TrustProxy != nil {
		cfg.TrustProxy = *fc.TrustProxy
	}
	return nil
}

// Validate reports the first setting the service cannot start with.
func (c *AppConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required (set JWT_SECRET)")
	}
	if c.TokenTTL < 0 {
		return errors.New("token ttl must not be negative")
	}

	dbType, err := models.ParseDatabaseType(c.StoreDriver)
	if err != nil {
		return err
	}
	switch dbType {
	case models.MongoDB:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("mongodb uri and database are required")
		}
	case models.PostgreSQL:
		if c.PostgresDSN == "" {
			return errors.New("postgres dsn is required (set POSTGRES_DSN)")
		}
	}

	if c.RateLimitRPS < 0 {
		return errors.New("rate limit rps must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Connection describes how to reach the configured store.
func (c *AppConfig) Connection() (models.Connection, error) {
	dbType, err := models.ParseDatabaseType(c.StoreDriver)
	if err != nil {
		return models.Connection{}, err
	}

	conn := models.Connection{Type: dbType, Timeout: c.DBTimeout}
	switch dbType {
	case models.MongoDB:
		conn.URI = c.MongoURI
		conn.Database = c.MongoDatabase
	case models.PostgreSQL:
		conn.URI = c.PostgresDSN
	}
	return conn, nil
}

func (c *AppConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
