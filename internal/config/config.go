package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// DefaultPath is used when no config path is given and LIBRARY_CONFIG is unset.
const DefaultPath = "library.toml"

// Config holds all configuration for the library service.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Providers ProvidersConfig `toml:"providers"`
	Events    EventsConfig    `toml:"events"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	GRPCAddr       string   `toml:"grpc_addr"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
	LoginRPS       float64  `toml:"login_rps"`
	LoginBurst     int      `toml:"login_burst"`
	AllowedOrigins []string `toml:"allowed_origins"`
	EnableHSTS     bool     `toml:"enable_hsts"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type AuthConfig struct {
	SecretKey       string `toml:"secret_key"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	PasswordHash    string `toml:"password_hash"`
	SessionTTLHours int    `toml:"session_ttl_hours"`
	CookieSecure    bool   `toml:"cookie_secure"`
}

type ProvidersConfig struct {
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MaxRetries        int     `toml:"max_retries"`
	OpenLibraryURL    string  `toml:"openlibrary_url"`
	GoogleBooksURL    string  `toml:"googlebooks_url"`
	GoogleAPIKey      string  `toml:"google_api_key"`
}

type EventsConfig struct {
	RabbitMQURL string `toml:"rabbitmq_url"`
	Exchange    string `toml:"exchange"`
}

type CatalogConfig struct {
	PerPage int `toml:"per_page"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			LoginRPS:     1,
			LoginBurst:   5,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "database/books.sqlite",
		},
		Auth: AuthConfig{
			SessionTTLHours: 12,
		},
		Providers: ProvidersConfig{
			TimeoutSeconds:    10,
			UserAgent:         "library-org/1.0 (+https://github.com/pawsen/library-org)",
			RequestsPerSecond: 2,
			OpenLibraryURL:    "https://openlibrary.org",
			GoogleBooksURL:    "https://www.googleapis.com",
		},
		Events: EventsConfig{
			Exchange: "library.events",
		},
		Catalog: CatalogConfig{
			PerPage: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SampleConfig returns the annotated example configuration file.
func SampleConfig() string {
	return sampleConfig
}

// Load reads .env files, the TOML file at path and environment overrides, in
// that order of increasing precedence. Auth settings are not checked here; see
// ValidateAuth. An empty path falls back to
// LIBRARY_CONFIG and then DefaultPath; only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = getEnv("LIBRARY_CONFIG", "")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validateCore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func applyEnv(cfg *Config) error {
	cfg.Server.Addr = getEnv("LIBRARY_ADDR", cfg.Server.Addr)
	cfg.Server.GRPCAddr = getEnv("LIBRARY_GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Database.Driver = getEnv("LIBRARY_DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("LIBRARY_DB_DSN", cfg.Database.DSN)
	cfg.Auth.SecretKey = getEnv("LIBRARY_SECRET_KEY", cfg.Auth.SecretKey)
	cfg.Auth.Username = getEnv("LIBRARY_USERNAME", cfg.Auth.Username)
	cfg.Auth.Password = getEnv("LIBRARY_PASSWORD", cfg.Auth.Password)
	cfg.Auth.PasswordHash = getEnv("LIBRARY_PASSWORD_HASH", cfg.Auth.PasswordHash)
	cfg.Events.RabbitMQURL = getEnv("LIBRARY_RABBITMQ_URL", cfg.Events.RabbitMQURL)
	cfg.Log.Level = getEnv("LIBRARY_LOG_LEVEL", cfg.Log.Level)
	cfg.Providers.GoogleAPIKey = getEnv("LIBRARY_GOOGLE_API_KEY", cfg.Providers.GoogleAPIKey)

	if v := os.Getenv("LIBRARY_PROVIDER_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_PROVIDER_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Providers.TimeoutSeconds = n
	}
	return nil
}

// Validate checks everything the server needs, including the login account.
func (c *Config) Validate() error {
	if err := c.validateCore(); err != nil {
		return err
	}
	return c.ValidateAuth()
}

// ValidateAuth checks the login account settings. Offline commands that only
// touch the database skip it.
func (c *Config) ValidateAuth() error {
	if c.Auth.SecretKey == "" {
		return errors.New("auth.secret_key is required")
	}
	if c.Auth.Username == "" {
		return errors.New("auth.username is required")
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		return errors.New("auth.password or auth.password_hash is required")
	}
	return nil
}

func (c *Config) validateCore() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver %q is not supported (use sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Providers.TimeoutSeconds <= 0 {
		return errors.New("providers.timeout_seconds must be positive")
	}
	if c.Providers.RequestsPerSecond <= 0 {
		return errors.New("providers.requests_per_second must be positive")
	}
	if c.Catalog.PerPage <= 0 {
		return errors.New("catalog.per_page must be positive")
	}
	return nil
}

// ProviderTimeout is the per-call bound for metadata provider requests.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// SessionTTL is the lifetime of an issued login session.
func (c *Config) SessionTTL() time.Duration {
	if c.Auth.SessionTTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Auth.SessionTTLHours) * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
