package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"fakestore-offline/internal/cache"
	"fakestore-offline/internal/repository"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server       ServerConfig
	App          AppConfig
	Upstream     UpstreamConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Offline      OfflineConfig
	Connectivity ConnectivityConfig
	Log          LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"fakestore-offline"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	// Version is the cache generation this build installs.
	Version string `envconfig:"APP_VERSION" default:"fake-store-v1"`
}

// UpstreamConfig describes the origins the gateway fetches from.
type UpstreamConfig struct {
	AppOrigin      string        `envconfig:"UPSTREAM_APP_ORIGIN" default:"http://localhost:5173"`
	APIOrigin      string        `envconfig:"UPSTREAM_API_ORIGIN" default:"https://fakestoreapi.com"`
	APIPrefix      string        `envconfig:"UPSTREAM_API_PREFIX" default:"/api"`
	NetworkTimeout time.Duration `envconfig:"UPSTREAM_NETWORK_TIMEOUT" default:"10s"`
	MaxBodyBytes   int64         `envconfig:"UPSTREAM_MAX_BODY_BYTES" default:"10485760"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Backend    string `envconfig:"CACHE_BACKEND" default:"sqlite"` // memory, sqlite, or redis
	SQLitePath string `envconfig:"CACHE_SQLITE_PATH" default:"./data/cache.db"`
	KeyPrefix  string `envconfig:"CACHE_KEY_PREFIX" default:""`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	Compression      bool `envconfig:"CACHE_COMPRESSION" default:"true"`
	CompressionLevel int  `envconfig:"CACHE_COMPRESSION_LEVEL" default:"2"`
}

// StorageConfig holds durable record storage settings (cart, update state).
type StorageConfig struct {
	Backend  string `envconfig:"STORAGE_BACKEND" default:"sqlite"` // memory, sqlite, mysql, postgres, or redis
	Path     string `envconfig:"STORAGE_PATH" default:"./data/records.db"`
	Host     string `envconfig:"STORAGE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORAGE_PORT" default:"5432"`
	Name     string `envconfig:"STORAGE_NAME" default:"fakestore"`
	User     string `envconfig:"STORAGE_USER" default:"postgres"`
	Password string `envconfig:"STORAGE_PASS" default:""`
	SSLMode  string `envconfig:"STORAGE_SSLMODE" default:"disable"`
}

// OfflineConfig lists what a generation pre-populates at install.
type OfflineConfig struct {
	Manifest   []string `envconfig:"OFFLINE_MANIFEST" default:"/,/index.html,/manifest.json,/icons/icon-192x192.png,/icons/icon-512x512.png"`
	ShellPaths []string `envconfig:"OFFLINE_SHELL_PATHS" default:"/index.html,/"`
	// PrecacheConcurrency bounds parallel fetches during install.
	PrecacheConcurrency int `envconfig:"OFFLINE_PRECACHE_CONCURRENCY" default:"4"`
	// BackgroundTimeout bounds push, click, and sync handling.
	BackgroundTimeout time.Duration `envconfig:"OFFLINE_BACKGROUND_TIMEOUT" default:"30s"`
}

// ConnectivityConfig holds the reachability probe settings.
type ConnectivityConfig struct {
	ProbeEnabled  bool          `envconfig:"CONNECTIVITY_PROBE_ENABLED" default:"true"`
	ProbeURL      string        `envconfig:"CONNECTIVITY_PROBE_URL" default:"https://fakestoreapi.com/products/categories"`
	ProbeInterval time.Duration `envconfig:"CONNECTIVITY_PROBE_INTERVAL" default:"30s"`
	ProbeTimeout  time.Duration `envconfig:"CONNECTIVITY_PROBE_TIMEOUT" default:"5s"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StorageConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(s.User), url.QueryEscape(s.Password), s.Host, s.Port, s.Name, s.SSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StorageConfig) MySQLDSN() string {
	return repository.MySQLDSN(s.Host, s.Port, s.User, s.Password, s.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// AppOriginURL parses the app origin.
func (u *UpstreamConfig) AppOriginURL() (*url.URL, error) {
	return parseOrigin("UPSTREAM_APP_ORIGIN", u.AppOrigin)
}

// APIOriginURL parses the API origin.
func (u *UpstreamConfig) APIOriginURL() (*url.URL, error) {
	return parseOrigin("UPSTREAM_API_ORIGIN", u.APIOrigin)
}

func parseOrigin(name, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: %q is not an absolute origin", name, raw)
	}
	return u, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case cache.BackendMemory, cache.BackendSQLite, cache.BackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	switch c.Storage.Backend {
	case repository.BackendMemory, repository.BackendSQLite, repository.BackendMySQL,
		repository.BackendPostgres, repository.BackendRedis:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.App.Version == "" {
		return fmt.Errorf("APP_VERSION must not be empty")
	}
	if _, err := c.Upstream.AppOriginURL(); err != nil {
		return err
	}
	if _, err := c.Upstream.APIOriginURL(); err != nil {
		return err
	}
	if c.Upstream.APIPrefix != "" && !strings.HasPrefix(c.Upstream.APIPrefix, "/") {
		return fmt.Errorf("UPSTREAM_API_PREFIX must start with /")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
