package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Cache     CacheConfig
	GameDB    GameDBConfig
	CatalogDB CatalogDBConfig
	EventDB   EventDBConfig
	Store     StoreConfig
	Reaper    ReaperConfig
	Features  FeatureConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"arcstore-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key (X-Login-Key)
}

// CacheConfig holds Redis settings. Redis backs session tokens, the catalog
// cache and the per-user lock; without it everything falls back to memory.
type CacheConfig struct {
	TTL      time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"1h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string `envconfig:"REDIS_KEY_PREFIX" default:"arcstore"`
}

// GameDBConfig points at the game server database (user, present, present_item, user_present).
type GameDBConfig struct {
	Path string `envconfig:"GAME_DB_PATH" default:"./database/arcaea_database.db"`
}

// CatalogDBConfig holds the web database settings (store_item).
type CatalogDBConfig struct {
	Type string `envconfig:"CATALOG_DB_TYPE" default:"sqlite"` // sqlite, mysql or postgres
	Path string `envconfig:"CATALOG_DB_PATH" default:"./web/user.db"`
	// MySQL / PostgreSQL settings
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"3306"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"arcweb"`
	User     string `envconfig:"CATALOG_DB_USER" default:"root"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
	SSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`
}

// EventDBConfig points at the event database (lottery, prize_status).
type EventDBConfig struct {
	Path string `envconfig:"EVENT_DB_PATH" default:"./web/event.db"`
}

// StoreConfig holds transaction settings for the store workflows.
type StoreConfig struct {
	OrderTTL       time.Duration `envconfig:"STORE_ORDER_TTL" default:"24h"`
	AcquireTimeout time.Duration `envconfig:"STORE_ACQUIRE_TIMEOUT" default:"10s"`
	LockTTL        time.Duration `envconfig:"STORE_LOCK_TTL" default:"30s"`
	RenamePrice    int64         `envconfig:"STORE_RENAME_PRICE" default:"648"`
}

// ReaperConfig holds settings for the periodic expired-order sweep.
type ReaperConfig struct {
	Enabled  bool          `envconfig:"REAPER_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"REAPER_INTERVAL" default:"10m"`
}

// FeatureConfig holds feature switches.
type FeatureConfig struct {
	GiftEnabled bool `envconfig:"FEATURE_GIFT_ENABLED" default:"false"`
}

// RateLimitConfig holds per-IP rate limits for the store routes.
type RateLimitConfig struct {
	RPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	Burst int     `envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// DSN returns the catalog data source name for the configured driver.
func (c *CatalogDBConfig) DSN() string {
	switch c.Type {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case "postgres", "postgresql":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
	default:
		return c.Path
	}
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
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
