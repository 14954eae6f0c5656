package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Storage backends selectable with STORAGE_TYPE.
const (
	StorageJSONBin      = "jsonbin"
	StorageMongo        = "mongo"
	StorageLocalStorage = "localstorage"
)

// Local stores selectable with LOCAL_STORE.
const (
	LocalSQLite = "sqlite"
	LocalRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server struct {
		Port           string        `env:"PORT" envDefault:"5250"`
		AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
		ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
		WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	}

	Storage struct {
		// Type is jsonbin, mongo or localstorage
		Type string `env:"STORAGE_TYPE" envDefault:"jsonbin"`
		// DocumentID pins the remote document instead of provisioning one
		DocumentID    string        `env:"STORAGE_DOCUMENT_ID"`
		RemoteTimeout time.Duration `env:"STORAGE_REMOTE_TIMEOUT" envDefault:"10s"`
		// LocalStore is sqlite or redis
		LocalStore string `env:"LOCAL_STORE" envDefault:"sqlite"`
	}

	JSONBin struct {
		BaseURL   string `env:"JSONBIN_BASE_URL" envDefault:"https://api.jsonbin.io/v3/b"`
		MasterKey string `env:"JSONBIN_MASTER_KEY"`
	}

	Mongo struct {
		URI        string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		Database   string `env:"MONGO_DATABASE" envDefault:"estatehub"`
		Collection string `env:"MONGO_COLLECTION" envDefault:"listing_documents"`
	}

	SQLite struct {
		Path string `env:"SQLITE_PATH" envDefault:"database/estatehub.db"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Prefix   string `env:"REDIS_PREFIX" envDefault:"estatehub:"`
	}

	NATS struct {
		// URL is empty when events should not leave the process
		URL     string `env:"NATS_URL"`
		Subject string `env:"NATS_SUBJECT" envDefault:"listings.events"`
	}

	Events struct {
		QueueSize int `env:"EVENTS_QUEUE_SIZE" envDefault:"256"`
		// Maximum number of retries for a failed publish
		MaxRetries int `env:"EVENTS_MAX_RETRIES" envDefault:"3"`
		// Delay between retries
		RetryDelay time.Duration `env:"EVENTS_RETRY_DELAY" envDefault:"2s"`
	}

	Auth struct {
		AdminUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
		AdminPassword string        `env:"ADMIN_PASSWORD"`
		JWTSecret     string        `env:"JWT_SECRET"`
		TokenTTL      time.Duration `env:"ADMIN_TOKEN_TTL" envDefault:"12h"`
	}

	Log struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
	}

	// SeedFile holds listings stored when the collection is empty. Defaults to the
	// bundled sample catalogue.
	SeedFile    string `env:"SEED_FILE"`
	SeedSamples bool   `env:"SEED_SAMPLE_LISTINGS" envDefault:"true"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Type = strings.ToLower(strings.TrimSpace(cfg.Storage.Type))
	cfg.Storage.LocalStore = strings.ToLower(strings.TrimSpace(cfg.Storage.LocalStore))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StorageJSONBin, StorageMongo, StorageLocalStorage:
	default:
		return fmt.Errorf("%w: unknown STORAGE_TYPE %q", ErrInvalidConfig, c.Storage.Type)
	}
	switch c.Storage.LocalStore {
	case LocalSQLite, LocalRedis:
	default:
		return fmt.Errorf("%w: unknown LOCAL_STORE %q", ErrInvalidConfig, c.Storage.LocalStore)
	}
	if c.Storage.Type == StorageJSONBin && c.JSONBin.MasterKey == "" {
		return fmt.Errorf("%w: JSONBIN_MASTER_KEY is required for jsonbin storage", ErrInvalidConfig)
	}
	if c.Events.QueueSize <= 0 {
		return fmt.Errorf("%w: EVENTS_QUEUE_SIZE must be positive", ErrInvalidConfig)
	}
	return nil
}

// AdminEnabled reports whether admin login is possible.
func (c *Config) AdminEnabled() bool {
	return c.Auth.AdminPassword != "" && c.Auth.JWTSecret != ""
}
