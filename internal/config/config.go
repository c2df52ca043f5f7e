// Package config handles loading and parsing application configuration.
// It supports three sources (later ones win):
//  1. A YAML file:              CONFIG_PATH=/path/to/config.yaml or --config
//  2. A .env file in the working directory (loaded into the environment)
//  3. Environment variables     (every field has an env:"..." tag)
//
// The YAML file is optional: with no path the config is read from the
// environment alone, which is how containers usually run the server.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers accepted in Config.StorageDriver.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// StorageDriver picks the Record Store backend: "sqlite" or "mongo".
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"storage/students.db"`

	// FrontendURL is the single origin allowed by CORS. Empty allows any.
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL"`

	// HTTPServer is embedded (not a pointer) so its fields are accessible
	// directly on Config:  cfg.HTTPServer.Addr  or after promotion cfg.Addr
	HTTPServer `yaml:"http_server"`

	Mongo      Mongo      `yaml:"mongo"`
	Codeforces Codeforces `yaml:"codeforces"`
	Redis      Redis      `yaml:"redis"`
	Sync       Sync       `yaml:"sync"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:5000".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:":5000"`

	// Port, when set, replaces the port of Addr. It exists so the usual
	// PORT variable of hosting platforms works without extra wiring.
	Port string `yaml:"port" env:"PORT"`
}

// Mongo configures the MongoDB backend (storage_driver: mongo).
type Mongo struct {
	URI        string `yaml:"uri"        env:"MONGO_URI"`
	Database   string `yaml:"database"   env:"MONGO_DATABASE"   env-default:"students_dashboard"`
	Collection string `yaml:"collection" env:"MONGO_COLLECTION" env-default:"students"`
}

// Codeforces configures the external rating lookup.
type Codeforces struct {
	BaseURL string        `yaml:"base_url" env:"CODEFORCES_BASE_URL" env-default:"https://codeforces.com/api"`
	Timeout time.Duration `yaml:"timeout"  env:"CODEFORCES_TIMEOUT"  env-default:"10s"`
}

// Redis configures the optional rating lookup cache. An empty Addr
// disables caching.
type Redis struct {
	Addr     string        `yaml:"addr"      env:"REDIS_ADDR"`
	Password string        `yaml:"password"  env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db"        env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

// Sync configures the scheduled rating sync job.
type Sync struct {
	Enabled  bool   `yaml:"enabled"  env:"SYNC_ENABLED"  env-default:"true"`
	Schedule string `yaml:"schedule" env:"SYNC_SCHEDULE" env-default:"0 * * * *"`
}

// Load reads the config from path (YAML) plus the environment, or from the
// environment alone when path is empty, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		// cleanenv.ReadConfig reads the YAML file, then applies env
		// overrides and env-default values.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config from env: %w", err)
	}

	if cfg.Port != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("invalid http_server address %q: %w", cfg.Addr, err)
		}
		cfg.Addr = net.JoinHostPort(host, cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.StoragePath == "" {
			return errors.New("storage_path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	if c.Codeforces.Timeout <= 0 {
		return errors.New("codeforces timeout must be positive")
	}
	return nil
}

// MustLoad reads, validates, and returns the application config.
//
// The name "MustLoad" follows a Go convention: functions prefixed with
// "Must" are allowed to panic/fatal on failure. Callers do not need to
// check a returned error; if this function returns, the config is valid.
func MustLoad() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("cannot load .env: %s", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}
