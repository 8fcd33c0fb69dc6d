// Package config handles loading and parsing application configuration.
// It supports two sources for the config file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Before either is consulted, an optional .env file in the working
// directory is loaded into the process environment, so every env:"..."
// override below can also live there.
package config

import (
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers understood by main.
const (
	DriverSQLite  = "sqlite"
	DriverMongoDB = "mongodb"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StorageDriver picks the Record Store backend: "sqlite" or "mongodb".
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// StoragePath is the filesystem path to the SQLite .db file.
	// Only read when StorageDriver is "sqlite".
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"storage/registrations.db"`

	MongoDB    MongoDB `yaml:"mongodb"`
	Upload     Upload  `yaml:"upload"`
	CORS       CORS    `yaml:"cors"`
	HTTPServer `yaml:"http_server"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:5000".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
}

// MongoDB holds the document-store connection settings.
type MongoDB struct {
	URI      string `yaml:"uri"      env:"MONGO_URI"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"registrations"`
}

// Upload controls where submitted files land and how large a form may be.
type Upload struct {
	// Dir is the on-disk directory uploads are written to.
	Dir string `yaml:"dir" env:"UPLOAD_DIR" env-default:"uploads"`

	// URLPrefix is where the contents of Dir are served over HTTP.
	URLPrefix string `yaml:"url_prefix" env:"UPLOAD_URL_PREFIX" env-default:"/uploads/"`

	// MaxMemory is the multipart size kept in memory; the rest spills to
	// temporary files.
	MaxMemory int64 `yaml:"max_memory" env:"UPLOAD_MAX_MEMORY" env-default:"33554432"`
}

// CORS lists the origins allowed to call the API from a browser.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

// MustLoad reads, validates, and returns the application config.
// It exits the process on any failure.
func MustLoad() *Config {
	// A missing .env is normal in production; anything else is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("cannot load .env file: %s", err.Error())
	}

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return cfg
}

// Load parses the YAML file at path, applies env overrides and defaults,
// and checks that the chosen storage driver has what it needs.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	switch cfg.StorageDriver {
	case DriverSQLite:
	case DriverMongoDB:
		if cfg.MongoDB.URI == "" {
			return nil, errors.New("mongodb.uri is required when storage_driver is mongodb")
		}
	default:
		return nil, errors.New("unknown storage_driver: " + cfg.StorageDriver)
	}

	return &cfg, nil
}
