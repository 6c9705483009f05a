// Package config loads process configuration.
//
// Precedence, low to high: defaults from New, the YAML file named by
// MENU_CONFIG, then environment variables. A .env file in the working
// directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yeremiapane/menu-catalog/utils"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Port    string `koanf:"port"`
	GinMode string `koanf:"gin_mode"`

	LogLevel string `koanf:"log_level"`

	DBDriver string `koanf:"db_driver"`
	DBDSN    string `koanf:"db_dsn"`

	// ImageStore selects the image backend: disk or minio.
	ImageStore     string `koanf:"image_store"`
	UploadDir      string `koanf:"upload_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`

	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`

	// AuthSecret, when set, requires an HS256 bearer token on write routes.
	AuthSecret string `koanf:"auth_secret"`

	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	CORSOrigin string `koanf:"cors_origin"`

	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

func New() *Config {
	return &Config{
		Port:            "3000",
		GinMode:         "debug",
		LogLevel:        "info",
		DBDriver:        "sqlite",
		DBDSN:           "menu.db",
		ImageStore:      "disk",
		UploadDir:       "uploads",
		MaxUploadBytes:  10 << 20,
		RateLimitRPS:    50,
		RateLimitBurst:  100,
		CORSOrigin:      "*",
		ShutdownTimeout: 10 * time.Second,
	}
}

// envKeys are the environment variables read by Load.
var envKeys = map[string]bool{
	"port": true, "gin_mode": true, "log_level": true,
	"db_driver": true, "db_dsn": true,
	"image_store": true, "upload_dir": true, "max_upload_bytes": true,
	"minio_endpoint": true, "minio_access_key": true, "minio_secret_key": true, "minio_bucket": true,
	"auth_secret": true, "rate_limit_rps": true, "rate_limit_burst": true,
	"cors_origin": true, "shutdown_timeout": true,
}

// loadDotEnv reads .env into the environment. A missing file is normal.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			utils.InfoLogger.Debug(".env file not found")
			return
		}
		utils.InfoLogger.Warnf("Warning: .env file not loaded: %v", err)
	}
}

func Load() (*Config, error) {
	loadDotEnv()

	k := koanf.New(".")

	if path := os.Getenv("MENU_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// PORT -> port, DB_DSN -> db_dsn. Unknown variables are dropped.
	envProvider := env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if !envKeys[key] {
			return ""
		}
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port must not be empty", ErrInvalidConfig)
	}
	switch c.ImageStore {
	case "disk":
		if c.UploadDir == "" {
			return fmt.Errorf("%w: upload_dir must not be empty", ErrInvalidConfig)
		}
	case "minio":
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return fmt.Errorf("%w: minio_endpoint and minio_bucket are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown image_store %q", ErrInvalidConfig, c.ImageStore)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
