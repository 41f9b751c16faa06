package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v6"
)

// Config holds every process-wide setting. It is constructed once in main
// and passed explicitly to the components that need it.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	AuthSecretKey      string `env:"AUTH_SECRET_KEY"`
	SignedURLSecretKey string `env:"SIGNED_URL_SECRET_KEY"`

	AccessTokenExpireMinutes int `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	SignedURLExpireMinutes   int `env:"SIGNED_URL_EXPIRE_MINUTES" envDefault:"2"`

	MaxFileSizeBytes        int64 `env:"MAX_FILE_SIZE_BYTES" envDefault:"50000000"`
	MaxUserImages           int   `env:"MAX_USER_IMAGES" envDefault:"10"`
	MaxCompressionsPerImage int   `env:"MAX_COMPRESSIONS_PER_IMAGE" envDefault:"10"`

	DBFilePath    string `env:"DB_FILE_PATH" envDefault:"./data/db.json"`
	FilestorePath string `env:"FILESTORE_PATH" envDefault:"./data/filestore"`

	RedisURL   string `env:"REDIS_URL"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AuthSecretKey == "" {
		return errors.New("AUTH_SECRET_KEY is required")
	}
	if c.SignedURLSecretKey == "" {
		return errors.New("SIGNED_URL_SECRET_KEY is required")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.SignedURLExpireMinutes <= 0 {
		return errors.New("SIGNED_URL_EXPIRE_MINUTES must be positive")
	}
	if c.MaxFileSizeBytes <= 0 {
		return errors.New("MAX_FILE_SIZE_BYTES must be positive")
	}
	if c.MaxUserImages <= 0 {
		return errors.New("MAX_USER_IMAGES must be positive")
	}
	if c.MaxCompressionsPerImage <= 0 {
		return errors.New("MAX_COMPRESSIONS_PER_IMAGE must be positive")
	}
	return nil
}
