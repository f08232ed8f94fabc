package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"thaitanloi365/picture-protector/facebluring"
	"thaitanloi365/picture-protector/internal/log"
	"thaitanloi365/picture-protector/share"
)

type Config struct {
	Face   facebluring.Config `yaml:"face"`
	Server ServerConfig       `yaml:"server"`
	Share  share.Config       `yaml:"share"`
	Log    log.Config         `yaml:"log"`
	Batch  BatchConfig        `yaml:"batch"`
}

type ServerConfig struct {
	Port           string        `yaml:"port" validate:"required,numeric"`
	BodyLimitMB    int           `yaml:"body_limit_mb" validate:"gte=1"`
	MaxUploadMB    int           `yaml:"max_upload_mb" validate:"gte=1"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	SessionTTL     time.Duration `yaml:"session_ttl" validate:"gte=0"`
	SweepInterval  time.Duration `yaml:"sweep_interval" validate:"gte=0"`
	RateLimit      float64       `yaml:"rate_limit" validate:"gt=0"`
	RateBurst      int           `yaml:"rate_burst" validate:"gte=1"`
}

type BatchConfig struct {
	Workers int `yaml:"workers" validate:"gte=1"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Face: facebluring.Config{
			CascadeFile:    "cascade/facefinder",
			MinSize:        20,
			MaxSize:        1000,
			ShiftFactor:    0.1,
			ScaleFactor:    1.1,
			IouThreshold:   0.2,
			Mode:           facebluring.ModePixelate,
			PixelDivisions: 20,
			BlurSigma:      5,
			JPEGQuality:    100,
		},
		Server: ServerConfig{
			Port:           "3000",
			BodyLimitMB:    50,
			MaxUploadMB:    20,
			RequestTimeout: 30 * time.Second,
			SessionTTL:     30 * time.Minute,
			SweepInterval:  time.Minute,
			RateLimit:      50,
			RateBurst:      100,
		},
		Share: share.Config{
			Driver:     share.DriverLocal,
			Dir:        "shared",
			PresignTTL: 15 * time.Minute,
		},
		Log: log.Config{
			Level: "info",
			File:  "./storage/logs/picture-protector.log",
		},
		Batch: BatchConfig{
			Workers: runtime.NumCPU(),
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then a .env file if present, then the
// process environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewValidator returns the validator shared by config and request parsing.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "APP_PORT")
	setString(&c.Face.CascadeFile, "CASCADE_FILE")
	setString(&c.Share.Driver, "SHARE_DRIVER")
	setString(&c.Share.Dir, "SHARE_DIR")
	setString(&c.Share.Bucket, "AWS_BUCKET_NAME")
	setString(&c.Share.Region, "AWS_REGION")
	setString(&c.Share.Endpoint, "AWS_ENDPOINT")
	setString(&c.Share.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&c.Share.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.File, "LOG_FILE")

	if v := os.Getenv("BLUR_MODE"); v != "" {
		c.Face.Mode = facebluring.Mode(v)
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Server.SessionTTL = d
	}

	if v := os.Getenv("BATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_WORKERS: %w", err)
		}
		c.Batch.Workers = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}
