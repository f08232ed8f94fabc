// Package share publishes rendered photos so they can be handed to someone
// else: written to a local directory or uploaded to an S3 bucket.
package share

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
)

var ErrEmptyLocation = errors.New("empty share location")

// Config selects and configures a sharer.
type Config struct {
	Driver          string        `yaml:"driver" validate:"oneof=local s3"`
	Dir             string        `yaml:"dir" validate:"required_if=Driver local"`
	Bucket          string        `yaml:"bucket" validate:"required_if=Driver s3"`
	Region          string        `yaml:"region" validate:"required_if=Driver s3"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	PresignTTL      time.Duration `yaml:"presign_ttl"`
}

// Sharer is implemented by LocalSharer and S3Sharer.
type Sharer interface {
	Share(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// New builds the sharer named by cfg.Driver.
func New(cfg Config) (Sharer, error) {
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocalSharer(cfg.Dir), nil
	case DriverS3:
		return NewS3Sharer(cfg)
	default:
		return nil, fmt.Errorf("unknown share driver: %s", cfg.Driver)
	}
}

// LocalSharer writes shared photos into a directory.
type LocalSharer struct {
	dir string
}

func NewLocalSharer(dir string) *LocalSharer {
	if dir == "" {
		dir = "shared"
	}
	return &LocalSharer{dir: dir}
}

// Share writes data to <dir>/<key> and returns the file path.
func (l *LocalSharer) Share(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("create share dir: %w", err)
	}

	path := filepath.Join(l.dir, filepath.Base(key))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// QRCode renders location as a size x size PNG QR code.
func QRCode(location string, size int) ([]byte, error) {
	if location == "" {
		return nil, ErrEmptyLocation
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(location, qrcode.Medium, size)
}
