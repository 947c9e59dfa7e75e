package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Size    int64
	ModTime time.Time
}

// Storage is a flat namespace of files keyed by filename.
type Storage interface {
	Save(ctx context.Context, filename string, reader io.Reader, size int64) (int64, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, ObjectInfo, error)
	Exists(ctx context.Context, filename string) (bool, error)
	Delete(ctx context.Context, filename string) error
}

func New(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case config.StorageLocal:
		zlog.Logger.Info().Str("path", cfg.LocalPath).Msg("Initializing local storage")
		return NewLocalStorage(cfg)
	case config.StorageS3:
		zlog.Logger.Info().Str("bucket", cfg.S3Bucket).Msg("Initializing S3 storage")
		return NewS3Storage(cfg)
	default:
		zlog.Logger.Error().Str("type", cfg.Type).Msg("Unsupported storage type, use 'local' or 's3'")
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// validateName rejects anything that is not a plain file name.
func validateName(filename string) error {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid file name %q", filename)
	}
	return nil
}
