package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
)

type localStorage struct {
	basePath string
}

func NewLocalStorage(cfg *config.StorageConfig) (Storage, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("LocalPath is empty, set storage.local_path in config or env")
	}

	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &localStorage{basePath: cfg.LocalPath}, nil
}

// Save writes into a temporary file and renames it into place, so a failed
// write never leaves a partial file under the final name.
func (s *localStorage) Save(ctx context.Context, filename string, reader io.Reader, size int64) (int64, error) {
	if reader == nil {
		zlog.Logger.Error().Str("filename", filename).Msg("reader is nil")
		return 0, fmt.Errorf("reader is nil")
	}
	if err := validateName(filename); err != nil {
		return 0, err
	}

	fullPath := filepath.Join(s.basePath, filename)

	if _, err := os.Stat(fullPath); err == nil {
		zlog.Logger.Warn().Str("path", fullPath).Msg("file already exists, will be overwritten")
	}

	tmp, err := os.CreateTemp(s.basePath, ".tmp-"+filename+"-*")
	if err != nil {
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to create temp file")
		return 0, fmt.Errorf("create temp file for %s: %w", fullPath, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, reader)
	if err != nil {
		cleanup()
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to write file")
		return 0, fmt.Errorf("write file %s: %w", fullPath, err)
	}
	if written == 0 {
		cleanup()
		zlog.Logger.Error().Str("path", fullPath).Msg("no bytes written to file")
		return 0, fmt.Errorf("no bytes written to file %s", fullPath)
	}
	if size >= 0 && written != size {
		cleanup()
		return 0, fmt.Errorf("short write to %s: %d of %d bytes", fullPath, written, size)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to move file into place")
		return 0, fmt.Errorf("rename %s: %w", fullPath, err)
	}

	zlog.Logger.Info().
		Str("path", fullPath).
		Str("ext", filepath.Ext(filename)).
		Int64("bytes", written).
		Msg("file saved successfully")

	return written, nil
}

func (s *localStorage) Open(ctx context.Context, filename string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateName(filename); err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	fullPath := filepath.Join(s.basePath, filename)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, filename)
		}
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to open file")
		return nil, ObjectInfo{}, fmt.Errorf("open file %s: %w", fullPath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, fmt.Errorf("stat file %s: %w", fullPath, err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, filename)
	}

	zlog.Logger.Debug().Str("path", fullPath).Int64("size", stat.Size()).Msg("file opened successfully")
	return file, ObjectInfo{Size: stat.Size(), ModTime: stat.ModTime()}, nil
}

func (s *localStorage) Exists(ctx context.Context, filename string) (bool, error) {
	if err := validateName(filename); err != nil {
		return false, nil
	}
	stat, err := os.Stat(filepath.Join(s.basePath, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file %s: %w", filename, err)
	}
	return !stat.IsDir(), nil
}

func (s *localStorage) Delete(ctx context.Context, filename string) error {
	if err := validateName(filename); err != nil {
		return err
	}

	fullPath := filepath.Join(s.basePath, filename)

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			zlog.Logger.Warn().Str("path", fullPath).Msg("file not found, skipping delete")
			return nil
		}
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to delete file")
		return fmt.Errorf("delete file %s: %w", fullPath, err)
	}

	zlog.Logger.Info().Str("path", fullPath).Msg("file deleted successfully")
	return nil
}
