package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
)

type s3Storage struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3Storage(cfg *config.StorageConfig) (Storage, error) {
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}

	creds := credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			zlog.Logger.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("unable to create bucket, ensure it exists and credentials are correct")
		} else {
			zlog.Logger.Info().Str("bucket", cfg.S3Bucket).Msg("created s3 bucket")
		}
	}

	return &s3Storage{
		client: client,
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

func (s *s3Storage) objectName(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}

func (s *s3Storage) Save(ctx context.Context, filename string, reader io.Reader, size int64) (int64, error) {
	if reader == nil {
		zlog.Logger.Error().Str("filename", filename).Msg("reader is nil")
		return 0, fmt.Errorf("reader is nil")
	}
	if err := validateName(filename); err != nil {
		return 0, err
	}

	objectName := s.objectName(filename)
	opts := minio.PutObjectOptions{}
	if f, ok := domain.FormatFromExt(path.Ext(filename)); ok {
		opts.ContentType = f.ContentType()
	}

	info, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, opts)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("object", objectName).Msg("failed to put object to s3")
		return 0, fmt.Errorf("put object %s: %w", objectName, err)
	}

	zlog.Logger.Info().Str("path", objectName).Int64("bytes", info.Size).Msg("object saved to s3")
	return info.Size, nil
}

func (s *s3Storage) Open(ctx context.Context, filename string) (io.ReadCloser, ObjectInfo, error) {
	if err := validateName(filename); err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	objectName := s.objectName(filename)

	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("object", objectName).Msg("failed to get object")
		return nil, ObjectInfo{}, fmt.Errorf("get object %s: %w", objectName, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		zlog.Logger.Error().Err(err).Str("object", objectName).Msg("object inaccessible")
		return nil, ObjectInfo{}, fmt.Errorf("stat object %s: %w", objectName, err)
	}

	zlog.Logger.Debug().Str("path", objectName).Msg("object opened from s3")
	return obj, ObjectInfo{Size: stat.Size, ModTime: stat.LastModified}, nil
}

func (s *s3Storage) Exists(ctx context.Context, filename string) (bool, error) {
	if err := validateName(filename); err != nil {
		return false, nil
	}
	objectName := s.objectName(filename)

	if _, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", objectName, err)
	}
	return true, nil
}

func (s *s3Storage) Delete(ctx context.Context, filename string) error {
	if err := validateName(filename); err != nil {
		return err
	}
	objectName := s.objectName(filename)

	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		zlog.Logger.Error().Err(err).Str("path", objectName).Msg("failed to delete object from s3")
		return fmt.Errorf("remove object %s: %w", objectName, err)
	}
	zlog.Logger.Info().Str("path", objectName).Msg("object deleted from s3")
	return nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
