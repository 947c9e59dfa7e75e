package domain

import (
	"context"
	"io"
)

type ImageService interface {
	Upload(ctx context.Context, file *UploadedImage, req TransformRequest) (*StoredImage, error)
	Validate(file *UploadedImage) error
	Open(ctx context.Context, id string) (io.ReadCloser, *StoredImage, error)
	OpenByFilename(ctx context.Context, filename string) (io.ReadCloser, *StoredImage, error)
}

type EventPublisher interface {
	PublishStored(ctx context.Context, image *StoredImage) error
	Close() error
}
