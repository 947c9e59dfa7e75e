package domain

import "context"

// ImageIndex maps an identifier to its stored file.
type ImageIndex interface {
	Create(ctx context.Context, image *StoredImage) error
	FindByID(ctx context.Context, id string) (*StoredImage, error)
}
