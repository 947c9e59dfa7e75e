// Package naming resolves identifiers through the deterministic storage name
// {id}.{ext}. The stored file is its own index entry.
package naming

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/storage"
)

type imageIndex struct {
	storage storage.Storage
}

func NewImageIndex(st storage.Storage) domain.ImageIndex {
	return &imageIndex{storage: st}
}

func (i *imageIndex) Create(ctx context.Context, image *domain.StoredImage) error {
	zlog.Logger.Debug().Str("image_id", image.ID).Str("filename", image.Filename).Msg("image indexed by name")
	return nil
}

// FindByID accepts only canonical UUIDs and probes each known extension;
// at most one exists for a given id.
func (i *imageIndex) FindByID(ctx context.Context, id string) (*domain.StoredImage, error) {
	if parsed, err := uuid.Parse(id); err != nil || parsed.String() != id {
		return nil, domain.ErrImageNotFound
	}

	for _, f := range domain.StoredFormats {
		filename := domain.Filename(id, f)
		ok, err := i.storage.Exists(ctx, filename)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("image_id", id).Str("filename", filename).Msg("failed to probe storage")
			return nil, fmt.Errorf("%w: probe %s: %v", domain.ErrIndexFailed, filename, err)
		}
		if ok {
			return &domain.StoredImage{
				ID:       id,
				Filename: filename,
				Format:   f,
				MimeType: f.ContentType(),
			}, nil
		}
	}

	return nil, domain.ErrImageNotFound
}
