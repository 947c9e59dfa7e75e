package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/domain"
)

type imageRepository struct {
	db       *dbpg.DB
	strategy retry.Strategy
}

func NewImageRepository(db *dbpg.DB, strategy retry.Strategy) domain.ImageIndex {
	return &imageRepository{
		db:       db,
		strategy: strategy,
	}
}

func (r *imageRepository) Create(ctx context.Context, image *domain.StoredImage) error {
	query := `
		INSERT INTO images (
			id, filename, format, mime_type, size,
			width, height, watermarked, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecWithRetry(ctx, r.strategy, query,
		image.ID,
		image.Filename,
		string(image.Format),
		image.MimeType,
		image.Size,
		nullInt(image.Width),
		nullInt(image.Height),
		image.Watermarked,
		image.CreatedAt,
	)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("failed to create image")
		return fmt.Errorf("%w: create image: %v", domain.ErrIndexFailed, err)
	}

	zlog.Logger.Info().Str("image_id", image.ID).Msg("image indexed successfully")
	return nil
}

func (r *imageRepository) FindByID(ctx context.Context, id string) (*domain.StoredImage, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrImageNotFound
	}

	query := `
		SELECT id, filename, format, mime_type, size,
			   width, height, watermarked, created_at
		FROM images
		WHERE id = $1
	`

	var img domain.StoredImage
	var format string
	var width, height sql.NullInt32

	row := r.db.Master.QueryRowContext(ctx, query, id)
	err := row.Scan(
		&img.ID,
		&img.Filename,
		&format,
		&img.MimeType,
		&img.Size,
		&width,
		&height,
		&img.Watermarked,
		&img.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrImageNotFound
	}
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to find image")
		return nil, fmt.Errorf("%w: find image: %v", domain.ErrIndexFailed, err)
	}

	f, ok := domain.FormatFromExt(format)
	if !ok {
		return nil, fmt.Errorf("%w: unknown stored format %q", domain.ErrIndexFailed, format)
	}
	img.Format = f

	if width.Valid {
		img.Width = int(width.Int32)
	}
	if height.Valid {
		img.Height = int(height.Int32)
	}

	return &img, nil
}

func nullInt(i int) sql.NullInt32 {
	if i == 0 {
		return sql.NullInt32{Valid: false}
	}
	return sql.NullInt32{Int32: int32(i), Valid: true}
}
