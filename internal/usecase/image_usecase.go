package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/processor"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/storage"
)

// Transformer turns raster bytes into the requested output.
type Transformer interface {
	Transform(data []byte, req domain.TransformRequest) (*processor.Result, error)
}

type ImageUsecase struct {
	index     domain.ImageIndex
	storage   storage.Storage
	processor Transformer
	events    domain.EventPublisher
	maxSize   int64
	allowed   map[string]struct{}
}

func NewImageUsecase(
	index domain.ImageIndex,
	storage storage.Storage,
	processor Transformer,
	events domain.EventPublisher,
	maxUploadBytes int64,
	allowedMimeTypes []string,
) *ImageUsecase {
	// SVG is recognised by its <svg element, which may follow a long prolog;
	// let the sniffer see the whole accepted upload.
	mimetype.SetLimit(sniffLimit(maxUploadBytes))

	allowed := make(map[string]struct{}, len(allowedMimeTypes))
	for _, m := range allowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &ImageUsecase{
		index:     index,
		storage:   storage,
		processor: processor,
		events:    events,
		maxSize:   maxUploadBytes,
		allowed:   allowed,
	}
}

func (u *ImageUsecase) Upload(ctx context.Context, file *domain.UploadedImage, req domain.TransformRequest) (*domain.StoredImage, error) {
	srcFormat, err := u.validate(file)
	if err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("filename", fileName(file)).
			Msg("upload rejected")
		return nil, err
	}
	// vector input is stored as is, so the transform fields only matter for rasters
	if !srcFormat.IsVector() {
		if req.Width < 0 || req.Height < 0 {
			return nil, domain.ErrInvalidDimensions
		}
		if req.Format == "" {
			req.Format = domain.FormatJPEG
		}
		if !req.Format.Encodable() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFormat, req.Format)
		}
	}

	imageID := uuid.New().String()
	stored := &domain.StoredImage{
		ID:        imageID,
		CreatedAt: time.Now().UTC(),
	}

	var data []byte
	if srcFormat.IsVector() {
		if !svgFormatField(req.Format) || req.HasBounds() || req.Watermark {
			zlog.Logger.Warn().
				Str("image_id", imageID).
				Str("requested_format", string(req.Format)).
				Msg("vector upload stored as svg, transform parameters ignored")
		}
		data = file.Data
		stored.Format = domain.FormatSVG
	} else {
		result, err := u.processor.Transform(file.Data, req)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("image_id", imageID).Msg("failed to transform image")
			return nil, fmt.Errorf("transform image: %w", err)
		}
		data = result.Data
		stored.Format = result.Format
		stored.Width = result.Width
		stored.Height = result.Height
		stored.Watermarked = result.Watermarked
	}

	stored.Filename = domain.Filename(imageID, stored.Format)
	stored.MimeType = stored.Format.ContentType()

	written, err := u.storage.Save(ctx, stored.Filename, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", imageID).Str("filename", stored.Filename).Msg("failed to save image")
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailed, err)
	}
	stored.Size = written

	if err := u.index.Create(ctx, stored); err != nil {
		if delErr := u.storage.Delete(ctx, stored.Filename); delErr != nil {
			zlog.Logger.Error().Err(delErr).Str("image_id", imageID).Msg("failed to remove unindexed image")
		}
		zlog.Logger.Error().Err(err).Str("image_id", imageID).Msg("failed to index image")
		return nil, fmt.Errorf("index image: %w", err)
	}

	if err := u.events.PublishStored(ctx, stored); err != nil {
		zlog.Logger.Warn().Err(err).Str("image_id", imageID).Msg("stored event not published")
	}

	zlog.Logger.Info().
		Str("image_id", imageID).
		Str("filename", stored.Filename).
		Str("source_mime", file.MimeType).
		Int("width", stored.Width).
		Int("height", stored.Height).
		Int64("bytes", stored.Size).
		Msg("image uploaded successfully")

	return stored, nil
}

// Validate runs the file checks of Upload without storing anything.
func (u *ImageUsecase) Validate(file *domain.UploadedImage) error {
	_, err := u.validate(file)
	return err
}

// validate checks presence, declared type, size and that the content matches
// the declared type. It returns the source format.
func (u *ImageUsecase) validate(file *domain.UploadedImage) (domain.Format, error) {
	if file == nil || len(file.Data) == 0 {
		return "", domain.ErrMissingFile
	}

	declared := strings.ToLower(strings.TrimSpace(file.MimeType))
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mediaType
	}
	if _, ok := u.allowed[declared]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidFileType, file.MimeType)
	}
	srcFormat, ok := domain.FormatFromMIME(declared)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidFileType, file.MimeType)
	}

	size := max(file.Size, int64(len(file.Data)))
	if size > u.maxSize {
		return "", fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, size)
	}

	if detected := mimetype.Detect(file.Data); !detected.Is(declared) {
		return "", fmt.Errorf("%w: declared %s, content is %s", domain.ErrInvalidFileType, declared, detected.String())
	}

	return srcFormat, nil
}

func (u *ImageUsecase) Open(ctx context.Context, id string) (io.ReadCloser, *domain.StoredImage, error) {
	image, err := u.index.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrImageNotFound) {
			zlog.Logger.Error().Err(err).Str("image_id", id).Msg("failed to find image by ID")
		}
		return nil, nil, err
	}

	file, info, err := u.storage.Open(ctx, image.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			zlog.Logger.Warn().Str("image_id", id).Str("filename", image.Filename).Msg("indexed image missing from storage")
			return nil, nil, domain.ErrImageNotFound
		}
		zlog.Logger.Error().Err(err).Str("image_id", id).Str("filename", image.Filename).Msg("failed to open image")
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStorageFailed, err)
	}
	image.Size = info.Size

	return file, image, nil
}

// OpenByFilename serves a stored file by its full name {id}.{ext}.
func (u *ImageUsecase) OpenByFilename(ctx context.Context, filename string) (io.ReadCloser, *domain.StoredImage, error) {
	ext := path.Ext(filename)
	id := strings.TrimSuffix(filename, ext)
	format, ok := domain.FormatFromExt(ext)
	if !ok || domain.Filename(id, format) != filename {
		return nil, nil, domain.ErrImageNotFound
	}
	if parsed, err := uuid.Parse(id); err != nil || parsed.String() != id {
		return nil, nil, domain.ErrImageNotFound
	}

	file, info, err := u.storage.Open(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, domain.ErrImageNotFound
		}
		zlog.Logger.Error().Err(err).Str("filename", filename).Msg("failed to open stored file")
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrStorageFailed, err)
	}

	return file, &domain.StoredImage{
		ID:       id,
		Filename: filename,
		Format:   format,
		MimeType: format.ContentType(),
		Size:     info.Size,
	}, nil
}

// svgFormatField reports whether the format field is the default or svg
// itself, the values that need no warning on a vector upload.
func svgFormatField(f domain.Format) bool {
	return f == "" || f == domain.FormatJPEG || f == domain.FormatSVG
}

func fileName(file *domain.UploadedImage) string {
	if file == nil {
		return ""
	}
	return file.Filename
}

func sniffLimit(maxUploadBytes int64) uint32 {
	if maxUploadBytes <= 0 || maxUploadBytes >= math.MaxUint32 {
		// 0 lets mimetype read the whole input
		return 0
	}
	return uint32(maxUploadBytes)
}
