package dto

import (
	"time"

	"github.com/yokitheyo/imageresizer/internal/domain"
)

// ImageStoredEvent is published once per successful upload.
type ImageStoredEvent struct {
	ImageID     string    `json:"image_id"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Watermarked bool      `json:"watermarked"`
	CreatedAt   time.Time `json:"created_at"`
}

func MapImageToStoredEvent(img *domain.StoredImage) ImageStoredEvent {
	return ImageStoredEvent{
		ImageID:     img.ID,
		Filename:    img.Filename,
		Format:      string(img.Format),
		MimeType:    img.MimeType,
		Size:        img.Size,
		Width:       img.Width,
		Height:      img.Height,
		Watermarked: img.Watermarked,
		CreatedAt:   img.CreatedAt,
	}
}
