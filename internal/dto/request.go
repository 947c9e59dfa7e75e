package dto

import "github.com/yokitheyo/imageresizer/internal/domain"

// UploadImageRequest carries the optional transform fields of POST /upload.
// Zero width or height means the bound is absent.
type UploadImageRequest struct {
	Width     int    `form:"width" binding:"omitempty,min=0"`
	Height    int    `form:"height" binding:"omitempty,min=0"`
	Format    string `form:"format"`
	Watermark bool   `form:"watermark"`
}

func (r *UploadImageRequest) ToTransformRequest() domain.TransformRequest {
	return domain.TransformRequest{
		Width:     r.Width,
		Height:    r.Height,
		Format:    domain.NormalizeFormat(r.Format),
		Watermark: r.Watermark,
	}
}
