package dto

import "github.com/yokitheyo/imageresizer/internal/domain"

type UploadResponse struct {
	Success bool   `json:"success"`
	ImageID string `json:"imageId"`
	URL     string `json:"url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// DownloadPath is the relative URL an image is served from.
func DownloadPath(id string) string {
	return "/download/" + id
}

func MapImageToUploadResponse(img *domain.StoredImage) *UploadResponse {
	if img == nil {
		return nil
	}
	return &UploadResponse{
		Success: true,
		ImageID: img.ID,
		URL:     DownloadPath(img.ID),
	}
}
