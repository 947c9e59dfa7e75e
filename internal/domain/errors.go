package domain

import "errors"

var (
	ErrMissingFile       = errors.New("no image file provided")
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file size exceeds maximum allowed")
	ErrInvalidFormat     = errors.New("invalid or unsupported output format")
	ErrInvalidDimensions = errors.New("width and height must be non-negative integers")
	ErrImageNotFound     = errors.New("image not found")
	ErrDecodeFailed      = errors.New("image decoding failed")
	ErrEncodeFailed      = errors.New("image encoding failed")
	ErrStorageFailed     = errors.New("storage operation failed")
	ErrIndexFailed       = errors.New("image index operation failed")
)

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingFile) ||
		errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidDimensions)
}
