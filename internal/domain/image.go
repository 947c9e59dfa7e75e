package domain

import (
	"strings"
	"time"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatSVG  Format = "svg"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeSVG  = "image/svg+xml"
)

// StoredFormats lists every extension a stored image can carry.
var StoredFormats = []Format{FormatJPEG, FormatPNG, FormatGIF, FormatSVG}

// NormalizeFormat canonicalises the caller's format field. An empty value
// selects JPEG and "jpg" is an alias of "jpeg". Other values pass through
// lowercased and are rejected by Encodable.
func NormalizeFormat(s string) Format {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "jpg":
		return FormatJPEG
	default:
		return Format(v)
	}
}

// Encodable reports whether f is a raster encoder target.
func (f Format) Encodable() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatGIF
}

// FormatFromExt resolves a stored file extension (with or without dot).
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "gif":
		return FormatGIF, true
	case "svg":
		return FormatSVG, true
	}
	return "", false
}

// FormatFromMIME resolves one of the accepted upload MIME types.
func FormatFromMIME(mimeType string) (Format, bool) {
	switch mimeType {
	case MimeJPEG:
		return FormatJPEG, true
	case MimePNG:
		return FormatPNG, true
	case MimeGIF:
		return FormatGIF, true
	case MimeSVG:
		return FormatSVG, true
	}
	return "", false
}

func (f Format) Ext() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return MimeJPEG
	case FormatPNG:
		return MimePNG
	case FormatGIF:
		return MimeGIF
	case FormatSVG:
		return MimeSVG
	default:
		return "application/octet-stream"
	}
}

func (f Format) IsVector() bool {
	return f == FormatSVG
}

// Filename returns the storage name of an image: {id}.{format}.
func Filename(id string, f Format) string {
	return id + f.Ext()
}

type TransformRequest struct {
	Width     int
	Height    int
	Format    Format
	Watermark bool
}

// HasBounds reports whether a resize was requested.
func (r TransformRequest) HasBounds() bool {
	return r.Width > 0 || r.Height > 0
}

// UploadedImage is the transient upload held in memory for one request.
type UploadedImage struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

type StoredImage struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Format      Format    `json:"format"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Watermarked bool      `json:"watermarked"`
	CreatedAt   time.Time `json:"created_at"`
}
