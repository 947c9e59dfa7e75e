package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFormat(t *testing.T) {
	cases := map[string]Format{
		"":       FormatJPEG,
		"jpeg":   FormatJPEG,
		"JPG":    FormatJPEG,
		" png ":  FormatPNG,
		"GIF":    FormatGIF,
		"webp":   Format("webp"),
		"svg":    FormatSVG,
		"tiff  ": Format("tiff"),
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeFormat(in), "input %q", in)
	}
}

func TestFormat_Encodable(t *testing.T) {
	assert.True(t, FormatJPEG.Encodable())
	assert.True(t, FormatPNG.Encodable())
	assert.True(t, FormatGIF.Encodable())
	assert.False(t, FormatSVG.Encodable())
	assert.False(t, Format("webp").Encodable())
	assert.False(t, Format("").Encodable())
}

func TestFormatFromExt(t *testing.T) {
	f, ok := FormatFromExt(".jpeg")
	assert.True(t, ok)
	assert.Equal(t, FormatJPEG, f)

	f, ok = FormatFromExt("SVG")
	assert.True(t, ok)
	assert.Equal(t, FormatSVG, f)

	_, ok = FormatFromExt(".pdf")
	assert.False(t, ok)
}

func TestFormatFromMIME(t *testing.T) {
	for mime, want := range map[string]Format{
		MimeJPEG: FormatJPEG,
		MimePNG:  FormatPNG,
		MimeGIF:  FormatGIF,
		MimeSVG:  FormatSVG,
	} {
		got, ok := FormatFromMIME(mime)
		assert.True(t, ok)
		assert.Equal(t, want, got)
		assert.Equal(t, mime, got.ContentType())
	}

	_, ok := FormatFromMIME("application/pdf")
	assert.False(t, ok)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "abc.png", Filename("abc", FormatPNG))
	assert.Equal(t, "abc.svg", Filename("abc", FormatSVG))
	assert.True(t, FormatSVG.IsVector())
	assert.False(t, FormatGIF.IsVector())
}

func TestTransformRequest_HasBounds(t *testing.T) {
	assert.False(t, TransformRequest{}.HasBounds())
	assert.True(t, TransformRequest{Width: 10}.HasBounds())
	assert.True(t, TransformRequest{Height: 10}.HasBounds())
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(fmt.Errorf("wrapped: %w", ErrFileTooLarge)))
	assert.True(t, IsClientError(ErrInvalidFormat))
	assert.True(t, IsClientError(ErrMissingFile))
	assert.False(t, IsClientError(ErrImageNotFound))
	assert.False(t, IsClientError(fmt.Errorf("x: %w", ErrStorageFailed)))
}
