package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Result is an encoded image ready to be stored.
type Result struct {
	Data        []byte
	Format      domain.Format
	Width       int
	Height      int
	Watermarked bool
}

type ImageProcessor struct {
	cfg  *config.ProcessingConfig
	face font.Face
}

func NewImageProcessor(cfg *config.ProcessingConfig) (*ImageProcessor, error) {
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		zlog.Logger.Warn().
			Int("jpeg_quality", cfg.JPEGQuality).
			Msg("Invalid jpeg quality, using default")
		cfg.JPEGQuality = 80
	}

	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse watermark font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    cfg.WatermarkFontPt,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create watermark face: %w", err)
	}

	zlog.Logger.Info().
		Int("jpeg_quality", cfg.JPEGQuality).
		Str("watermark_text", cfg.WatermarkText).
		Float64("watermark_font_pt", cfg.WatermarkFontPt).
		Int("watermark_width", cfg.WatermarkWidth).
		Int("watermark_height", cfg.WatermarkHeight).
		Msg("ImageProcessor initialized")

	return &ImageProcessor{cfg: cfg, face: face}, nil
}

// Transform decodes a raster image, applies the requested resize and watermark
// and encodes it in the requested format. GIF output skips both pixel steps.
func (p *ImageProcessor) Transform(data []byte, req domain.TransformRequest) (*Result, error) {
	var opts []imaging.DecodeOption
	if p.cfg.AutoOrient {
		opts = append(opts, imaging.AutoOrientation(true))
	}
	img, err := imaging.Decode(bytes.NewReader(data), opts...)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode image")
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		zlog.Logger.Error().Msg("decoded image is empty")
		return nil, fmt.Errorf("%w: decoded image is empty", domain.ErrDecodeFailed)
	}

	zlog.Logger.Debug().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Str("format", string(req.Format)).
		Msg("Image decoded successfully")

	watermarked := false
	if req.Format != domain.FormatGIF {
		if req.HasBounds() {
			img = p.resize(img, req.Width, req.Height)
		}
		if req.Watermark {
			img = p.watermark(img)
			watermarked = true
		}
	}

	var buf bytes.Buffer
	if err := p.encode(&buf, img, req.Format); err != nil {
		zlog.Logger.Error().Err(err).Str("format", string(req.Format)).Msg("failed to encode image")
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: empty buffer after encoding", domain.ErrEncodeFailed)
	}

	return &Result{
		Data:        buf.Bytes(),
		Format:      req.Format,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Watermarked: watermarked,
	}, nil
}

func (p *ImageProcessor) encode(buf *bytes.Buffer, img image.Image, f domain.Format) error {
	var err error
	switch f {
	case domain.FormatJPEG:
		err = imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality))
	case domain.FormatPNG:
		err = imaging.Encode(buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case domain.FormatGIF:
		err = imaging.Encode(buf, img, imaging.GIF)
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidFormat, f)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEncodeFailed, err)
	}
	return nil
}

func (p *ImageProcessor) resize(img image.Image, maxW, maxH int) image.Image {
	srcW, srcH := img.Bounds().Dx(), img.Bounds().Dy()
	dstW, dstH := FitInside(srcW, srcH, maxW, maxH)
	if dstW == srcW && dstH == srcH {
		zlog.Logger.Debug().
			Int("width", srcW).
			Int("height", srcH).
			Msg("Image already fits requested bounds, resize skipped")
		return img
	}

	resized := imaging.Resize(img, dstW, dstH, imaging.Lanczos)

	zlog.Logger.Info().
		Int("original_width", srcW).
		Int("original_height", srcH).
		Int("resized_width", resized.Bounds().Dx()).
		Int("resized_height", resized.Bounds().Dy()).
		Msg("Image resized with aspect ratio preserved")

	return resized
}

// FitInside scales srcW x srcH down to fit within maxW x maxH keeping the
// aspect ratio. A non-positive bound is unconstrained. The result never
// exceeds the source dimensions and is at least 1x1.
func FitInside(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return srcW, srcH
	}

	scale := 1.0
	if maxW > 0 {
		scale = math.Min(scale, float64(maxW)/float64(srcW))
	}
	if maxH > 0 {
		scale = math.Min(scale, float64(maxH)/float64(srcH))
	}
	if scale >= 1 {
		return srcW, srcH
	}

	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))
	if maxW > 0 && w > maxW {
		w = maxW
	}
	if maxH > 0 && h > maxH {
		h = maxH
	}
	return max(w, 1), max(h, 1)
}

// watermark draws the label centred in a fixed overlay anchored to the
// bottom-right corner. The overlay is clipped on images smaller than itself.
func (p *ImageProcessor) watermark(img image.Image) image.Image {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	overlay := image.Rect(
		rgba.Bounds().Max.X-p.cfg.WatermarkWidth,
		rgba.Bounds().Max.Y-p.cfg.WatermarkHeight,
		rgba.Bounds().Max.X,
		rgba.Bounds().Max.Y,
	)

	alpha := uint8(float64(p.cfg.Opacity()) * 255.0 / 100.0)
	drawer := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: alpha}),
		Face: p.face,
	}

	textWidth := drawer.MeasureString(p.cfg.WatermarkText)
	metrics := p.face.Metrics()
	textHeight := metrics.Ascent + metrics.Descent

	// baseline so that the text box is centred in the overlay
	x := fixed.I(overlay.Min.X) + (fixed.I(overlay.Dx())-textWidth)/2
	y := fixed.I(overlay.Min.Y) + (fixed.I(overlay.Dy())-textHeight)/2 + metrics.Ascent
	drawer.Dot = fixed.Point26_6{X: x, Y: y}
	drawer.DrawString(p.cfg.WatermarkText)

	zlog.Logger.Info().
		Str("text", p.cfg.WatermarkText).
		Int("opacity", p.cfg.Opacity()).
		Int("overlay_x", overlay.Min.X).
		Int("overlay_y", overlay.Min.Y).
		Msg("Watermark applied")

	return rgba
}
