package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/processor"
	"github.com/yokitheyo/imageresizer/internal/infrastructure/storage"
	"github.com/yokitheyo/imageresizer/internal/repository/naming"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.StoredImage
	err    error
}

func (p *recordingPublisher) PublishStored(_ context.Context, image *domain.StoredImage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, image)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type failingIndex struct{}

func (failingIndex) Create(context.Context, *domain.StoredImage) error {
	return domain.ErrIndexFailed
}

func (failingIndex) FindByID(context.Context, string) (*domain.StoredImage, error) {
	return nil, domain.ErrImageNotFound
}

type fixedIndex struct{ image domain.StoredImage }

func (i fixedIndex) Create(context.Context, *domain.StoredImage) error { return nil }

func (i fixedIndex) FindByID(context.Context, string) (*domain.StoredImage, error) {
	img := i.image
	return &img, nil
}

type env struct {
	usecase *ImageUsecase
	storage storage.Storage
	events  *recordingPublisher
	dir     string
}

func newEnv(t *testing.T, maxBytes int64, index func(storage.Storage) domain.ImageIndex) *env {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()

	st, err := storage.NewLocalStorage(&config.StorageConfig{LocalPath: dir})
	require.NoError(t, err)
	proc, err := processor.NewImageProcessor(&cfg.Processing)
	require.NoError(t, err)
	if index == nil {
		index = naming.NewImageIndex
	}

	events := &recordingPublisher{}
	uc := NewImageUsecase(index(st), st, proc, events, maxBytes, cfg.Processing.AllowedMimeTypes)
	return &env{usecase: uc, storage: st, events: events, dir: dir}
}

func (e *env) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func gifBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func upload(name, mimeType string, data []byte) *domain.UploadedImage {
	return &domain.UploadedImage{Filename: name, MimeType: mimeType, Size: int64(len(data)), Data: data}
}

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestUpload_DefaultsToJPEG(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	ctx := context.Background()

	img, err := e.usecase.Upload(ctx, upload("photo.png", domain.MimePNG, pngBytes(t, 64, 48)), domain.TransformRequest{})
	require.NoError(t, err)

	_, err = uuid.Parse(img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJPEG, img.Format)
	assert.Equal(t, img.ID+".jpeg", img.Filename)
	assert.Equal(t, domain.MimeJPEG, img.MimeType)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 48, img.Height)
	assert.Equal(t, []string{img.ID + ".jpeg"}, e.files(t))

	rc, found, err := e.usecase.Open(ctx, img.ID)
	require.NoError(t, err)
	data := readAll(t, rc)
	assert.Equal(t, img.Size, int64(len(data)))
	assert.Equal(t, int64(len(data)), found.Size)
	assert.Equal(t, domain.FormatJPEG, found.Format)

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestUpload_ResizeToPNG(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	img, err := e.usecase.Upload(context.Background(),
		upload("photo.jpg", domain.MimeJPEG, jpegBytes(t, 200, 100)),
		domain.TransformRequest{Width: 100, Format: domain.FormatPNG})
	require.NoError(t, err)

	assert.Equal(t, domain.FormatPNG, img.Format)
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 50, img.Height)
	assert.Equal(t, img.ID+".png", img.Filename)
}

func TestUpload_GIFOutput(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	img, err := e.usecase.Upload(context.Background(),
		upload("anim.gif", domain.MimeGIF, gifBytes(t, 50, 50)),
		domain.TransformRequest{Width: 10, Format: domain.FormatGIF, Watermark: true})
	require.NoError(t, err)

	assert.Equal(t, 50, img.Width)
	assert.Equal(t, 50, img.Height)
	assert.False(t, img.Watermarked)
}

func TestUpload_SVGStoredVerbatim(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	ctx := context.Background()
	src := []byte(testSVG)

	img, err := e.usecase.Upload(ctx, upload("logo.svg", domain.MimeSVG, src),
		domain.TransformRequest{Width: 5, Format: domain.FormatPNG, Watermark: true})
	require.NoError(t, err)

	assert.Equal(t, domain.FormatSVG, img.Format)
	assert.Equal(t, img.ID+".svg", img.Filename)
	assert.False(t, img.Watermarked)

	rc, found, err := e.usecase.Open(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, src, readAll(t, rc))
	assert.Equal(t, domain.FormatSVG, found.Format)
}

func TestUpload_PublishesStoredEvent(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	img, err := e.usecase.Upload(context.Background(), upload("a.png", domain.MimePNG, pngBytes(t, 8, 8)), domain.TransformRequest{})
	require.NoError(t, err)

	require.Len(t, e.events.events, 1)
	assert.Equal(t, img.ID, e.events.events[0].ID)
}

func TestUpload_PublishFailureIsNotFatal(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	e.events.err = errors.New("broker down")

	img, err := e.usecase.Upload(context.Background(), upload("a.png", domain.MimePNG, pngBytes(t, 8, 8)), domain.TransformRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, img.ID)
}

func TestUpload_AcceptsMIMEParameters(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	_, err := e.usecase.Upload(context.Background(),
		upload("a.png", "image/png; charset=binary", pngBytes(t, 8, 8)), domain.TransformRequest{})
	require.NoError(t, err)
}

func TestUpload_Rejections(t *testing.T) {
	png8 := func(t *testing.T) []byte { return pngBytes(t, 8, 8) }

	tests := []struct {
		name    string
		max     int64
		file    func(t *testing.T) *domain.UploadedImage
		req     domain.TransformRequest
		wantErr error
	}{
		{
			name:    "nil file",
			max:     5 << 20,
			file:    func(*testing.T) *domain.UploadedImage { return nil },
			wantErr: domain.ErrMissingFile,
		},
		{
			name:    "empty file",
			max:     5 << 20,
			file:    func(*testing.T) *domain.UploadedImage { return upload("a.png", domain.MimePNG, nil) },
			wantErr: domain.ErrMissingFile,
		},
		{
			name: "pdf",
			max:  5 << 20,
			file: func(*testing.T) *domain.UploadedImage {
				return upload("doc.pdf", "application/pdf", []byte("%PDF-1.4\n"))
			},
			wantErr: domain.ErrInvalidFileType,
		},
		{
			name: "content does not match declared type",
			max:  5 << 20,
			file: func(*testing.T) *domain.UploadedImage {
				return upload("a.png", domain.MimePNG, []byte("plain text pretending to be png"))
			},
			wantErr: domain.ErrInvalidFileType,
		},
		{
			name: "too large",
			max:  16,
			file: func(t *testing.T) *domain.UploadedImage {
				return upload("a.png", domain.MimePNG, png8(t))
			},
			wantErr: domain.ErrFileTooLarge,
		},
		{
			name: "declared size too large",
			max:  1 << 20,
			file: func(t *testing.T) *domain.UploadedImage {
				f := upload("a.png", domain.MimePNG, png8(t))
				f.Size = 2 << 20
				return f
			},
			wantErr: domain.ErrFileTooLarge,
		},
		{
			name: "unsupported output format",
			max:  5 << 20,
			file: func(t *testing.T) *domain.UploadedImage {
				return upload("a.png", domain.MimePNG, png8(t))
			},
			req:     domain.TransformRequest{Format: domain.Format("webp")},
			wantErr: domain.ErrInvalidFormat,
		},
		{
			name: "svg is not an output format",
			max:  5 << 20,
			file: func(t *testing.T) *domain.UploadedImage {
				return upload("a.png", domain.MimePNG, png8(t))
			},
			req:     domain.TransformRequest{Format: domain.FormatSVG},
			wantErr: domain.ErrInvalidFormat,
		},
		{
			name: "file type checked before format",
			max:  5 << 20,
			file: func(*testing.T) *domain.UploadedImage {
				return upload("doc.pdf", "application/pdf", []byte("%PDF-1.4\n"))
			},
			req:     domain.TransformRequest{Format: domain.Format("webp")},
			wantErr: domain.ErrInvalidFileType,
		},
		{
			name: "negative width",
			max:  5 << 20,
			file: func(t *testing.T) *domain.UploadedImage {
				return upload("a.png", domain.MimePNG, png8(t))
			},
			req:     domain.TransformRequest{Width: -1},
			wantErr: domain.ErrInvalidDimensions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.max, nil)

			img, err := e.usecase.Upload(context.Background(), tt.file(t), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, img)
			assert.True(t, domain.IsClientError(err))
			assert.Empty(t, e.files(t), "rejected upload must not write a file")
			assert.Empty(t, e.events.events)
		})
	}
}

func TestUpload_CorruptRasterIsServerError(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xAB}, 64)...)

	_, err := e.usecase.Upload(context.Background(), upload("a.png", domain.MimePNG, corrupt), domain.TransformRequest{})
	require.ErrorIs(t, err, domain.ErrDecodeFailed)
	assert.False(t, domain.IsClientError(err))
	assert.Empty(t, e.files(t))
}

func TestUpload_IndexFailureRemovesFile(t *testing.T) {
	e := newEnv(t, 5<<20, func(storage.Storage) domain.ImageIndex { return failingIndex{} })

	_, err := e.usecase.Upload(context.Background(), upload("a.png", domain.MimePNG, pngBytes(t, 8, 8)), domain.TransformRequest{})
	require.ErrorIs(t, err, domain.ErrIndexFailed)
	assert.Empty(t, e.files(t))
	assert.Empty(t, e.events.events)
}

func TestUpload_UniqueIdentifiers(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	data := pngBytes(t, 8, 8)

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		img, err := e.usecase.Upload(context.Background(), upload("a.png", domain.MimePNG, data), domain.TransformRequest{})
		require.NoError(t, err)
		seen[img.ID] = struct{}{}
	}
	assert.Len(t, seen, 5)
	assert.Len(t, e.files(t), 5)
}

func TestOpen_UnknownID(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	for _, id := range []string{"nonexistent-id", uuid.New().String(), ""} {
		_, _, err := e.usecase.Open(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrImageNotFound, "id %q", id)
	}
}

func TestOpen_IndexedButMissingFromStorage(t *testing.T) {
	id := uuid.New().String()
	e := newEnv(t, 5<<20, func(storage.Storage) domain.ImageIndex {
		return fixedIndex{image: domain.StoredImage{ID: id, Filename: id + ".png", Format: domain.FormatPNG}}
	})

	_, _, err := e.usecase.Open(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestOpenByFilename(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	ctx := context.Background()

	img, err := e.usecase.Upload(ctx, upload("a.png", domain.MimePNG, pngBytes(t, 8, 8)), domain.TransformRequest{Format: domain.FormatPNG})
	require.NoError(t, err)

	rc, found, err := e.usecase.OpenByFilename(ctx, img.Filename)
	require.NoError(t, err)
	data := readAll(t, rc)
	assert.Equal(t, img.Size, int64(len(data)))
	assert.Equal(t, img.ID, found.ID)
	assert.Equal(t, domain.FormatPNG, found.Format)

	for _, name := range []string{
		img.ID + ".jpeg",
		img.ID + ".PNG",
		img.ID,
		"../" + img.Filename,
		"nonexistent.png",
		"",
	} {
		_, _, err := e.usecase.OpenByFilename(ctx, name)
		assert.ErrorIs(t, err, domain.ErrImageNotFound, "filename %q", name)
	}
}

func TestUpload_SVGIgnoresTransformFields(t *testing.T) {
	reqs := map[string]domain.TransformRequest{
		"svg format":     {Format: domain.FormatSVG},
		"unknown format": {Format: domain.Format("webp")},
		"empty format":   {},
		"negative width": {Width: -3, Format: domain.FormatPNG},
	}

	for name, req := range reqs {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, 5<<20, nil)
			src := []byte(testSVG)

			img, err := e.usecase.Upload(context.Background(), upload("logo.svg", domain.MimeSVG, src), req)
			require.NoError(t, err)
			assert.Equal(t, domain.FormatSVG, img.Format)
			assert.Equal(t, []string{img.ID + ".svg"}, e.files(t))

			rc, _, err := e.usecase.Open(context.Background(), img.ID)
			require.NoError(t, err)
			assert.Equal(t, src, readAll(t, rc))
		})
	}
}

func TestUpload_SVGAfterLongProlog(t *testing.T) {
	e := newEnv(t, 5<<20, nil)
	src := []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<!-- " +
		strings.Repeat("x", 4096) + " -->\n" + testSVG)

	img, err := e.usecase.Upload(context.Background(), upload("drawing.svg", domain.MimeSVG, src), domain.TransformRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.FormatSVG, img.Format)
}

func TestValidate(t *testing.T) {
	e := newEnv(t, 5<<20, nil)

	require.NoError(t, e.usecase.Validate(upload("a.png", domain.MimePNG, pngBytes(t, 4, 4))))
	require.ErrorIs(t, e.usecase.Validate(upload("doc.pdf", "application/pdf", []byte("%PDF-1.4\n"))), domain.ErrInvalidFileType)
	require.ErrorIs(t, e.usecase.Validate(nil), domain.ErrMissingFile)
	assert.Empty(t, e.files(t))
}

func TestSniffLimit(t *testing.T) {
	assert.Equal(t, uint32(5<<20), sniffLimit(5<<20))
	assert.Zero(t, sniffLimit(0))
	assert.Zero(t, sniffLimit(1<<40))
}
