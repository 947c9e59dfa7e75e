package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/dto"
)

// formOverhead is the body allowance for multipart framing and text fields.
const formOverhead = 1 << 20

type ImageHandler struct {
	service       domain.ImageService
	maxUploadSize int64
}

func NewImageHandler(service domain.ImageService, maxUploadBytes int64) *ImageHandler {
	return &ImageHandler{
		service:       service,
		maxUploadSize: maxUploadBytes,
	}
}

func (h *ImageHandler) RegisterRoutes(engine *ginext.Engine) {
	engine.POST("/upload", h.UploadImage)
	engine.GET("/download/:imageId", h.DownloadImage)
	engine.GET("/uploads/:filename", h.ServeStoredFile)
}

// UploadImage POST /upload
//
// @Summary      Upload an image
// @Description  Validates the image, optionally resizes, watermarks and re-encodes it, then stores it.
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        image      formData  file    true   "JPEG, PNG, GIF or SVG, at most 5 MiB"
// @Param        width      formData  int     false  "Maximum width in pixels"
// @Param        height     formData  int     false  "Maximum height in pixels"
// @Param        format     formData  string  false  "Output format (jpeg, png, gif)" default(jpeg)
// @Param        watermark  formData  bool    false  "Overlay the watermark label" default(false)
// @Success      200  {object}  dto.UploadResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /upload [post]
func (h *ImageHandler) UploadImage(c *ginext.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+formOverhead)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		if isBodyTooLarge(err) {
			h.writeError(c, domain.ErrFileTooLarge, "")
			return
		}
		zlog.Logger.Warn().Err(err).Msg("failed to get file from request")
		h.writeError(c, domain.ErrMissingFile, "")
		return
	}
	defer file.Close()

	// one byte past the limit is enough to detect an oversized part
	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadSize+1))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("filename", header.Filename).Msg("failed to read uploaded file")
		h.writeError(c, err, "Error processing image")
		return
	}

	upload := &domain.UploadedImage{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     max(header.Size, int64(len(data))),
		Data:     data,
	}

	var req dto.UploadImageRequest
	if err := c.ShouldBind(&req); err != nil {
		// a bad file outranks bad transform fields
		if fileErr := h.service.Validate(upload); fileErr != nil {
			h.writeError(c, fileErr, "Error processing image")
			return
		}
		zlog.Logger.Warn().Err(err).Msg("invalid upload parameters")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "width and height must be non-negative integers, watermark must be a boolean",
		})
		return
	}

	image, err := h.service.Upload(c.Request.Context(), upload, req.ToTransformRequest())
	if err != nil {
		if !domain.IsClientError(err) {
			zlog.Logger.Error().Err(err).Str("filename", header.Filename).Msg("failed to upload image")
		}
		h.writeError(c, err, "Error processing image")
		return
	}

	c.JSON(http.StatusOK, dto.MapImageToUploadResponse(image))
}

// DownloadImage GET /download/:imageId
//
// @Summary      Download a stored image
// @Tags         images
// @Produce      image/jpeg,image/png,image/gif,image/svg+xml
// @Param        imageId  path  string  true  "Image identifier"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /download/{imageId} [get]
func (h *ImageHandler) DownloadImage(c *ginext.Context) {
	id := c.Param("imageId")

	file, image, err := h.service.Open(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Error downloading image")
		return
	}

	h.stream(c, file, image)
}

// ServeStoredFile GET /uploads/:filename
//
// @Summary      Fetch a stored file by name
// @Tags         images
// @Produce      image/jpeg,image/png,image/gif,image/svg+xml
// @Param        filename  path  string  true  "Stored file name {imageId}.{ext}"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /uploads/{filename} [get]
func (h *ImageHandler) ServeStoredFile(c *ginext.Context) {
	filename := c.Param("filename")

	file, image, err := h.service.OpenByFilename(c.Request.Context(), filename)
	if err != nil {
		h.writeError(c, err, "Error downloading image")
		return
	}

	h.stream(c, file, image)
}

// Helper methods

func (h *ImageHandler) stream(c *ginext.Context, file io.ReadCloser, image *domain.StoredImage) {
	defer file.Close()

	c.Header("Content-Type", image.Format.ContentType())
	c.Header("Content-Length", strconv.FormatInt(image.Size, 10))
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%s", image.Filename))
	c.Status(http.StatusOK)

	written, err := io.Copy(c.Writer, file)
	if err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("image_id", image.ID).
			Str("filename", image.Filename).
			Int64("bytes_written", written).
			Msg("failed to write image to response")
		return
	}
	zlog.Logger.Debug().
		Str("image_id", image.ID).
		Str("filename", image.Filename).
		Int64("bytes_written", written).
		Msg("image sent successfully")
}

// writeError maps domain errors onto statuses. Anything unrecognised is a
// 500 carrying only serverMessage.
func (h *ImageHandler) writeError(c *ginext.Context, err error, serverMessage string) {
	switch {
	case errors.Is(err, domain.ErrMissingFile):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "missing_file",
			Message: "No image file provided",
		})
	case errors.Is(err, domain.ErrInvalidFileType):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_file_type",
			Message: "Invalid file type. Allowed: JPEG, PNG, GIF, SVG",
		})
	case errors.Is(err, domain.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "file_too_large",
			Message: fmt.Sprintf("File size exceeds maximum allowed (%d MB)", h.maxUploadSize/(1024*1024)),
		})
	case errors.Is(err, domain.ErrInvalidFormat):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_format",
			Message: "Unsupported output format. Allowed: jpeg, png, gif",
		})
	case errors.Is(err, domain.ErrInvalidDimensions):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_request",
			Message: "width and height must be non-negative integers",
		})
	case errors.Is(err, domain.ErrImageNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: "Image not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "server_error",
			Message: serverMessage,
		})
	}
}

// isBodyTooLarge detects the MaxBytesReader limit. ParseMultipartForm wraps
// reader errors with %w ("multipart: NextPart: ..."), so the typed error
// survives; the part itself is read from the parsed form and never hits it.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
