package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/storage"
)

const (
	maxImageBytes = 10 << 20
	// room for multipart framing around the file itself
	maxUploadBytes = maxImageBytes + 1<<20
)

type UploadHandler struct {
	uploader storage.Uploader
}

// NewUploadHandler accepts a nil uploader; uploads then answer 503.
func NewUploadHandler(uploader storage.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

func (h *UploadHandler) UploadJobImage(c *gin.Context) {
	h.upload(c, storage.PrefixJobImages)
}

func (h *UploadHandler) UploadPressImage(c *gin.Context) {
	h.upload(c, storage.PrefixPressImages)
}

func (h *UploadHandler) upload(c *gin.Context, prefix string) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage is not configured"})
		return
	}

	if c.Request.ContentLength > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image must be 10MB or smaller"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image must be 10MB or smaller"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image must be 10MB or smaller"})
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be an image"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		respondError(c, err, "image")
		return
	}
	defer f.Close()

	url, err := h.uploader.Upload(c.Request.Context(), prefix, fh.Filename, contentType, f, fh.Size)
	if err != nil {
		respondError(c, err, "image")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *UploadHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/uploads/jobs", h.UploadJobImage)
	admin.POST("/uploads/presses", h.UploadPressImage)
}
