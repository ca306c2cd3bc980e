package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/flaelle/flaelle/internal/platform/httpx"
	"github.com/flaelle/flaelle/internal/shared"
)

// MaxImageBytes bounds uploaded product images.
const MaxImageBytes = 10 << 20

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// BlobStore stores publicly readable objects.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// UploadHandler accepts product images.
type UploadHandler struct {
	logger *slog.Logger
	store  BlobStore
	now    func() time.Time
}

// NewUploadHandler constructs UploadHandler. A nil store disables uploads.
func NewUploadHandler(logger *slog.Logger, store BlobStore, now func() time.Time) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &UploadHandler{logger: logger, store: store, now: now}
}

// MountRoutes registers the upload route.
func (h *UploadHandler) MountRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Uploads Disabled", "object storage is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "File Too Large", "file must be at most 10 MiB")
			return
		}
		httpx.RespondError(w, shared.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) > MaxImageBytes {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, "File Too Large", "file must be at most 10 MiB")
		return
	}
	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		httpx.RespondError(w, shared.NewValidationError("file", "must be a JPEG, PNG, WebP or GIF image"))
		return
	}

	key := ObjectKey(h.now(), header.Filename)
	url, err := h.store.Put(r.Context(), key, mime.String(), bytes.NewReader(data))
	if err != nil {
		h.logger.Error("upload image", slog.String("key", key), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("image uploaded", slog.String("key", key), slog.Int("bytes", len(data)))
	httpx.JSON(w, http.StatusOK, uploadResponse{URL: url})
}

// ObjectKey names an uploaded product image.
func ObjectKey(at time.Time, filename string) string {
	name := unsafeNameChars.ReplaceAllString(filename, "_")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("products/%d_%s", at.UnixMilli(), name)
}
