package images

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quinisports/quinisports/internal/guard"
	"github.com/quinisports/quinisports/internal/platform/blob"
	"github.com/quinisports/quinisports/internal/platform/httpx"
	"github.com/quinisports/quinisports/internal/policy"
	"github.com/quinisports/quinisports/internal/shared"
)

// MaxUploadBytes caps the size of an uploaded image.
const MaxUploadBytes = 1 << 20

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Handler exposes the image upload endpoints.
type Handler struct {
	logger *slog.Logger
	store  blob.Store
	guard  *guard.Guard
	newID  func() string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store blob.Store, g *guard.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, guard: g, newID: func() string { return uuid.NewString()[:8] }}
}

// MountRoutes registers /api/images.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.API(policy.ResourceImage, policy.VerbCreate)).Post("/upload", h.upload)
	r.With(h.guard.API(policy.ResourceImage, policy.VerbDelete)).Delete("/upload", h.remove)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	base := shared.Slugify(r.URL.Query().Get("filename"))
	if base == "" {
		httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"filename": "is required"}))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"file": "El tamaño max es de 1MB."}))
			return
		}
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if len(body) == 0 {
		httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"file": "Imagen requerida"}))
		return
	}
	contentType := http.DetectContentType(body)
	ext, ok := extensions[contentType]
	if !ok {
		httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"file": "Only .jpg, .jpeg, .png and .webp formats are supported."}))
		return
	}
	obj, err := h.store.Put(r.Context(), base+"-"+h.newID()+ext, contentType, body)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, obj)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("fileurl"))
	u, err := url.Parse(raw)
	if raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
		httpx.RespondError(w, r, h.logger, shared.InvalidFields(map[string]string{"fileurl": "must be an absolute url"}))
		return
	}
	if err := h.store.Delete(r.Context(), raw); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"url": raw})
}
