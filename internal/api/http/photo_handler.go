package http

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/mux"

	"rentdesk-backend/internal/domain"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/storage"
)

const maxPhotoSize = 10 << 20

var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
}

type reservationLookup interface {
	GetForTeam(ctx context.Context, teamID, id int32) (*domain.Reservation, error)
}

// PhotoHandler stores handover photos. The returned keys go into the photos
// list of a check-in or check-out.
type PhotoHandler struct {
	reservations reservationLookup
	store        storage.ArtifactStore
}

func NewPhotoHandler(reservations reservationLookup, store storage.ArtifactStore) *PhotoHandler {
	return &PhotoHandler{reservations: reservations, store: store}
}

func (h *PhotoHandler) scope(r *http.Request) (int32, error) {
	teamID, err := teamIDFromRequest(r)
	if err != nil {
		return 0, err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return 0, err
	}
	if _, err := h.reservations.GetForTeam(r.Context(), teamID, id); err != nil {
		return 0, err
	}
	return id, nil
}

// Upload handles PUT requests carrying one image body
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := h.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Validate content type
	contentType := r.Header.Get("Content-Type")
	ext, ok := photoTypes[contentType]
	if !ok {
		writeError(w, r, domain.Validationf("unsupported content type %q", contentType))
		return
	}

	key := storage.HandoverPhotoKey(id, ext)
	if err := h.store.Put(r.Context(), key, contentType, http.MaxBytesReader(w, r.Body, maxPhotoSize)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// Download streams a photo previously uploaded for the reservation
func (h *PhotoHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := h.scope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := mux.Vars(r)["name"]
	if name == "" || strings.ContainsAny(name, "/\\") {
		writeError(w, r, domain.Validationf("invalid photo name"))
		return
	}

	key := storage.HandoverPhotoPrefix(id) + name
	file, err := h.store.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Determine content type from file extension
	contentType := "application/octet-stream"
	for ct, ext := range photoTypes {
		if path.Ext(name) == ext {
			contentType = ct
		}
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn("Photo download interrupted", "key", key, "error", err)
	}
}
