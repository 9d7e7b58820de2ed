package server

import (
	"errors"
	"net/http"

	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/journal"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/servicecontext"
	"github.com/dgellow/ortho-diary/internal/storage"
)

// A photo data URL plus memo and JSON framing.
const maxPhotoBody = journal.MaxPhotoSize + 64<<10

// JournalHandlers serves the caller's photo journal.
type JournalHandlers struct {
	journal *journal.Service
}

// NewJournalHandlers creates the journal handlers.
func NewJournalHandlers(journal *journal.Service) *JournalHandlers {
	return &JournalHandlers{journal: journal}
}

// PhotoList is the body of GET /api/photos.
type PhotoList struct {
	Photos []storage.Photo `json:"photos"`
}

// ListPhotosHandler returns the caller's photos, newest first.
// ?starred=true keeps only starred ones.
func (h *JournalHandlers) ListPhotosHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	photos, err := h.journal.List(r.Context(), caller.UID, r.URL.Query().Get("starred") == "true")
	if err != nil {
		writeStoreError(w, "Failed to load photos", err)
		return
	}
	if photos == nil {
		photos = []storage.Photo{}
	}
	_ = jsonwriter.Write(w, PhotoList{Photos: photos})
}

type createPhotoRequest struct {
	Data string `json:"data"`
	Memo string `json:"memo"`
}

// CreatePhotoHandler stores a new photo from a data URL or base64 JPEG.
func (h *JournalHandlers) CreatePhotoHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req createPhotoRequest
	if err := jsonwriter.DecodeRequest(r, maxPhotoBody, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonwriter.WriteError(w, http.StatusRequestEntityTooLarge, "Photo too large", nil)
			return
		}
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	photo, err := h.journal.Save(r.Context(), caller.UID, req.Data, req.Memo)
	switch {
	case err == nil:
		_ = jsonwriter.WriteResponse(w, http.StatusCreated, photo)
	case errors.Is(err, journal.ErrInvalidPhoto):
		jsonwriter.WriteBadRequest(w, "Invalid photo data")
	case errors.Is(err, journal.ErrPhotoTooLarge):
		jsonwriter.WriteError(w, http.StatusRequestEntityTooLarge, "Photo too large", nil)
	default:
		writeStoreError(w, "Failed to save photo", err)
	}
}

type updatePhotoRequest struct {
	Memo      *string `json:"memo"`
	IsStarred *bool   `json:"isStarred"`
}

// UpdatePhotoHandler edits the memo and star of one photo.
func (h *JournalHandlers) UpdatePhotoHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req updatePhotoRequest
	if err := jsonwriter.DecodeRequest(r, 64<<10, &req); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	photo, err := h.journal.Update(r.Context(), caller.UID, r.PathValue("id"), storage.PhotoUpdate{
		Memo:      req.Memo,
		IsStarred: req.IsStarred,
	})
	if err != nil {
		writeStoreError(w, "Failed to update photo", err)
		return
	}
	_ = jsonwriter.Write(w, photo)
}

// DeletePhotoHandler soft-deletes one photo.
func (h *JournalHandlers) DeletePhotoHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.journal.Delete(r.Context(), caller.UID, r.PathValue("id")); err != nil {
		writeStoreError(w, "Failed to delete photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps storage sentinels to 404 and everything else to 500.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, storage.ErrPhotoNotFound),
		errors.Is(err, storage.ErrProfileNotFound),
		errors.Is(err, storage.ErrVerificationNotFound):
		jsonwriter.WriteNotFound(w, err.Error())
	default:
		log.LogErrorWithFields("api", message, map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, message, nil)
	}
}
