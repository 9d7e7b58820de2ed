package server

import (
	"errors"
	"net/http"

	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/servicecontext"
	"github.com/dgellow/ortho-diary/internal/verification"
)

// ProfileHandlers serves the caller's profile and doctor verification.
type ProfileHandlers struct {
	verification *verification.Service
}

// NewProfileHandlers creates the profile handlers.
func NewProfileHandlers(svc *verification.Service) *ProfileHandlers {
	return &ProfileHandlers{verification: svc}
}

func applicantFrom(caller servicecontext.Caller) verification.Applicant {
	return verification.Applicant{
		UID:         caller.UID,
		Email:       caller.Email,
		DisplayName: caller.DisplayName,
		PhotoURL:    caller.PhotoURL,
	}
}

// ProfileHandler returns the caller's profile, creating the default
// patient profile on first access.
func (h *ProfileHandlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	profile, err := h.verification.EnsureProfile(r.Context(), applicantFrom(caller))
	if err != nil {
		writeStoreError(w, "Failed to load profile", err)
		return
	}
	_ = jsonwriter.Write(w, profile)
}

// SubmitVerificationHandler files a doctor verification request.
func (h *ProfileHandlers) SubmitVerificationHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := servicecontext.GetCaller(r.Context())
	if !ok {
		jsonwriter.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var app verification.Application
	if err := jsonwriter.DecodeRequest(r, 64<<10, &app); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	req, err := h.verification.Submit(r.Context(), applicantFrom(caller), app)
	switch {
	case err == nil:
		_ = jsonwriter.WriteResponse(w, http.StatusCreated, req)
	case errors.Is(err, verification.ErrInvalidApplication):
		jsonwriter.WriteBadRequest(w, err.Error())
	case errors.Is(err, verification.ErrAlreadyVerified):
		jsonwriter.WriteError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeStoreError(w, "Failed to submit verification request", err)
	}
}
