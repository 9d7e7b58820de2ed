package server

import (
	"errors"
	"net/http"

	jsonwriter "github.com/dgellow/ortho-diary/internal/json"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/servicecontext"
	"github.com/dgellow/ortho-diary/internal/storage"
	"github.com/dgellow/ortho-diary/internal/verification"
)

// AdminHandlers serves the verification review queue and runtime log level.
// Routes are wrapped in NewAdminMiddleware.
type AdminHandlers struct {
	verification *verification.Service
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(svc *verification.Service) *AdminHandlers {
	return &AdminHandlers{verification: svc}
}

// VerificationList is the body of GET /admin/verifications.
type VerificationList struct {
	Requests []storage.VerificationRequest `json:"requests"`
}

// ListVerificationsHandler lists requests, optionally filtered by ?status=.
func (h *AdminHandlers) ListVerificationsHandler(w http.ResponseWriter, r *http.Request) {
	status := storage.VerificationStatus(r.URL.Query().Get("status"))

	requests, err := h.verification.List(r.Context(), status)
	if err != nil {
		if errors.Is(err, verification.ErrUnknownStatus) {
			jsonwriter.WriteBadRequest(w, err.Error())
			return
		}
		writeStoreError(w, "Failed to list verification requests", err)
		return
	}
	if requests == nil {
		requests = []storage.VerificationRequest{}
	}
	_ = jsonwriter.Write(w, VerificationList{Requests: requests})
}

// ApproveVerificationHandler approves a pending request.
func (h *AdminHandlers) ApproveVerificationHandler(w http.ResponseWriter, r *http.Request) {
	adminEmail, _ := servicecontext.GetEmail(r.Context())

	req, err := h.verification.Approve(r.Context(), r.PathValue("id"), adminEmail)
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	_ = jsonwriter.Write(w, req)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectVerificationHandler rejects a pending request with a reason.
func (h *AdminHandlers) RejectVerificationHandler(w http.ResponseWriter, r *http.Request) {
	adminEmail, _ := servicecontext.GetEmail(r.Context())

	var body rejectRequest
	if err := jsonwriter.DecodeRequest(r, 64<<10, &body); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	req, err := h.verification.Reject(r.Context(), r.PathValue("id"), adminEmail, body.Reason)
	if err != nil {
		writeDecisionError(w, err)
		return
	}
	_ = jsonwriter.Write(w, req)
}

// DeleteVerificationHandler removes a request.
func (h *AdminHandlers) DeleteVerificationHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.verification.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, "Failed to delete verification request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loggingRequest struct {
	Level string `json:"level"`
}

// LoggingHandler reports the log level on GET and changes it on POST.
func (h *AdminHandlers) LoggingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var body loggingRequest
		if err := jsonwriter.DecodeRequest(r, 4<<10, &body); err != nil {
			jsonwriter.WriteBadRequest(w, "Invalid request body")
			return
		}
		if err := log.SetLogLevel(body.Level); err != nil {
			jsonwriter.WriteBadRequest(w, err.Error())
			return
		}
		adminEmail, _ := servicecontext.GetEmail(r.Context())
		log.LogInfoWithFields("admin", "Log level changed", map[string]any{
			"level": body.Level,
			"admin": adminEmail,
		})
	}
	_ = jsonwriter.Write(w, loggingRequest{Level: log.GetLogLevel()})
}

func writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verification.ErrReasonRequired):
		jsonwriter.WriteBadRequest(w, err.Error())
	case errors.Is(err, verification.ErrAlreadyDecided):
		jsonwriter.WriteError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeStoreError(w, "Failed to decide verification request", err)
	}
}
