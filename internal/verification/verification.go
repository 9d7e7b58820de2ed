// Package verification implements user profiles and the doctor
// verification workflow: a doctor submits clinic details, and an admin
// approves or rejects the request.
package verification

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/storage"
)

var (
	// ErrInvalidApplication is returned when required fields are missing.
	ErrInvalidApplication = errors.New("invalid verification application")
	// ErrAlreadyVerified is returned when a verified doctor applies again.
	ErrAlreadyVerified = errors.New("doctor is already verified")
	// ErrAlreadyDecided is returned when approving or rejecting a request
	// that is no longer pending.
	ErrAlreadyDecided = errors.New("verification request already decided")
	// ErrReasonRequired is returned when rejecting without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
	// ErrUnknownStatus is returned when listing by a status that does not
	// exist.
	ErrUnknownStatus = errors.New("unknown verification status")
)

// Store is the persistence the workflow needs.
type Store interface {
	storage.ProfileStore
	storage.VerificationStore
}

// Applicant is the signed-in user a profile belongs to.
type Applicant struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Application is the clinic information a doctor submits.
type Application struct {
	LicenseNumber   string   `json:"licenseNumber"`
	HospitalName    string   `json:"hospitalName"`
	HospitalAddress string   `json:"hospitalAddress"`
	HospitalPhone   string   `json:"hospitalPhone"`
	Specialization  []string `json:"specialization"`
	Experience      int      `json:"experience"`
	AdditionalInfo  string   `json:"additionalInfo"`
}

func (a *Application) validate() error {
	a.LicenseNumber = strings.TrimSpace(a.LicenseNumber)
	a.HospitalName = strings.TrimSpace(a.HospitalName)
	switch {
	case a.LicenseNumber == "":
		return fmt.Errorf("%w: licenseNumber is required", ErrInvalidApplication)
	case a.HospitalName == "":
		return fmt.Errorf("%w: hospitalName is required", ErrInvalidApplication)
	case a.Experience < 0:
		return fmt.Errorf("%w: experience must not be negative", ErrInvalidApplication)
	}
	return nil
}

// Service runs the workflow against a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a verification service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// EnsureProfile returns the applicant's profile, creating the default
// patient profile on first use.
func (s *Service) EnsureProfile(ctx context.Context, a Applicant) (*storage.UserProfile, error) {
	profile, err := s.store.GetProfile(ctx, a.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, storage.ErrProfileNotFound) {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	now := s.now()
	profile = &storage.UserProfile{
		UID:         a.UID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
		UserType:    storage.UserTypePatient,
		PatientInfo: &storage.PatientInfo{
			TreatmentStartDate: now.UTC().Format(time.DateOnly),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SetProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("creating default profile: %w", err)
	}

	log.LogInfoWithFields("verification", "Created default patient profile", map[string]any{
		"uid": a.UID,
	})
	return profile, nil
}

// Submit records a doctor application. The applicant's profile switches
// to an unverified doctor until an admin decides.
func (s *Service) Submit(ctx context.Context, a Applicant, app Application) (*storage.VerificationRequest, error) {
	if err := app.validate(); err != nil {
		return nil, err
	}

	profile, err := s.EnsureProfile(ctx, a)
	if err != nil {
		return nil, err
	}
	if profile.DoctorInfo != nil && profile.DoctorInfo.IsVerified {
		return nil, ErrAlreadyVerified
	}

	now := s.now()
	profile.UserType = storage.UserTypeDoctor
	profile.DoctorInfo = &storage.DoctorInfo{
		LicenseNumber:      app.LicenseNumber,
		HospitalName:       app.HospitalName,
		HospitalAddress:    app.HospitalAddress,
		HospitalPhone:      app.HospitalPhone,
		Specialization:     slices.Clone(app.Specialization),
		Experience:         app.Experience,
		VerificationStatus: storage.VerificationPending,
		SubmittedAt:        &now,
	}
	profile.UpdatedAt = now

	req := &storage.VerificationRequest{
		UserID:          a.UID,
		UserEmail:       a.Email,
		UserName:        a.DisplayName,
		LicenseNumber:   app.LicenseNumber,
		HospitalName:    app.HospitalName,
		HospitalAddress: app.HospitalAddress,
		HospitalPhone:   app.HospitalPhone,
		Specialization:  slices.Clone(app.Specialization),
		Experience:      app.Experience,
		AdditionalInfo:  app.AdditionalInfo,
		Status:          storage.VerificationPending,
		SubmittedAt:     now,
	}

	id, err := s.store.SubmitVerification(ctx, req, profile)
	if err != nil {
		return nil, fmt.Errorf("submitting verification: %w", err)
	}
	req.ID = id

	log.LogInfoWithFields("verification", "Verification request submitted", map[string]any{
		"id":  id,
		"uid": a.UID,
	})
	return req, nil
}

// List returns requests with the given status, or all of them when status
// is empty.
func (s *Service) List(ctx context.Context, status storage.VerificationStatus) ([]storage.VerificationRequest, error) {
	switch status {
	case "", storage.VerificationPending, storage.VerificationApproved, storage.VerificationRejected:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return s.store.ListVerificationRequests(ctx, status)
}

// Approve marks the request approved and the applicant a verified doctor.
func (s *Service) Approve(ctx context.Context, id, adminEmail string) (*storage.VerificationRequest, error) {
	req, profile, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = storage.VerificationApproved
	req.ApprovedAt = &now
	req.ApprovedBy = decidedBy(adminEmail)

	profile.UserType = storage.UserTypeDoctor
	profile.DoctorInfo = doctorInfoFrom(req)
	profile.DoctorInfo.IsVerified = true
	profile.DoctorInfo.VerificationStatus = storage.VerificationApproved
	profile.DoctorInfo.ApprovedAt = &now
	profile.UpdatedAt = now

	if err := s.store.ApplyVerificationDecision(ctx, req, profile); err != nil {
		return nil, fmt.Errorf("approving verification: %w", err)
	}

	log.LogInfoWithFields("verification", "Verification request approved", map[string]any{
		"id":    id,
		"uid":   req.UserID,
		"admin": req.ApprovedBy,
	})
	return req, nil
}

// Reject marks the request rejected and returns the applicant to patient.
func (s *Service) Reject(ctx context.Context, id, adminEmail, reason string) (*storage.VerificationRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	req, profile, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = storage.VerificationRejected
	req.RejectedAt = &now
	req.RejectedBy = decidedBy(adminEmail)
	req.RejectionReason = reason

	profile.UserType = storage.UserTypePatient
	profile.DoctorInfo = doctorInfoFrom(req)
	profile.DoctorInfo.VerificationStatus = storage.VerificationRejected
	profile.DoctorInfo.RejectedAt = &now
	profile.DoctorInfo.RejectionReason = reason
	profile.UpdatedAt = now

	if err := s.store.ApplyVerificationDecision(ctx, req, profile); err != nil {
		return nil, fmt.Errorf("rejecting verification: %w", err)
	}

	log.LogInfoWithFields("verification", "Verification request rejected", map[string]any{
		"id":    id,
		"uid":   req.UserID,
		"admin": req.RejectedBy,
	})
	return req, nil
}

// Delete removes a request. The applicant's profile is left unchanged.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteVerificationRequest(ctx, id)
}

func (s *Service) loadPending(ctx context.Context, id string) (*storage.VerificationRequest, *storage.UserProfile, error) {
	req, err := s.store.GetVerificationRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != storage.VerificationPending {
		return nil, nil, ErrAlreadyDecided
	}
	profile, err := s.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}
	return req, profile, nil
}

func doctorInfoFrom(req *storage.VerificationRequest) *storage.DoctorInfo {
	submitted := req.SubmittedAt
	return &storage.DoctorInfo{
		LicenseNumber:   req.LicenseNumber,
		HospitalName:    req.HospitalName,
		HospitalAddress: req.HospitalAddress,
		HospitalPhone:   req.HospitalPhone,
		Specialization:  slices.Clone(req.Specialization),
		Experience:      req.Experience,
		SubmittedAt:     &submitted,
	}
}

func decidedBy(adminEmail string) string {
	if adminEmail == "" {
		return "admin"
	}
	return adminEmail
}
