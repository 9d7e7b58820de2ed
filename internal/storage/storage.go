package storage

import (
	"context"
	"errors"
	"time"
)

// ErrPhotoNotFound is returned when a photo doesn't exist or was deleted
var ErrPhotoNotFound = errors.New("photo not found")

// ErrProfileNotFound is returned when a user profile doesn't exist
var ErrProfileNotFound = errors.New("user profile not found")

// ErrVerificationNotFound is returned when a verification request doesn't exist
var ErrVerificationNotFound = errors.New("verification request not found")

// Collection names shared with the web client.
const (
	PhotosCollection        = "orthoPhotos"
	UsersCollection         = "users"
	VerificationsCollection = "verificationRequests"
)

// Photo is one journal entry. Data is a data URL
// (data:image/jpeg;base64,...). Deleted photos are kept but never
// returned by reads.
type Photo struct {
	ID        string     `json:"id"`
	Data      string     `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Memo      string     `json:"memo"`
	IsStarred bool       `json:"isStarred"`
	UserID    string     `json:"userId"`
	Deleted   bool       `json:"deleted,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// PhotoUpdate carries the mutable photo fields. Nil fields are unchanged.
type PhotoUpdate struct {
	Memo      *string
	IsStarred *bool
}

// UserType distinguishes patients from verified or pending doctors.
type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
)

// VerificationStatus is the state of a doctor verification request.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// PatientInfo holds treatment details for patients.
type PatientInfo struct {
	BirthDate          string `json:"birthDate,omitempty" firestore:"birthDate,omitempty"`
	Phone              string `json:"phone,omitempty" firestore:"phone,omitempty"`
	ParentName         string `json:"parentName,omitempty" firestore:"parentName,omitempty"`
	ParentPhone        string `json:"parentPhone,omitempty" firestore:"parentPhone,omitempty"`
	ConnectedDoctorID  string `json:"connectedDoctorId,omitempty" firestore:"connectedDoctorId,omitempty"`
	TreatmentStartDate string `json:"treatmentStartDate,omitempty" firestore:"treatmentStartDate,omitempty"`
	TreatmentType      string `json:"treatmentType,omitempty" firestore:"treatmentType,omitempty"`
}

// DoctorInfo holds clinic details and verification state for doctors.
type DoctorInfo struct {
	LicenseNumber      string             `json:"licenseNumber" firestore:"licenseNumber"`
	HospitalName       string             `json:"hospitalName" firestore:"hospitalName"`
	HospitalAddress    string             `json:"hospitalAddress" firestore:"hospitalAddress"`
	HospitalPhone      string             `json:"hospitalPhone" firestore:"hospitalPhone"`
	Specialization     []string           `json:"specialization" firestore:"specialization"`
	Experience         int                `json:"experience" firestore:"experience"`
	IsVerified         bool               `json:"isVerified" firestore:"isVerified"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty" firestore:"verificationStatus,omitempty"`
	SubmittedAt        *time.Time         `json:"submittedAt,omitempty" firestore:"submittedAt,omitempty"`
	ApprovedAt         *time.Time         `json:"approvedAt,omitempty" firestore:"approvedAt,omitempty"`
	RejectedAt         *time.Time         `json:"rejectedAt,omitempty" firestore:"rejectedAt,omitempty"`
	RejectionReason    string             `json:"rejectionReason,omitempty" firestore:"rejectionReason,omitempty"`
}

// UserProfile is the per-user document in the users collection.
type UserProfile struct {
	UID               string       `json:"uid" firestore:"uid"`
	Email             string       `json:"email" firestore:"email"`
	DisplayName       string       `json:"displayName" firestore:"displayName"`
	PhotoURL          string       `json:"photoURL,omitempty" firestore:"photoURL"`
	UserType          UserType     `json:"userType" firestore:"userType"`
	IsProfileComplete bool         `json:"isProfileComplete" firestore:"isProfileComplete"`
	PatientInfo       *PatientInfo `json:"patientInfo,omitempty" firestore:"patientInfo,omitempty"`
	DoctorInfo        *DoctorInfo  `json:"doctorInfo,omitempty" firestore:"doctorInfo,omitempty"`
	CreatedAt         time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

// VerificationRequest is a doctor's application for clinic verification.
type VerificationRequest struct {
	ID              string             `json:"id" firestore:"-"`
	UserID          string             `json:"userId" firestore:"userId"`
	UserEmail       string             `json:"userEmail" firestore:"userEmail"`
	UserName        string             `json:"userName" firestore:"userName"`
	LicenseNumber   string             `json:"licenseNumber" firestore:"licenseNumber"`
	HospitalName    string             `json:"hospitalName" firestore:"hospitalName"`
	HospitalAddress string             `json:"hospitalAddress" firestore:"hospitalAddress"`
	HospitalPhone   string             `json:"hospitalPhone" firestore:"hospitalPhone"`
	Specialization  []string           `json:"specialization" firestore:"specialization"`
	Experience      int                `json:"experience" firestore:"experience"`
	AdditionalInfo  string             `json:"additionalInfo" firestore:"additionalInfo"`
	Status          VerificationStatus `json:"status" firestore:"status"`
	SubmittedAt     time.Time          `json:"submittedAt" firestore:"submittedAt"`
	ApprovedAt      *time.Time         `json:"approvedAt,omitempty" firestore:"approvedAt,omitempty"`
	ApprovedBy      string             `json:"approvedBy,omitempty" firestore:"approvedBy,omitempty"`
	RejectedAt      *time.Time         `json:"rejectedAt,omitempty" firestore:"rejectedAt,omitempty"`
	RejectedBy      string             `json:"rejectedBy,omitempty" firestore:"rejectedBy,omitempty"`
	RejectionReason string             `json:"rejectionReason,omitempty" firestore:"rejectionReason,omitempty"`
}

// PhotoStore persists journal photos.
type PhotoStore interface {
	CreatePhoto(ctx context.Context, photo *Photo) (string, error)
	// GetPhoto returns ErrPhotoNotFound for missing and deleted photos.
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	// ListPhotos returns the user's non-deleted photos, newest first.
	ListPhotos(ctx context.Context, userID string) ([]Photo, error)
	UpdatePhoto(ctx context.Context, id string, update PhotoUpdate) error
	SoftDeletePhoto(ctx context.Context, id string, at time.Time) error
	// PurgeDeletedPhotos permanently removes photos deleted before cutoff.
	PurgeDeletedPhotos(ctx context.Context, cutoff time.Time) (int, error)
}

// ProfileStore persists user profiles keyed by uid.
type ProfileStore interface {
	GetProfile(ctx context.Context, uid string) (*UserProfile, error)
	SetProfile(ctx context.Context, profile *UserProfile) error
}

// VerificationStore persists doctor verification requests.
type VerificationStore interface {
	// SubmitVerification stores the request and the applicant's updated
	// profile together.
	SubmitVerification(ctx context.Context, req *VerificationRequest, profile *UserProfile) (string, error)
	GetVerificationRequest(ctx context.Context, id string) (*VerificationRequest, error)
	// ListVerificationRequests returns requests newest first. An empty
	// status lists all of them.
	ListVerificationRequests(ctx context.Context, status VerificationStatus) ([]VerificationRequest, error)
	// ApplyVerificationDecision writes a decided request and the
	// applicant's profile together.
	ApplyVerificationDecision(ctx context.Context, req *VerificationRequest, profile *UserProfile) error
	DeleteVerificationRequest(ctx context.Context, id string) error
}

// Storage combines all storage capabilities needed by ortho-diary
type Storage interface {
	PhotoStore
	ProfileStore
	VerificationStore

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
	Close() error
}
