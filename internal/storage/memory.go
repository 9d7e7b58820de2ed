package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgellow/ortho-diary/internal/log"
)

// Ensure MemoryStorage implements required interfaces
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage is a simple storage layer for tests and local development.
// Values are copied in and out so callers never share state with the store.
type MemoryStorage struct {
	photos             map[string]*Photo
	photosMutex        sync.RWMutex
	profiles           map[string]*UserProfile
	verifications      map[string]*VerificationRequest
	verificationsMutex sync.RWMutex // guards profiles and verifications
}

// NewMemoryStorage creates a new storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		photos:        make(map[string]*Photo),
		profiles:      make(map[string]*UserProfile),
		verifications: make(map[string]*VerificationRequest),
	}
}

func (s *MemoryStorage) CreatePhoto(_ context.Context, photo *Photo) (string, error) {
	s.photosMutex.Lock()
	defer s.photosMutex.Unlock()

	p := *photo
	p.ID = uuid.NewString()
	s.photos[p.ID] = &p
	return p.ID, nil
}

func (s *MemoryStorage) GetPhoto(_ context.Context, id string) (*Photo, error) {
	s.photosMutex.RLock()
	defer s.photosMutex.RUnlock()

	p, ok := s.photos[id]
	if !ok || p.Deleted {
		return nil, ErrPhotoNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStorage) ListPhotos(_ context.Context, userID string) ([]Photo, error) {
	s.photosMutex.RLock()
	defer s.photosMutex.RUnlock()

	var photos []Photo
	for _, p := range s.photos {
		if p.UserID == userID && !p.Deleted {
			photos = append(photos, *p)
		}
	}
	slices.SortFunc(photos, func(a, b Photo) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return photos, nil
}

func (s *MemoryStorage) UpdatePhoto(_ context.Context, id string, update PhotoUpdate) error {
	s.photosMutex.Lock()
	defer s.photosMutex.Unlock()

	p, ok := s.photos[id]
	if !ok || p.Deleted {
		return ErrPhotoNotFound
	}
	if update.Memo != nil {
		p.Memo = *update.Memo
	}
	if update.IsStarred != nil {
		p.IsStarred = *update.IsStarred
	}
	return nil
}

func (s *MemoryStorage) SoftDeletePhoto(_ context.Context, id string, at time.Time) error {
	s.photosMutex.Lock()
	defer s.photosMutex.Unlock()

	p, ok := s.photos[id]
	if !ok || p.Deleted {
		return ErrPhotoNotFound
	}
	p.Deleted = true
	p.DeletedAt = &at
	return nil
}

func (s *MemoryStorage) PurgeDeletedPhotos(_ context.Context, cutoff time.Time) (int, error) {
	s.photosMutex.Lock()
	defer s.photosMutex.Unlock()

	purged := 0
	for id, p := range s.photos {
		if p.Deleted && p.DeletedAt != nil && p.DeletedAt.Before(cutoff) {
			delete(s.photos, id)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStorage) GetProfile(_ context.Context, uid string) (*UserProfile, error) {
	s.verificationsMutex.RLock()
	defer s.verificationsMutex.RUnlock()

	p, ok := s.profiles[uid]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (s *MemoryStorage) SetProfile(_ context.Context, profile *UserProfile) error {
	s.verificationsMutex.Lock()
	defer s.verificationsMutex.Unlock()

	s.profiles[profile.UID] = cloneProfile(profile)
	return nil
}

func (s *MemoryStorage) SubmitVerification(_ context.Context, req *VerificationRequest, profile *UserProfile) (string, error) {
	s.verificationsMutex.Lock()
	defer s.verificationsMutex.Unlock()

	r := cloneRequest(req)
	r.ID = uuid.NewString()
	s.verifications[r.ID] = r
	s.profiles[profile.UID] = cloneProfile(profile)

	log.LogDebugWithFields("storage", "Stored verification request", map[string]any{
		"id":     r.ID,
		"userId": r.UserID,
	})
	return r.ID, nil
}

func (s *MemoryStorage) GetVerificationRequest(_ context.Context, id string) (*VerificationRequest, error) {
	s.verificationsMutex.RLock()
	defer s.verificationsMutex.RUnlock()

	r, ok := s.verifications[id]
	if !ok {
		return nil, ErrVerificationNotFound
	}
	return cloneRequest(r), nil
}

func (s *MemoryStorage) ListVerificationRequests(_ context.Context, status VerificationStatus) ([]VerificationRequest, error) {
	s.verificationsMutex.RLock()
	defer s.verificationsMutex.RUnlock()

	var requests []VerificationRequest
	for _, r := range s.verifications {
		if status == "" || r.Status == status {
			requests = append(requests, *cloneRequest(r))
		}
	}
	slices.SortFunc(requests, func(a, b VerificationRequest) int {
		return b.SubmittedAt.Compare(a.SubmittedAt)
	})
	return requests, nil
}

func (s *MemoryStorage) ApplyVerificationDecision(_ context.Context, req *VerificationRequest, profile *UserProfile) error {
	s.verificationsMutex.Lock()
	defer s.verificationsMutex.Unlock()

	if _, ok := s.verifications[req.ID]; !ok {
		return ErrVerificationNotFound
	}
	if _, ok := s.profiles[profile.UID]; !ok {
		return ErrProfileNotFound
	}
	s.verifications[req.ID] = cloneRequest(req)
	s.profiles[profile.UID] = cloneProfile(profile)
	return nil
}

func (s *MemoryStorage) DeleteVerificationRequest(_ context.Context, id string) error {
	s.verificationsMutex.Lock()
	defer s.verificationsMutex.Unlock()

	if _, ok := s.verifications[id]; !ok {
		return ErrVerificationNotFound
	}
	delete(s.verifications, id)
	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStorage) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStorage) Close() error { return nil }

func cloneProfile(p *UserProfile) *UserProfile {
	cp := *p
	if p.PatientInfo != nil {
		info := *p.PatientInfo
		cp.PatientInfo = &info
	}
	if p.DoctorInfo != nil {
		info := *p.DoctorInfo
		info.Specialization = slices.Clone(p.DoctorInfo.Specialization)
		cp.DoctorInfo = &info
	}
	return &cp
}

func cloneRequest(r *VerificationRequest) *VerificationRequest {
	cp := *r
	cp.Specialization = slices.Clone(r.Specialization)
	return &cp
}
