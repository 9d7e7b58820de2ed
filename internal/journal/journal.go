// Package journal implements the dated photo journal on top of storage.
package journal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgellow/ortho-diary/internal/camera"
	"github.com/dgellow/ortho-diary/internal/log"
	"github.com/dgellow/ortho-diary/internal/storage"
)

// MaxPhotoSize bounds the stored data URL so a photo fits in one document.
const MaxPhotoSize = 1_000_000

// ErrPhotoTooLarge is returned for photos over MaxPhotoSize.
var ErrPhotoTooLarge = errors.New("photo too large")

// Service manages one store of journal photos.
type Service struct {
	photos storage.PhotoStore
	now    func() time.Time
}

// NewService creates a journal service.
func NewService(photos storage.PhotoStore) *Service {
	return &Service{photos: photos, now: time.Now}
}

// Save stores a photo given as a data URL or bare base64 JPEG.
func (s *Service) Save(ctx context.Context, userID, data, memo string) (*storage.Photo, error) {
	raw, mime, err := DecodeDataURL(data)
	if err != nil {
		return nil, err
	}
	dataURL := encodeDataURL(mime, raw)
	if len(dataURL) > MaxPhotoSize {
		return nil, ErrPhotoTooLarge
	}

	photo := &storage.Photo{
		Data:      dataURL,
		Timestamp: s.now(),
		Memo:      memo,
		UserID:    userID,
	}
	id, err := s.photos.CreatePhoto(ctx, photo)
	if err != nil {
		return nil, fmt.Errorf("saving photo: %w", err)
	}
	photo.ID = id

	log.LogInfoWithFields("journal", "Photo saved", map[string]any{
		"id":     id,
		"userId": userID,
		"bytes":  len(raw),
	})
	return photo, nil
}

// List returns the user's photos, newest first.
func (s *Service) List(ctx context.Context, userID string, starredOnly bool) ([]storage.Photo, error) {
	photos, err := s.photos.ListPhotos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	if starredOnly {
		photos = slices.DeleteFunc(photos, func(p storage.Photo) bool { return !p.IsStarred })
	}
	return photos, nil
}

// Get returns one of the user's photos. Photos owned by someone else are
// reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*storage.Photo, error) {
	photo, err := s.photos.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if photo.UserID != userID {
		return nil, storage.ErrPhotoNotFound
	}
	return photo, nil
}

// Update changes the memo and star of one of the user's photos.
func (s *Service) Update(ctx context.Context, userID, id string, update storage.PhotoUpdate) (*storage.Photo, error) {
	photo, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.photos.UpdatePhoto(ctx, id, update); err != nil {
		return nil, fmt.Errorf("updating photo: %w", err)
	}
	if update.Memo != nil {
		photo.Memo = *update.Memo
	}
	if update.IsStarred != nil {
		photo.IsStarred = *update.IsStarred
	}
	return photo, nil
}

// Delete soft-deletes one of the user's photos.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.photos.SoftDeletePhoto(ctx, id, s.now()); err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	log.LogInfoWithFields("journal", "Photo deleted", map[string]any{
		"id":     id,
		"userId": userID,
	})
	return nil
}

// Sink returns a frame sink that stores captured frames in userID's
// journal.
func (s *Service) Sink(userID string) camera.FrameSink {
	return &userSink{service: s, userID: userID}
}

type userSink struct {
	service *Service
	userID  string
}

func (u *userSink) SaveFrame(ctx context.Context, f camera.Frame) (string, error) {
	photo, err := u.service.Save(ctx, u.userID, EncodeDataURL(f.Data), f.Caption)
	if err != nil {
		return "", err
	}
	return photo.ID, nil
}
