package client

import (
	"context"
	"net/url"

	"github.com/dgellow/ortho-diary/internal/camera"
	"github.com/dgellow/ortho-diary/internal/journal"
	"github.com/dgellow/ortho-diary/internal/storage"
)

// Credentials supplies the bearer token for API calls.
type Credentials interface {
	Credential() string
}

// JournalClient calls the journal API as the current session user.
type JournalClient struct {
	base
	creds Credentials
}

// Ensure JournalClient can receive captured frames
var _ camera.FrameSink = (*JournalClient)(nil)

// NewJournalClient creates a journal API client.
func NewJournalClient(baseURL string, creds Credentials, opts ...Option) *JournalClient {
	return &JournalClient{base: newBase(baseURL, opts), creds: creds}
}

type createPhotoRequest struct {
	Data string `json:"data"`
	Memo string `json:"memo"`
}

// SaveFrame uploads a captured frame as a new journal photo.
func (c *JournalClient) SaveFrame(ctx context.Context, f camera.Frame) (string, error) {
	var photo storage.Photo
	req := createPhotoRequest{Data: journal.EncodeDataURL(f.Data), Memo: f.Caption}
	if err := c.do(ctx, "POST", "/api/photos", c.creds.Credential(), req, &photo); err != nil {
		return "", err
	}
	return photo.ID, nil
}

// ListPhotos returns the user's photos, newest first.
func (c *JournalClient) ListPhotos(ctx context.Context, starredOnly bool) ([]storage.Photo, error) {
	path := "/api/photos"
	if starredOnly {
		path += "?starred=true"
	}
	var resp struct {
		Photos []storage.Photo `json:"photos"`
	}
	if err := c.do(ctx, "GET", path, c.creds.Credential(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Photos, nil
}

type updatePhotoRequest struct {
	Memo      *string `json:"memo,omitempty"`
	IsStarred *bool   `json:"isStarred,omitempty"`
}

// UpdatePhoto changes the memo and star of a photo.
func (c *JournalClient) UpdatePhoto(ctx context.Context, id string, update storage.PhotoUpdate) (*storage.Photo, error) {
	var photo storage.Photo
	req := updatePhotoRequest{Memo: update.Memo, IsStarred: update.IsStarred}
	if err := c.do(ctx, "PATCH", "/api/photos/"+url.PathEscape(id), c.creds.Credential(), req, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

// DeletePhoto removes a photo from the journal.
func (c *JournalClient) DeletePhoto(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/photos/"+url.PathEscape(id), c.creds.Credential(), nil, nil)
}

// Profile returns the user's profile, created on first access.
func (c *JournalClient) Profile(ctx context.Context) (*storage.UserProfile, error) {
	var profile storage.UserProfile
	if err := c.do(ctx, "GET", "/api/profile", c.creds.Credential(), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
