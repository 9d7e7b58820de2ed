package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dgellow/ortho-diary/internal/log"
)

// FirestoreStorage implements Storage on Google Cloud Firestore using the
// same collections and document shapes as the web client.
type FirestoreStorage struct {
	client    *firestore.Client
	projectID string
}

// Ensure FirestoreStorage implements Storage interface
var _ Storage = (*FirestoreStorage)(nil)

// photoDoc is the orthoPhotos document. Timestamps are ISO-8601 strings
// because the web client sorts and groups on the string form.
type photoDoc struct {
	Data      string `firestore:"data"`
	Timestamp string `firestore:"timestamp"`
	Memo      string `firestore:"memo"`
	IsStarred bool   `firestore:"isStarred"`
	UserID    string `firestore:"userId"`
	Deleted   bool   `firestore:"deleted,omitempty"`
	DeletedAt string `firestore:"deletedAt,omitempty"`
}

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func parseISO(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func photoToDoc(p *Photo) photoDoc {
	doc := photoDoc{
		Data:      p.Data,
		Timestamp: formatISO(p.Timestamp),
		Memo:      p.Memo,
		IsStarred: p.IsStarred,
		UserID:    p.UserID,
		Deleted:   p.Deleted,
	}
	if p.DeletedAt != nil {
		doc.DeletedAt = formatISO(*p.DeletedAt)
	}
	return doc
}

func (d *photoDoc) toPhoto(id string) (*Photo, error) {
	ts, err := parseISO(d.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp of photo %s: %w", id, err)
	}
	p := &Photo{
		ID:        id,
		Data:      d.Data,
		Timestamp: ts,
		Memo:      d.Memo,
		IsStarred: d.IsStarred,
		UserID:    d.UserID,
		Deleted:   d.Deleted,
	}
	if d.DeletedAt != "" {
		at, err := parseISO(d.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing deletedAt of photo %s: %w", id, err)
		}
		p.DeletedAt = &at
	}
	return p, nil
}

// NewFirestoreStorage creates a new Firestore storage instance
func NewFirestoreStorage(ctx context.Context, projectID, database string) (*FirestoreStorage, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}

	var client *firestore.Client
	var err error

	// Firestore client with custom database
	if database != "" && database != firestore.DefaultDatabaseID {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Connected to Firestore", map[string]any{
		"project":  projectID,
		"database": database,
	})

	return &FirestoreStorage{client: client, projectID: projectID}, nil
}

func (s *FirestoreStorage) CreatePhoto(ctx context.Context, photo *Photo) (string, error) {
	ref, _, err := s.client.Collection(PhotosCollection).Add(ctx, photoToDoc(photo))
	if err != nil {
		return "", fmt.Errorf("failed to store photo: %w", err)
	}
	return ref.ID, nil
}

func (s *FirestoreStorage) getPhotoDoc(ctx context.Context, id string) (*Photo, error) {
	doc, err := s.client.Collection(PhotosCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	var d photoDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal photo: %w", err)
	}
	return d.toPhoto(doc.Ref.ID)
}

func (s *FirestoreStorage) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	p, err := s.getPhotoDoc(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, ErrPhotoNotFound
	}
	return p, nil
}

func (s *FirestoreStorage) ListPhotos(ctx context.Context, userID string) ([]Photo, error) {
	iter := s.client.Collection(PhotosCollection).
		Where("userId", "==", userID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var photos []Photo
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate photos: %w", err)
		}

		var d photoDoc
		if err := doc.DataTo(&d); err != nil {
			log.LogError("Failed to unmarshal photo %s: %v", doc.Ref.ID, err)
			continue
		}
		// Older documents have no deleted field, so it is filtered here
		// rather than in the query.
		if d.Deleted {
			continue
		}
		p, err := d.toPhoto(doc.Ref.ID)
		if err != nil {
			log.LogError("Skipping photo: %v", err)
			continue
		}
		photos = append(photos, *p)
	}
	return photos, nil
}

func (s *FirestoreStorage) UpdatePhoto(ctx context.Context, id string, update PhotoUpdate) error {
	var updates []firestore.Update
	if update.Memo != nil {
		updates = append(updates, firestore.Update{Path: "memo", Value: *update.Memo})
	}
	if update.IsStarred != nil {
		updates = append(updates, firestore.Update{Path: "isStarred", Value: *update.IsStarred})
	}

	if _, err := s.GetPhoto(ctx, id); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	_, err := s.client.Collection(PhotosCollection).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update photo: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) SoftDeletePhoto(ctx context.Context, id string, at time.Time) error {
	if _, err := s.GetPhoto(ctx, id); err != nil {
		return err
	}
	_, err := s.client.Collection(PhotosCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "deleted", Value: true},
		{Path: "deletedAt", Value: formatISO(at)},
	})
	if status.Code(err) == codes.NotFound {
		return ErrPhotoNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) PurgeDeletedPhotos(ctx context.Context, cutoff time.Time) (int, error) {
	iter := s.client.Collection(PhotosCollection).Where("deleted", "==", true).Documents(ctx)
	defer iter.Stop()

	purged := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return purged, fmt.Errorf("failed to iterate deleted photos: %w", err)
		}

		var d photoDoc
		if err := doc.DataTo(&d); err != nil {
			log.LogError("Failed to unmarshal photo %s: %v", doc.Ref.ID, err)
			continue
		}
		at, err := parseISO(d.DeletedAt)
		if err != nil || !at.Before(cutoff) {
			continue
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			log.LogError("Failed to purge photo %s: %v", doc.Ref.ID, err)
			continue
		}
		purged++
	}
	return purged, nil
}

func (s *FirestoreStorage) GetProfile(ctx context.Context, uid string) (*UserProfile, error) {
	doc, err := s.client.Collection(UsersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	var profile UserProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user profile: %w", err)
	}
	profile.UID = uid
	return &profile, nil
}

func (s *FirestoreStorage) SetProfile(ctx context.Context, profile *UserProfile) error {
	if _, err := s.client.Collection(UsersCollection).Doc(profile.UID).Set(ctx, profile); err != nil {
		return fmt.Errorf("failed to store user profile: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) SubmitVerification(ctx context.Context, req *VerificationRequest, profile *UserProfile) (string, error) {
	reqRef := s.client.Collection(VerificationsCollection).NewDoc()
	userRef := s.client.Collection(UsersCollection).Doc(profile.UID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(userRef, profile); err != nil {
			return err
		}
		return tx.Create(reqRef, req)
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit verification request: %w", err)
	}
	return reqRef.ID, nil
}

func (s *FirestoreStorage) GetVerificationRequest(ctx context.Context, id string) (*VerificationRequest, error) {
	doc, err := s.client.Collection(VerificationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrVerificationNotFound
		}
		return nil, fmt.Errorf("failed to get verification request: %w", err)
	}

	var req VerificationRequest
	if err := doc.DataTo(&req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification request: %w", err)
	}
	req.ID = doc.Ref.ID
	return &req, nil
}

func (s *FirestoreStorage) ListVerificationRequests(ctx context.Context, st VerificationStatus) ([]VerificationRequest, error) {
	query := s.client.Collection(VerificationsCollection).Query
	if st != "" {
		query = query.Where("status", "==", string(st))
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var requests []VerificationRequest
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate verification requests: %w", err)
		}

		var req VerificationRequest
		if err := doc.DataTo(&req); err != nil {
			log.LogError("Failed to unmarshal verification request %s: %v", doc.Ref.ID, err)
			continue
		}
		req.ID = doc.Ref.ID
		requests = append(requests, req)
	}

	// Sorted here so a status filter doesn't need a composite index.
	slices.SortFunc(requests, func(a, b VerificationRequest) int {
		return b.SubmittedAt.Compare(a.SubmittedAt)
	})
	return requests, nil
}

func (s *FirestoreStorage) ApplyVerificationDecision(ctx context.Context, req *VerificationRequest, profile *UserProfile) error {
	reqRef := s.client.Collection(VerificationsCollection).Doc(req.ID)
	userRef := s.client.Collection(UsersCollection).Doc(profile.UID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(reqRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrVerificationNotFound
			}
			return err
		}
		if _, err := tx.Get(userRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrProfileNotFound
			}
			return err
		}
		if err := tx.Set(reqRef, req); err != nil {
			return err
		}
		return tx.Set(userRef, profile)
	})
	if errors.Is(err, ErrVerificationNotFound) || errors.Is(err, ErrProfileNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to apply verification decision: %w", err)
	}
	return nil
}

func (s *FirestoreStorage) DeleteVerificationRequest(ctx context.Context, id string) error {
	ref := s.client.Collection(VerificationsCollection).Doc(id)
	if _, err := ref.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrVerificationNotFound
		}
		return fmt.Errorf("failed to delete verification request: %w", err)
	}
	return nil
}

// Ping reads a sentinel document. A missing document still proves the
// backend is reachable.
func (s *FirestoreStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.client.Collection(UsersCollection).Doc("_health").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore unreachable: %w", err)
	}
	return nil
}

// Close closes the Firestore client
func (s *FirestoreStorage) Close() error {
	return s.client.Close()
}
