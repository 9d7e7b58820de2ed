package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Photos(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	older, err := s.CreatePhoto(ctx, &Photo{Data: "data:a", Timestamp: base, UserID: "kakao_1"})
	require.NoError(t, err)
	newer, err := s.CreatePhoto(ctx, &Photo{Data: "data:b", Timestamp: base.Add(time.Hour), UserID: "kakao_1"})
	require.NoError(t, err)
	_, err = s.CreatePhoto(ctx, &Photo{Data: "data:c", Timestamp: base, UserID: "naver_2"})
	require.NoError(t, err)
	assert.NotEqual(t, older, newer)

	photos, err := s.ListPhotos(ctx, "kakao_1")
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.Equal(t, newer, photos[0].ID)
	assert.Equal(t, older, photos[1].ID)

	memo := "브라켓 교체"
	starred := true
	require.NoError(t, s.UpdatePhoto(ctx, older, PhotoUpdate{Memo: &memo, IsStarred: &starred}))

	got, err := s.GetPhoto(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, memo, got.Memo)
	assert.True(t, got.IsStarred)

	// Returned copies are detached from the store.
	got.Memo = "changed"
	again, err := s.GetPhoto(ctx, older)
	require.NoError(t, err)
	assert.Equal(t, memo, again.Memo)

	require.NoError(t, s.SoftDeletePhoto(ctx, older, base.Add(2*time.Hour)))
	_, err = s.GetPhoto(ctx, older)
	assert.ErrorIs(t, err, ErrPhotoNotFound)
	assert.ErrorIs(t, s.UpdatePhoto(ctx, older, PhotoUpdate{Memo: &memo}), ErrPhotoNotFound)
	assert.ErrorIs(t, s.SoftDeletePhoto(ctx, older, base), ErrPhotoNotFound)

	photos, err = s.ListPhotos(ctx, "kakao_1")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, newer, photos[0].ID)
}

func TestMemoryStorage_PurgeDeletedPhotos(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	deletedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	id, err := s.CreatePhoto(ctx, &Photo{Data: "data:a", UserID: "u"})
	require.NoError(t, err)
	_, err = s.CreatePhoto(ctx, &Photo{Data: "data:b", UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, s.SoftDeletePhoto(ctx, id, deletedAt))

	n, err := s.PurgeDeletedPhotos(ctx, deletedAt)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "cutoff is exclusive")

	n, err = s.PurgeDeletedPhotos(ctx, deletedAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	photos, err := s.ListPhotos(ctx, "u")
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestMemoryStorage_Verification(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.GetProfile(ctx, "naver_9")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	profile := &UserProfile{
		UID:      "naver_9",
		UserType: UserTypeDoctor,
		DoctorInfo: &DoctorInfo{
			LicenseNumber:      "12345",
			Specialization:     []string{"교정과"},
			VerificationStatus: VerificationPending,
		},
	}
	first, err := s.SubmitVerification(ctx, &VerificationRequest{
		UserID:      "naver_9",
		Status:      VerificationPending,
		SubmittedAt: now,
	}, profile)
	require.NoError(t, err)
	second, err := s.SubmitVerification(ctx, &VerificationRequest{
		UserID:      "naver_9",
		Status:      VerificationRejected,
		SubmittedAt: now.Add(time.Minute),
	}, profile)
	require.NoError(t, err)

	stored, err := s.GetProfile(ctx, "naver_9")
	require.NoError(t, err)
	assert.Equal(t, UserTypeDoctor, stored.UserType)
	stored.DoctorInfo.Specialization[0] = "mutated"

	again, err := s.GetProfile(ctx, "naver_9")
	require.NoError(t, err)
	assert.Equal(t, "교정과", again.DoctorInfo.Specialization[0])

	all, err := s.ListVerificationRequests(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID)

	pending, err := s.ListVerificationRequests(ctx, VerificationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first, pending[0].ID)

	req, err := s.GetVerificationRequest(ctx, first)
	require.NoError(t, err)
	req.Status = VerificationApproved
	again.DoctorInfo.IsVerified = true
	require.NoError(t, s.ApplyVerificationDecision(ctx, req, again))

	req, err = s.GetVerificationRequest(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, VerificationApproved, req.Status)

	missing := &VerificationRequest{ID: "nope"}
	assert.ErrorIs(t, s.ApplyVerificationDecision(ctx, missing, again), ErrVerificationNotFound)

	require.NoError(t, s.DeleteVerificationRequest(ctx, first))
	assert.ErrorIs(t, s.DeleteVerificationRequest(ctx, first), ErrVerificationNotFound)
	_, err = s.GetVerificationRequest(ctx, first)
	assert.ErrorIs(t, err, ErrVerificationNotFound)
}
