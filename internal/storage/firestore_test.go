package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirestoreStorageConfig(t *testing.T) {
	t.Run("missing GCP project ID", func(t *testing.T) {
		_, err := NewFirestoreStorage(context.Background(), "", "(default)")
		assert.Error(t, err, "Expected error when GCP project ID is missing for Firestore storage")
		assert.Contains(t, err.Error(), "projectID is required")
	})
}

func TestPhotoDocConversion(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 5, 123_000_000, time.FixedZone("KST", 9*3600))
	deletedAt := ts.Add(time.Hour)

	doc := photoToDoc(&Photo{
		Data:      "data:image/jpeg;base64,AAAA",
		Timestamp: ts,
		Memo:      "첫 교정",
		IsStarred: true,
		UserID:    "kakao_1",
		Deleted:   true,
		DeletedAt: &deletedAt,
	})

	assert.Equal(t, "2024-03-09T05:30:05.123Z", doc.Timestamp)
	assert.Equal(t, "2024-03-09T06:30:05.123Z", doc.DeletedAt)

	back, err := doc.toPhoto("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", back.ID)
	assert.True(t, ts.Equal(back.Timestamp))
	require.NotNil(t, back.DeletedAt)
	assert.True(t, deletedAt.Equal(*back.DeletedAt))
	assert.Equal(t, "첫 교정", back.Memo)
	assert.True(t, back.IsStarred)
}

func TestPhotoDocConversion_BadTimestamp(t *testing.T) {
	doc := photoDoc{Timestamp: "yesterday"}
	_, err := doc.toPhoto("abc")
	assert.Error(t, err)
}
