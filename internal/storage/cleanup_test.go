package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeManager_PurgeUsesRetention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	old, err := s.CreatePhoto(ctx, &Photo{UserID: "u"})
	require.NoError(t, err)
	recent, err := s.CreatePhoto(ctx, &Photo{UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, s.SoftDeletePhoto(ctx, old, now.Add(-48*time.Hour)))
	require.NoError(t, s.SoftDeletePhoto(ctx, recent, now.Add(-time.Hour)))

	pm := NewPurgeManager(s, time.Hour, 24*time.Hour)
	pm.now = func() time.Time { return now }

	assert.Equal(t, 1, pm.purge(ctx))
	assert.Equal(t, 0, pm.purge(ctx))
}

func TestPurgeManager_ZeroRetentionKeepsDeleted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	id, err := s.CreatePhoto(ctx, &Photo{UserID: "u"})
	require.NoError(t, err)
	require.NoError(t, s.SoftDeletePhoto(ctx, id, now.AddDate(0, 0, -31)))

	pm := NewPurgeManager(s, time.Hour, 0)
	pm.now = func() time.Time { return now }
	assert.Equal(t, 0, pm.purge(ctx))

	s.photosMutex.RLock()
	kept, ok := s.photos[id]
	s.photosMutex.RUnlock()
	require.True(t, ok, "soft-deleted record must stay in the store")
	assert.True(t, kept.Deleted)
	require.NotNil(t, kept.DeletedAt)
}

func TestPurgeManager_StartStop(t *testing.T) {
	s := NewMemoryStorage()
	pm := NewPurgeManager(s, time.Millisecond, time.Hour)
	pm.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	pm.Stop()
}
