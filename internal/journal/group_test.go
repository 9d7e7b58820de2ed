package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgellow/ortho-diary/internal/storage"
)

func TestGroupByDate(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	photos := []storage.Photo{
		{ID: "d", Timestamp: time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)}, // 11th in KST
		{ID: "c", Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), IsStarred: true},
		{ID: "b", Timestamp: time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)},
		{ID: "a", Timestamp: time.Date(2024, 3, 8, 1, 0, 0, 0, time.UTC), IsStarred: true},
	}

	groups := GroupByDate(photos, kst, false)
	require.Len(t, groups, 3)
	assert.Equal(t, "2024-03-11", groups[0].Date)
	assert.Equal(t, "2024-03-10", groups[1].Date)
	assert.Equal(t, "2024-03-08", groups[2].Date)

	var ids []string
	for _, p := range groups[1].Photos {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"c", "b"}, ids)

	starred := GroupByDate(photos, kst, true)
	require.Len(t, starred, 2)
	assert.Equal(t, "2024-03-10", starred[0].Date)
	assert.Len(t, starred[0].Photos, 1)

	assert.Empty(t, GroupByDate(nil, kst, false))
}
