package journal

import (
	"slices"
	"strings"
	"time"

	"github.com/dgellow/ortho-diary/internal/storage"
)

// DayGroup holds the photos taken on one calendar day.
type DayGroup struct {
	Date   string          `json:"date"`
	Photos []storage.Photo `json:"photos"`
}

// GroupByDate groups photos by calendar day in loc, newest day first.
// Photos keep their relative order within a day.
func GroupByDate(photos []storage.Photo, loc *time.Location, starredOnly bool) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	var groups []DayGroup
	index := make(map[string]int)
	for _, p := range photos {
		if starredOnly && !p.IsStarred {
			continue
		}
		day := p.Timestamp.In(loc).Format(time.DateOnly)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Date: day})
		}
		groups[i].Photos = append(groups[i].Photos, p)
	}

	// DateOnly strings sort chronologically.
	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		return strings.Compare(b.Date, a.Date)
	})
	return groups
}
