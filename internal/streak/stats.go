package streak

import (
	"time"

	"streak-keeper/internal/model"
)

// Stats are aggregate numbers over the whole collection, recomputed on demand.
type Stats struct {
	Total       int `json:"total"`
	Max         int `json:"max"`
	ActiveToday int `json:"activeToday"`
	Count       int `json:"count"`
}

// Summarize computes Stats for categories as of now.
func Summarize(categories []model.Category, now time.Time) Stats {
	stats := Stats{Count: len(categories)}
	for _, c := range categories {
		stats.Total += c.Streak
		if c.Streak > stats.Max {
			stats.Max = c.Streak
		}
		if AchievedToday(c, now) {
			stats.ActiveToday++
		}
	}
	return stats
}
