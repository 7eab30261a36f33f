package streak

// Milestone is a fixed streak length worth celebrating.
type Milestone struct {
	Days  int
	Label string
	Emoji string
}

// Milestones are ordered ascending; callers rely on that order.
var Milestones = []Milestone{
	{Days: 7, Label: "1 неделя", Emoji: "🌱"},
	{Days: 30, Label: "1 месяц", Emoji: "🌿"},
	{Days: 100, Label: "100 дней", Emoji: "🌳"},
	{Days: 365, Label: "1 год", Emoji: "🌲"},
}

// Progress describes how far a streak is towards one milestone.
type Progress struct {
	Days     int    `json:"days"`
	Label    string `json:"label"`
	Emoji    string `json:"emoji"`
	Achieved bool   `json:"achieved"`
	Percent  int    `json:"percent"`
}

// IsMilestone reports whether days is exactly one of the thresholds.
func IsMilestone(days int) bool {
	for _, m := range Milestones {
		if m.Days == days {
			return true
		}
	}
	return false
}

// MilestoneProgress reports every threshold for the given streak length.
// Percent is rounded half up and capped at 100.
func MilestoneProgress(streak int) []Progress {
	if streak < 0 {
		streak = 0
	}
	out := make([]Progress, 0, len(Milestones))
	for _, m := range Milestones {
		// round(streak*100/days) using integers only.
		percent := (streak*200 + m.Days) / (2 * m.Days)
		if percent > 100 {
			percent = 100
		}
		out = append(out, Progress{
			Days:     m.Days,
			Label:    m.Label,
			Emoji:    m.Emoji,
			Achieved: streak >= m.Days,
			Percent:  percent,
		})
	}
	return out
}

// NextMilestone returns the first threshold above streak, or false after the last one.
func NextMilestone(streak int) (Milestone, bool) {
	for _, m := range Milestones {
		if streak < m.Days {
			return m, true
		}
	}
	return Milestone{}, false
}
