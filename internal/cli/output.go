package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit writes data as JSON, or text as-is in text mode.
func (f *OutputFormatter) Emit(data interface{}, text string) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	_, err := fmt.Fprintln(f.Writer, strings.TrimRight(text, "\n"))
	return err
}

func categoryLine(c model.Category, now time.Time) string {
	status := "  "
	if streak.AchievedToday(c, now) {
		status = "✓ "
	}
	line := fmt.Sprintf("%s#%-3d %-20s %4d", status, c.ID, c.Name, c.Streak)
	if remaining, ok := streak.TimeUntilReset(c, now); ok {
		if remaining > 0 {
			line += fmt.Sprintf("   reset in %s", remaining.Truncate(time.Minute))
		} else {
			line += "   reset due"
		}
	}
	return line
}

func categoryLines(categories []model.Category, now time.Time) string {
	if len(categories) == 0 {
		return "no categories"
	}
	lines := make([]string, 0, len(categories))
	for _, c := range categories {
		lines = append(lines, categoryLine(c, now))
	}
	return strings.Join(lines, "\n")
}

func statsText(s streak.Stats) string {
	return fmt.Sprintf("total %d, best %d, done today %d/%d", s.Total, s.Max, s.ActiveToday, s.Count)
}

func milestonesText(c model.Category, progress []streak.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s: %d days\n", c.ID, c.Name, c.Streak)
	for _, p := range progress {
		mark := " "
		if p.Achieved {
			mark = "✓"
		}
		fmt.Fprintf(&b, "  [%s] %s %-9s %3d%%\n", mark, p.Emoji, p.Label, p.Percent)
	}
	return b.String()
}

func eventsText(events []streak.Event) string {
	if len(events) == 0 {
		return ""
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		switch ev := e.(type) {
		case streak.MilestoneReached:
			lines = append(lines, fmt.Sprintf("milestone: %s reached %d days", ev.CategoryName, ev.Days))
		case streak.ResetOccurred:
			lines = append(lines, fmt.Sprintf("reset: %s lost a %d-day streak", ev.CategoryName, ev.PreviousStreak))
		}
	}
	return strings.Join(lines, "\n")
}

type eventView struct {
	Kind  streak.EventKind `json:"kind"`
	Event streak.Event     `json:"event"`
}

func eventViews(events []streak.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{Kind: e.Kind(), Event: e})
	}
	return views
}
