package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

// CategoryLister is what reports need from the tracker.
type CategoryLister interface {
	Categories() []model.Category
}

// ReportService builds human-readable summaries for Telegram messages (HTML parse mode).
type ReportService struct {
	categories CategoryLister
}

func NewReportService(categories CategoryLister) *ReportService {
	return &ReportService{categories: categories}
}

// DailySummary lists every category with today's state and the aggregate stats.
func (s *ReportService) DailySummary(now time.Time) string {
	categories := s.categories.Categories()

	var builder strings.Builder
	builder.WriteString("📋 <b>Сводка серий</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	if len(categories) == 0 {
		builder.WriteString("— категорий пока нет, добавь через /add\n")
		return strings.TrimSpace(builder.String())
	}

	for _, c := range categories {
		builder.WriteString(FormatCategoryLine(c, now))
	}

	stats := streak.Summarize(categories, now)
	builder.WriteString(fmt.Sprintf("\n📊 Всего: <b>%d</b> · Лучшая серия: <b>%d</b> · Сегодня: <b>%d/%d</b>",
		stats.Total, stats.Max, stats.ActiveToday, stats.Count))

	return strings.TrimSpace(builder.String())
}

// Reminder lists categories still open today. ok is false when everything is done.
func (s *ReportService) Reminder(now time.Time) (text string, ok bool) {
	var pending []model.Category
	for _, c := range s.categories.Categories() {
		if !streak.AchievedToday(c, now) {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return "", false
	}

	var builder strings.Builder
	builder.WriteString("⏰ <b>Сегодня ещё не отмечено</b>\n")
	for _, c := range pending {
		builder.WriteString(FormatCategoryLine(c, now))
	}
	return strings.TrimSpace(builder.String()), true
}

// FormatCategoryLine renders one category with its status icon and time left before reset.
func FormatCategoryLine(c model.Category, now time.Time) string {
	var sb strings.Builder

	name := html.EscapeString(strings.TrimSpace(c.Name))
	switch {
	case streak.AchievedToday(c, now):
		sb.WriteString(fmt.Sprintf("✅ <b>#%d</b> %s — 🔥 %d", c.ID, name, c.Streak))
	case c.LastLogin == nil:
		sb.WriteString(fmt.Sprintf("💤 <b>#%d</b> %s — серии нет", c.ID, name))
	default:
		sb.WriteString(fmt.Sprintf("⏳ <b>#%d</b> %s — 🔥 %d", c.ID, name, c.Streak))
		if remaining, ok := streak.TimeUntilReset(c, now); ok {
			if remaining > 0 {
				sb.WriteString(fmt.Sprintf("\n   до сброса %s", FormatRemaining(remaining)))
			} else {
				sb.WriteString("\n   сброс ожидается в полночь")
			}
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

// FormatRemaining renders a duration as "5 ч 03 мин".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%d мин", minutes)
	}
	return fmt.Sprintf("%d ч %02d мин", hours, minutes)
}
