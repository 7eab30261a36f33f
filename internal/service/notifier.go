package service

import (
	"fmt"
	"log/slog"

	"streak-keeper/internal/streak"
)

// Notifier is fire-and-forget: implementations log their own failures.
type Notifier interface {
	Notify(title, message string)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(title, message string) {
	l := n.Log
	if l == nil {
		l = slog.Default()
	}
	l.Info("notification", "title", title, "message", message)
}

// Notifiers fans one notification out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(title, message string) {
	for _, n := range ns {
		n.Notify(title, message)
	}
}

// EventNotifier turns engine events into notifications; pass it to Tracker.Subscribe.
func EventNotifier(n Notifier) func(streak.Event) {
	return func(e streak.Event) {
		title, message, ok := DescribeEvent(e)
		if ok {
			n.Notify(title, message)
		}
	}
}

// DescribeEvent renders a user-facing title and message for e.
func DescribeEvent(e streak.Event) (title, message string, ok bool) {
	switch ev := e.(type) {
	case streak.MilestoneReached:
		return "🎉 Рубеж достигнут!", fmt.Sprintf("«%s»: %d дней подряд!", ev.CategoryName, ev.Days), true
	case streak.ResetOccurred:
		return "💤 Серия прервана", fmt.Sprintf("«%s»: серия из %d дн. сброшена.", ev.CategoryName, ev.PreviousStreak), true
	default:
		return "", "", false
	}
}
