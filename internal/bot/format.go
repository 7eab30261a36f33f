package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"streak-keeper/internal/model"
	"streak-keeper/internal/service"
	"streak-keeper/internal/streak"
)

const (
	cbDonePrefix       = "done:"
	cbDeletePrefix     = "delete:"
	cbMilestonesPrefix = "ms:"
)

const (
	btnConfirm          = "✅ Подтвердить"
	btnCancel           = "↩️ Отмена"
	btnCancelDialog     = "⏪ Отменить ввод"
	menuLabelStreaks    = "🔥 Серии"
	menuLabelAdd        = "➕ Категория"
	menuLabelStats      = "📊 Статистика"
	menuLabelMilestones = "🏆 Рубежи"
	menuLabelHelp       = "ℹ️ Помощь"
)

// formatStreakList renders the category overview and one row of buttons per
// category. Categories already done today get no "done" button.
func formatStreakList(categories []model.Category, now time.Time) (string, [][]tgbotapi.InlineKeyboardButton) {
	var builder strings.Builder
	builder.WriteString("🔥 <b>Серии</b>\n")
	builder.WriteString("Нажми на кнопку, чтобы отметить сегодняшний день.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		builder.WriteString(service.FormatCategoryLine(c, now))

		var row []tgbotapi.InlineKeyboardButton
		if !streak.AchievedToday(c, now) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ #%d · %s", c.ID, shortName(c.Name, 20)),
				fmt.Sprintf("%s%d", cbDonePrefix, c.ID),
			))
		}
		row = append(row,
			tgbotapi.NewInlineKeyboardButtonData("🏆", fmt.Sprintf("%s%d", cbMilestonesPrefix, c.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, c.ID)),
		)
		buttons = append(buttons, row)
	}
	return strings.TrimSpace(builder.String()), buttons
}

func formatStats(stats streak.Stats) string {
	var builder strings.Builder
	builder.WriteString("📊 <b>Статистика</b>\n")
	builder.WriteString(fmt.Sprintf("• Сумма серий: <b>%d</b>\n", stats.Total))
	builder.WriteString(fmt.Sprintf("• Лучшая серия: <b>%d</b>\n", stats.Max))
	builder.WriteString(fmt.Sprintf("• Отмечено сегодня: <b>%d/%d</b>", stats.ActiveToday, stats.Count))
	return builder.String()
}

func formatMilestones(c model.Category) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🏆 <b>%s</b> — 🔥 %d\n", escape(normalizeName(c.Name)), c.Streak))
	for _, p := range streak.MilestoneProgress(c.Streak) {
		status := fmt.Sprintf("%d%%", p.Percent)
		if p.Achieved {
			status = "достигнуто"
		}
		builder.WriteString(fmt.Sprintf("%s %s · %s %s\n", p.Emoji, p.Label, progressBar(p.Percent), status))
	}
	if next, ok := streak.NextMilestone(c.Streak); ok {
		builder.WriteString(fmt.Sprintf("До «%s» осталось %d дн.", next.Label, next.Days-c.Streak))
	}
	return strings.TrimSpace(builder.String())
}

// progressBar draws ten cells, one per 10%.
func progressBar(percent int) string {
	filled := percent / 10
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func formatNotification(title, message string) string {
	return fmt.Sprintf("<b>%s</b>\n%s", escape(title), escape(message))
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(value), nil
}

func parseCallbackID(data, prefix string) (uint, error) {
	return parseID(strings.TrimPrefix(data, prefix))
}

// splitIDAndRest parses "12 new name" into 12 and "new name".
func splitIDAndRest(args string) (uint, string, error) {
	args = strings.TrimSpace(args)
	head, rest, _ := strings.Cut(args, " ")
	id, err := parseID(head)
	if err != nil {
		return 0, "", err
	}
	return id, strings.TrimSpace(rest), nil
}

func shortName(name string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(name, "\n", " "))
	clean = normalizeName(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "подтвердить" || value == "да"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "отмена"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirm),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStreaks),
			tgbotapi.NewKeyboardButton(menuLabelAdd),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelMilestones),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}
