package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"streak-keeper/internal/config"
	"streak-keeper/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageAddName
	stageRenameName
)

type conversationState struct {
	stage      conversationStage
	categoryID uint
}

// Bot aggregates Telegram API with the tracker.
type Bot struct {
	api     *tgbotapi.BotAPI
	tracker *service.Tracker
	reports *service.ReportService
	log     *slog.Logger

	// chatID is where notifications and scheduled reports go.
	chatID atomic.Int64

	conversations map[int64]*conversationState
	confirmations map[int64]uint
	mu            sync.Mutex
}

func New(token string, tracker *service.Tracker, reports *service.ReportService, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Info("bot authorized", "account", api.Self.UserName)

	b := &Bot{
		api:           api,
		tracker:       tracker,
		reports:       reports,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]uint),
	}
	b.chatID.Store(cfg.TelegramChatID)
	return b, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", "err", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", "err", err)
			}
		}
	}

	return nil
}

// Notify implements service.Notifier by messaging the owner chat.
func (b *Bot) Notify(title, message string) {
	chatID := b.chatID.Load()
	if chatID == 0 {
		b.log.Debug("notification dropped, no chat yet", "title", title)
		return
	}
	if err := b.sendText(chatID, formatNotification(title, message)); err != nil {
		b.log.Warn("send notification", "err", err)
	}
}

// SendDailyReport pushes the summary of all categories to the owner chat.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := b.chatID.Load()
	if chatID == 0 {
		return nil
	}
	return b.sendText(chatID, b.reports.DailySummary(b.tracker.Now()))
}

// SendReminder nudges about categories still open today. Nothing is sent when all are done.
func (b *Bot) SendReminder(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID := b.chatID.Load()
	if chatID == 0 {
		return nil
	}
	text, ok := b.reports.Reminder(b.tracker.Now())
	if !ok {
		return nil
	}
	return b.sendText(chatID, text)
}

// authorize binds the first private chat when no owner is configured and
// rejects every other chat afterwards.
func (b *Bot) authorize(chatID int64) bool {
	if b.chatID.CompareAndSwap(0, chatID) {
		b.log.Info("bound notifications to chat", "chat", chatID)
		return true
	}
	return b.chatID.Load() == chatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !b.authorize(msg.Chat.ID) {
		b.log.Warn("message from foreign chat ignored", "chat", msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "🔒 Это личный бот, команды доступны только владельцу.")
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", "user", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /streaks, чтобы увидеть серии, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "streaks", "list":
		return b.sendStreakList(msg.Chat.ID)
	case "done":
		return b.handleDone(ctx, msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "rename":
		return b.handleRename(ctx, msg)
	case "delete":
		return b.handleDelete(msg)
	case "stats":
		return b.sendText(msg.Chat.ID, formatStats(b.tracker.Stats()))
	case "milestones":
		return b.handleMilestones(msg)
	case "report":
		return b.sendText(msg.Chat.ID, b.reports.DailySummary(b.tracker.Now()))
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я считаю ежедневные серии: отмечай каждый день, и огонёк не погаснет.</b>\n\n"+
			"Если пропустить целый день, серия сгорит в полночь.\n\n"+
			"• /streaks — серии и кнопки отметки\n"+
			"• /add — новая категория\n"+
			"• /stats — общая статистика\n"+
			"• /help — все команды",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /streaks — показать серии и отметить день по кнопке\n" +
		"• /done &lt;id&gt; — отметить категорию по номеру (например, /done 2)\n" +
		"• /add &lt;название&gt; — добавить категорию\n" +
		"• /rename &lt;id&gt; &lt;название&gt; — переименовать, серия сохранится\n" +
		"• /delete &lt;id&gt; — удалить категорию вместе с серией\n" +
		"• /stats — сумма, лучшая серия и отметки за сегодня\n" +
		"• /milestones [id] — прогресс до рубежей 7/30/100/365\n" +
		"• /report — сводка, как в ежедневном отчёте\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendStreakList(msg.Chat.ID)
	}
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи номер категории, например: /done 2")
	}
	text, _ := b.complete(ctx, id)
	return b.sendText(msg.Chat.ID, text)
}

// complete records today's achievement and returns the reply text.
// Milestone announcements arrive separately through the event subscription.
func (b *Bot) complete(ctx context.Context, id uint) (string, error) {
	before, err := b.tracker.Get(id)
	if err != nil {
		return describeError(err), err
	}
	updated, _, err := b.tracker.Complete(ctx, id)
	if err != nil {
		b.log.Error("complete category", "id", id, "err", err)
		return describeError(err), err
	}
	name := escape(normalizeName(updated.Name))
	if before.LastLogin != nil && updated.LastLogin != nil && before.LastLogin.Equal(*updated.LastLogin) {
		return fmt.Sprintf("👌 «%s» уже отмечена сегодня. 🔥 %d", name, updated.Streak), nil
	}
	return fmt.Sprintf("✅ «%s» отмечена! 🔥 %d", name, updated.Streak), nil
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.CommandArguments())
	if name == "" {
		b.setConversation(msg.From.ID, &conversationState{stage: stageAddName})
		return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Как назвать новую категорию?", cancelKeyboard())
	}
	return b.createCategory(ctx, msg.Chat.ID, name)
}

func (b *Bot) createCategory(ctx context.Context, chatID int64, name string) error {
	if _, err := b.tracker.Create(ctx, name); err != nil {
		return b.sendText(chatID, describeError(err))
	}
	// The tracker notifier already announces the new category.
	return b.sendStreakList(chatID)
}

func (b *Bot) handleRename(ctx context.Context, msg *tgbotapi.Message) error {
	id, name, err := splitIDAndRest(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Формат: /rename &lt;id&gt; &lt;новое название&gt;")
	}
	if _, err := b.tracker.Get(id); err != nil {
		return b.sendText(msg.Chat.ID, describeError(err))
	}
	if name == "" {
		b.setConversation(msg.From.ID, &conversationState{stage: stageRenameName, categoryID: id})
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Введи новое название.", cancelKeyboard())
	}
	return b.renameCategory(ctx, msg.Chat.ID, id, name)
}

func (b *Bot) renameCategory(ctx context.Context, chatID int64, id uint, name string) error {
	if _, err := b.tracker.Rename(ctx, id, name); err != nil {
		return b.sendText(chatID, describeError(err))
	}
	return nil
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
	}

	switch state.stage {
	case stageAddName:
		b.clearConversation(msg.From.ID)
		return b.createCategory(ctx, msg.Chat.ID, text)
	case stageRenameName:
		b.clearConversation(msg.From.ID)
		if err := b.renameCategory(ctx, msg.Chat.ID, state.categoryID, text); err != nil {
			return err
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, "Готово.", mainMenuKeyboard())
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) handleDelete(msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи номер категории, например: /delete 3")
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From.ID, id)
}

func (b *Bot) askDeleteConfirmation(chatID, userID int64, id uint) error {
	c, err := b.tracker.Get(id)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	b.setConfirmation(userID, id)
	text := fmt.Sprintf("🗑 Удалить «%s» вместе с серией 🔥 %d?", escape(normalizeName(c.Name)), c.Streak)
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, id uint) error {
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		if _, err := b.tracker.Delete(ctx, id); err != nil {
			return b.sendText(msg.Chat.ID, describeError(err))
		}
		return b.sendWithReplyMarkup(msg.Chat.ID, "Готово.", mainMenuKeyboard())
	case isCancelInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Удаление отменено.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Нажми «Подтвердить» или «Отмена».", confirmKeyboard())
	}
}

func (b *Bot) handleMilestones(msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args != "" {
		id, err := parseID(args)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Укажи номер категории, например: /milestones 1")
		}
		return b.sendMilestones(msg.Chat.ID, id)
	}

	categories := b.tracker.Categories()
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категорий пока нет. Добавь первую через /add.")
	}
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, formatMilestones(c))
	}
	return b.sendText(msg.Chat.ID, strings.Join(parts, "\n\n"))
}

func (b *Bot) sendMilestones(chatID int64, id uint) error {
	c, err := b.tracker.Get(id)
	if err != nil {
		return b.sendText(chatID, describeError(err))
	}
	return b.sendText(chatID, formatMilestones(c))
}

func (b *Bot) sendStreakList(chatID int64) error {
	categories := b.tracker.Categories()
	if len(categories) == 0 {
		return b.sendText(chatID, "Категорий пока нет. Добавь первую через /add.")
	}
	text, buttons := formatStreakList(categories, b.tracker.Now())
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.From == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	if !b.authorize(chatID) {
		return b.answerCallback(cb.ID, "Нет доступа")
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		id, err := parseCallbackID(data, cbDonePrefix)
		if err != nil {
			return b.answerCallback(cb.ID, "Некорректная категория")
		}
		text, err := b.complete(ctx, id)
		if ackErr := b.answerCallback(cb.ID, stripTags(text)); ackErr != nil {
			b.log.Warn("answer callback", "err", ackErr)
		}
		if err != nil {
			return nil
		}
		return b.refreshStreakList(cb.Message)
	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := parseCallbackID(data, cbDeletePrefix)
		if err != nil {
			return b.answerCallback(cb.ID, "Некорректная категория")
		}
		if err := b.answerCallback(cb.ID, ""); err != nil {
			b.log.Warn("answer callback", "err", err)
		}
		return b.askDeleteConfirmation(chatID, cb.From.ID, id)
	case strings.HasPrefix(data, cbMilestonesPrefix):
		id, err := parseCallbackID(data, cbMilestonesPrefix)
		if err != nil {
			return b.answerCallback(cb.ID, "Некорректная категория")
		}
		if err := b.answerCallback(cb.ID, ""); err != nil {
			b.log.Warn("answer callback", "err", err)
		}
		return b.sendMilestones(chatID, id)
	default:
		return b.answerCallback(cb.ID, "Неизвестное действие")
	}
}

// refreshStreakList edits the list message in place so the buttons reflect today's state.
func (b *Bot) refreshStreakList(msg *tgbotapi.Message) error {
	categories := b.tracker.Categories()
	text, buttons := formatStreakList(categories, b.tracker.Now())
	edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit streak list: %w", err)
	}
	return nil
}

func (b *Bot) answerCallback(id, text string) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelStreaks:
		return true, b.sendStreakList(msg.Chat.ID)
	case menuLabelAdd:
		b.setConversation(msg.From.ID, &conversationState{stage: stageAddName})
		return true, b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Как назвать новую категорию?", cancelKeyboard())
	case menuLabelStats:
		return true, b.sendText(msg.Chat.ID, formatStats(b.tracker.Stats()))
	case menuLabelMilestones:
		return true, b.handleMilestones(msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	}
	return false, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendWithReplyMarkup(chatID, text, mainMenuKeyboard())
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	message := tgbotapi.NewMessage(chatID, text)
	message.ParseMode = tgbotapi.ModeHTML
	message.ReplyMarkup = markup
	if _, err := b.api.Send(message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.conversations[userID]
	return ok && state.stage != stageNone
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func (b *Bot) setConfirmation(userID int64, id uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = id
}

func (b *Bot) getConfirmation(userID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[userID]
	return id, ok
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		return "Категория с таким номером не найдена. Посмотри список в /streaks."
	case errors.Is(err, service.ErrEmptyName):
		return "Название не может быть пустым."
	default:
		return "Не удалось сохранить изменения, попробуй позже."
	}
}

// stripTags drops the HTML markup for plain-text callback toasts.
func stripTags(text string) string {
	var builder strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			builder.WriteRune(r)
		}
	}
	return strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&#34;", "\"", "&#39;", "'").Replace(builder.String())
}

var _ service.Notifier = (*Bot)(nil)
