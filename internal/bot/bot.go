// Package bot serves the Telegram side of taskpulse: it delivers digests and
// answers a few commands from chats linked to an account.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
	"taskpulse/internal/service"
)

const cbCompletePrefix = "done:"

// Bot aggregates Telegram API with services.
type Bot struct {
	api       *tgbotapi.BotAPI
	userRepo  *repository.UserRepository
	taskSvc   *service.TaskService
	analytics *service.AnalyticsService
	digest    *service.DigestService
}

// Services are the collaborators command handlers use.
type Services struct {
	Users     *repository.UserRepository
	Tasks     *service.TaskService
	Analytics *service.AnalyticsService
}

func New(token string, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, svc), nil
}

// NewWithEndpoint talks to a Bot API server other than api.telegram.org.
// endpoint must contain two %s verbs, for the token and the method.
func NewWithEndpoint(token, endpoint string, client tgbotapi.HTTPClient, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, svc), nil
}

func newBot(api *tgbotapi.BotAPI, svc Services) *Bot {
	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return &Bot{
		api:       api,
		userRepo:  svc.Users,
		taskSvc:   svc.Tasks,
		analytics: svc.Analytics,
	}
}

// SetDigest attaches the digest service after construction, since the
// digest service sends through the bot.
func (b *Bot) SetDigest(d *service.DigestService) {
	b.digest = d
}

// Send delivers an HTML message. It satisfies service.Sender.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("[warn] handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.Send(ctx, msg.Chat.ID, "Send /help to see what I can do.")
	}
	log.Printf("[info] command from chat %d: /%s", msg.Chat.ID, msg.Command())

	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(ctx, msg)
	}

	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if user == nil {
		return b.Send(ctx, msg.Chat.ID, notLinkedText(msg.Chat.ID))
	}

	switch msg.Command() {
	case "report":
		return b.handleReport(ctx, msg, user)
	case "streak":
		return b.handleStreak(ctx, msg, user)
	case "tasks":
		return b.handleListTasks(ctx, msg, user)
	case "add":
		return b.handleAdd(ctx, msg, user)
	default:
		return b.Send(ctx, msg.Chat.ID, "Unknown command. Send /help.")
	}
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	text := fmt.Sprintf(`👋 <b>taskpulse</b>

Your chat id is <code>%d</code>. Set it as <code>telegramChatId</code> in your preferences to get a daily digest.

/report — today's summary
/tasks — open tasks
/add &lt;text&gt; — create a task from plain text
/streak — completion streak`, msg.Chat.ID)
	return b.Send(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	if b.digest == nil {
		return b.Send(ctx, msg.Chat.ID, "Daily summary is not available.")
	}
	text, err := b.digest.DailySummary(ctx, *user)
	if err != nil {
		return err
	}
	return b.Send(ctx, msg.Chat.ID, text)
}

func (b *Bot) handleStreak(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	streak, err := b.analytics.StreakData(ctx, user.ID)
	if err != nil {
		return err
	}
	return b.Send(ctx, msg.Chat.ID, fmt.Sprintf("🔥 Current streak: <b>%d</b> days\n🏆 Longest: %d days\n📉 Missed in the last year: %d days",
		streak.CurrentStreak, streak.LongestStreak, len(streak.MissedDays)))
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	raw := strings.TrimSpace(msg.CommandArguments())
	if raw == "" {
		return b.Send(ctx, msg.Chat.ID, "Usage: /add buy milk tomorrow")
	}
	task, err := b.taskSvc.CreateFromText(ctx, user, raw)
	if err != nil {
		return err
	}
	log.Printf("[info] task created id=%s user=%s via telegram", task.ID, user.ID)

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("✅ Added <b>%s</b>", html.EscapeString(task.Title)))
	summary.WriteString(fmt.Sprintf("\n📂 %s · ⚡ %s", html.EscapeString(task.Category), task.Priority))
	if task.DueDate != nil {
		summary.WriteString("\n⏰ " + task.DueDate.In(b.taskSvc.Now().Location()).Format("Mon 02 Jan 15:04"))
	}
	return b.Send(ctx, msg.Chat.ID, summary.String())
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message, user *model.User) error {
	tasks, err := b.taskSvc.ListOpen(ctx, user)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.Send(ctx, msg.Chat.ID, "🎉 Nothing open.")
	}

	now := b.taskSvc.Now()
	var builder strings.Builder
	builder.WriteString("📌 <b>Open tasks</b>\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		marker := "•"
		if task.IsOverdue(now) {
			marker = "⚠️"
		}
		builder.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, html.EscapeString(task.Title)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d · %s", i+1, shortTitle(task.Title, 24)), cbCompletePrefix+task.ID),
		))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(builder.String()))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}
	if cb.Message == nil || !strings.HasPrefix(cb.Data, cbCompletePrefix) {
		return nil
	}
	chatID := cb.Message.Chat.ID

	user, err := b.linkedUser(ctx, chatID)
	if err != nil || user == nil {
		return err
	}
	taskID := strings.TrimPrefix(cb.Data, cbCompletePrefix)
	task, err := b.taskSvc.UpdateStatus(ctx, user, taskID, model.StatusCompleted)
	if errors.Is(err, service.ErrNotFound) {
		return b.Send(ctx, chatID, "That task no longer exists.")
	}
	if err != nil {
		return err
	}
	log.Printf("[info] task completed id=%s user=%s via telegram", task.ID, user.ID)
	return b.Send(ctx, chatID, fmt.Sprintf("✅ Completed <b>%s</b>", html.EscapeString(task.Title)))
}

func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := b.userRepo.FindByTelegramChat(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func notLinkedText(chatID int64) string {
	return fmt.Sprintf("This chat is not linked yet. Set <code>telegramChatId</code> to <code>%d</code> in your preferences.", chatID)
}

func shortTitle(title string, limit int) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-1]) + "…"
}
