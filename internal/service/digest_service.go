package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

// Sender delivers an HTML message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	users     *repository.UserRepository
	tasks     *repository.TaskRepository
	analytics *AnalyticsService
	sender    Sender
	clock     calendar.Clock
}

func NewDigestService(users *repository.UserRepository, tasks *repository.TaskRepository, analytics *AnalyticsService, sender Sender, clock calendar.Clock) *DigestService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &DigestService{users: users, tasks: tasks, analytics: analytics, sender: sender, clock: clock}
}

// DailySummary renders the user's streak and open tasks.
func (s *DigestService) DailySummary(ctx context.Context, user model.User) (string, error) {
	now := s.clock.Now()

	open, err := s.tasks.ListOpen(ctx, user.ID)
	if err != nil {
		return "", err
	}
	streak, err := s.analytics.StreakData(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var overdue, upcoming []model.Task
	for _, task := range open {
		if task.DueDate != nil && now.After(*task.DueDate) {
			overdue = append(overdue, task)
			continue
		}
		upcoming = append(upcoming, task)
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("Mon, 02 Jan 2006")))
	builder.WriteString(fmt.Sprintf("🔥 Streak: %d days (best %d)\n\n", streak.CurrentStreak, streak.LongestStreak))

	if len(overdue) > 0 {
		builder.WriteString("⚠️ <b>Overdue</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatTask(task, now))
		}
		builder.WriteByte('\n')
	}

	builder.WriteString("📌 <b>Open tasks</b>\n")
	if len(upcoming) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, task := range upcoming {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// SendAll delivers the summary to every user with a linked chat. A failure
// for one user is logged and does not stop the others.
func (s *DigestService) SendAll(ctx context.Context) (int, error) {
	if s.sender == nil {
		return 0, nil
	}
	users, err := s.users.ListWithTelegram(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, user := range users {
		text, err := s.DailySummary(ctx, user)
		if err != nil {
			log.Printf("[warn] build digest for %s: %v", user.ID, err)
			continue
		}
		if err := s.sender.Send(ctx, user.Preferences.TelegramChatID, text); err != nil {
			log.Printf("[warn] send digest to %s: %v", user.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch task.Priority {
	case model.PriorityHigh, model.PriorityCritical:
		icon = "🔴"
	}
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if category := strings.TrimSpace(task.Category); category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, ≈%d days left", d.Format("2006-01-02"), daysLeft))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}
