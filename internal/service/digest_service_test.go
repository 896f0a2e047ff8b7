package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
	"taskpulse/internal/repository/repotest"
)

type recordingSender struct {
	chats []int64
	texts []string
	err   error
}

func (r *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	if r.err != nil {
		return r.err
	}
	r.chats = append(r.chats, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func TestDigestService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.August, 15, 12, 0, 0, 0, time.UTC)
	db := repotest.NewDB(t, nil)
	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)

	linked := &model.User{Email: "a@b.co", PasswordHash: "x", Preferences: model.Preferences{TelegramChatID: 42}}
	require.NoError(t, users.Create(ctx, linked))
	require.NoError(t, users.Create(ctx, &model.User{Email: "c@d.co", PasswordHash: "x"}))

	yesterday := now.AddDate(0, 0, -1)
	nextWeek := now.AddDate(0, 0, 7)
	for _, task := range []model.Task{
		{UserID: linked.ID, Title: "Pay <rent>", Category: "finance", DueDate: &yesterday},
		{UserID: linked.ID, Title: "Plan trip", DueDate: &nextWeek},
		{UserID: linked.ID, Title: "Done already", Status: model.StatusCompleted, UpdatedAt: now.Add(-time.Hour)},
	} {
		task := task
		require.NoError(t, tasks.Create(ctx, &task))
	}

	sender := &recordingSender{}
	analytics := NewAnalyticsService(tasks, fixedAt(now))
	digest := NewDigestService(users, tasks, analytics, sender, fixedAt(now))

	text, err := digest.DailySummary(ctx, *linked)
	require.NoError(t, err)
	assert.Contains(t, text, "Fri, 15 Aug 2025")
	assert.Contains(t, text, "Streak: 1 days")
	assert.Contains(t, text, "<b>Overdue</b>")
	assert.Contains(t, text, "Pay &lt;rent&gt; <i>(finance)</i>")
	assert.Contains(t, text, "Plan trip")
	assert.NotContains(t, text, "Done already")

	sent, err := digest.SendAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{42}, sender.chats)

	sender.err = errors.New("blocked by user")
	sent, err = digest.SendAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestDigestService_NoSender(t *testing.T) {
	digest := NewDigestService(nil, nil, nil, nil, nil)
	sent, err := digest.SendAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}
