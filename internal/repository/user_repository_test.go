package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
	"taskpulse/internal/repository/repotest"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := repository.NewUserRepository(repotest.NewDB(t, nil))
	ctx := context.Background()

	user := model.User{Email: "  Jane@Example.COM ", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, &user))
	assert.Equal(t, "jane@example.com", user.Email)

	got, err := repo.FindByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)

	dup := model.User{Email: "jane@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrDuplicate)

	_, err = repo.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestUserRepository_ResetTokens(t *testing.T) {
	repo := repository.NewUserRepository(repotest.NewDB(t, nil))
	ctx := context.Background()
	now := time.Date(2025, time.August, 10, 12, 0, 0, 0, time.UTC)

	user := model.User{Email: "a@b.io", PasswordHash: "old"}
	require.NoError(t, repo.Create(ctx, &user))
	require.NoError(t, repo.SetResetToken(ctx, &user, "abc", now.Add(10*time.Minute)))

	got, err := repo.FindByResetToken(ctx, "abc", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.FindByResetToken(ctx, "abc", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	cleared, err := repo.ClearExpiredResetTokens(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	_, err = repo.FindByResetToken(ctx, "abc", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, got, "new"))
	fresh, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", fresh.PasswordHash)
	assert.Nil(t, fresh.ResetPasswordToken)
}

func TestUserRepository_Preferences(t *testing.T) {
	repo := repository.NewUserRepository(repotest.NewDB(t, nil))
	ctx := context.Background()

	linked := model.User{Email: "one@b.io", PasswordHash: "h"}
	plain := model.User{Email: "two@b.io", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, &linked))
	require.NoError(t, repo.Create(ctx, &plain))

	require.NoError(t, repo.UpdatePreferences(ctx, &linked, model.Preferences{DarkMode: true, TelegramChatID: 777}))

	users, err := repo.ListWithTelegram(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, linked.ID, users[0].ID)
	assert.True(t, users[0].Preferences.DarkMode)
	assert.EqualValues(t, 777, users[0].Preferences.TelegramChatID)
}

func TestUserRepository_MySQLFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := repository.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), nil)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE email = ?")).
		WillReturnError(assert.AnError)

	_, err = repository.NewUserRepository(db).FindByEmail(context.Background(), "X@y.z")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}
