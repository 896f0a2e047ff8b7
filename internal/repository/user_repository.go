package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"taskpulse/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", translate(err))
	}
	return &user, nil
}

// FindByEmail matches case-insensitively; emails are stored lowercase.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", translate(err))
	}
	return &user, nil
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, user *model.User, prefs model.Preferences) error {
	updates := map[string]interface{}{
		"pref_dark_mode":        prefs.DarkMode,
		"pref_telegram_chat_id": prefs.TelegramChatID,
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	user.Preferences = prefs
	return nil
}

// SetResetToken stores the hashed reset token and its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, user *model.User, hashed string, expires time.Time) error {
	updates := map[string]interface{}{
		"reset_password_token":  hashed,
		"reset_password_expire": expires.UTC(),
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// FindByResetToken returns the user holding an unexpired hashed token.
func (r *UserRepository) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", hashed, now.UTC()).
		First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", translate(err))
	}
	return &user, nil
}

// UpdatePassword replaces the hash and clears any reset token.
func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, hash string) error {
	updates := map[string]interface{}{
		"password_hash":         hash,
		"reset_password_token":  nil,
		"reset_password_expire": nil,
	}
	if err := r.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = hash
	user.ResetPasswordToken = nil
	user.ResetPasswordExpire = nil
	return nil
}

// ClearExpiredResetTokens drops reset tokens that expired before now.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("reset_password_token IS NOT NULL AND reset_password_expire <= ?", now.UTC()).
		Updates(map[string]interface{}{
			"reset_password_token":  nil,
			"reset_password_expire": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("clear reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListWithTelegram returns users that linked a Telegram chat.
func (r *UserRepository) ListWithTelegram(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("pref_telegram_chat_id <> 0").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list telegram users: %w", err)
	}
	return users, nil
}

// FindByTelegramChat returns the user that linked chatID.
func (r *UserRepository) FindByTelegramChat(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("pref_telegram_chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user by chat: %w", translate(err))
	}
	return &user, nil
}
