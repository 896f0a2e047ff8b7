package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Preferences are user-tunable flags.
type Preferences struct {
	DarkMode       bool  `gorm:"default:false" json:"darkMode"`
	TelegramChatID int64 `gorm:"index" json:"telegramChatId,omitempty"`
}

// User owns tasks by reference. Credentials never leave the server.
type User struct {
	ID                  string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email               string      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash        string      `gorm:"not null" json:"-"`
	Preferences         Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	ResetPasswordToken  *string     `gorm:"size:64;index" json:"-"`
	ResetPasswordExpire *time.Time  `json:"-"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
