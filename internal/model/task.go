package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusArchived   = "archived"
)

// Task priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityNormal   = "normal"
	PriorityCritical = "critical"
)

// Recurrence values.
const (
	RecurNone    = "none"
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

const DefaultCategory = "general"

// AIMetadata keeps what the parser inferred when a task was created from free text.
type AIMetadata struct {
	ParsedDescription string   `json:"parsedDescription,omitempty"`
	SuggestedPriority string   `json:"suggestedPriority,omitempty"`
	SuggestedCategory string   `json:"suggestedCategory,omitempty"`
	UrgencyScore      float64  `json:"urgencyScore,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	Confidence        float64  `json:"confidence,omitempty"`
}

// Task represents a single item owned by a user. A completed task's
// UpdatedAt is its completion time.
type Task struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string         `gorm:"type:varchar(36);index;index:idx_task_user_status,priority:1;index:idx_task_user_category,priority:1" json:"userId"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `json:"description"`
	Category    string         `gorm:"size:100;index:idx_task_user_category,priority:2" json:"category"`
	Priority    string         `gorm:"size:16;default:normal" json:"priority"`
	Status      string         `gorm:"size:16;default:pending;index:idx_task_user_status,priority:2" json:"status"`
	DueDate     *time.Time     `gorm:"index" json:"dueDate"`
	Recurrence  string         `gorm:"size:16;default:none" json:"recurrence"`
	AIMetadata  *AIMetadata    `gorm:"serializer:json" json:"aiMetadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"index" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps the category lowercase.
func (t *Task) BeforeSave(tx *gorm.DB) error {
	t.Category = NormalizeCategory(t.Category)
	return nil
}

// IsOverdue reports whether a pending task is past its due date.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.Status == StatusPending && now.After(*t.DueDate)
}

func NormalizeCategory(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityNormal, PriorityCritical:
		return true
	}
	return false
}

func ValidRecurrence(r string) bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}
