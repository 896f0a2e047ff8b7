package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"taskpulse/internal/calendar"
	"taskpulse/internal/model"
	"taskpulse/internal/parser"
	"taskpulse/internal/repository"
)

const maxTitleLen = 200

func titleTooLong(title string) bool {
	return utf8.RuneCountInString(title) > maxTitleLen
}

// clipTitle cuts title to maxTitleLen characters.
func clipTitle(title string) string {
	if !titleTooLong(title) {
		return title
	}
	return string([]rune(title)[:maxTitleLen])
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	Priority    string
	DueDate     *time.Time
	Recurrence  string
}

// TaskPatch holds the fields of an update; nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *string
	Status      *string
	DueDate     *time.Time
	ClearDue    bool
	Recurrence  *string
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	parser   parser.Parser
	clock    calendar.Clock
}

func NewTaskService(taskRepo *repository.TaskRepository, p parser.Parser, clock calendar.Clock) *TaskService {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if p == nil {
		p = parser.Heuristic{Clock: clock}
	}
	return &TaskService{taskRepo: taskRepo, parser: p, clock: clock}
}

func (s *TaskService) CreateTask(ctx context.Context, user *model.User, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	if titleTooLong(title) {
		return nil, invalid("title", fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}

	task := model.Task{
		UserID:      user.ID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    orDefault(input.Priority, model.PriorityNormal),
		Status:      model.StatusPending,
		DueDate:     input.DueDate,
		Recurrence:  orDefault(input.Recurrence, model.RecurNone),
	}
	if task.Category == "" {
		task.Category = model.DefaultCategory
	}
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateFromText parses free text into a task. A failed parse degrades to
// the raw text as title with default fields.
func (s *TaskService) CreateFromText(ctx context.Context, user *model.User, raw string) (*model.Task, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, invalid("text", "text is required")
	}

	res, err := s.parser.Parse(ctx, raw)
	if err != nil {
		log.Printf("[warn] parse task for user %s: %v", user.ID, err)
	}

	title := clipTitle(res.Description)
	task := model.Task{
		UserID:      user.ID,
		Title:       title,
		Description: raw,
		Category:    res.Category,
		Priority:    res.Priority,
		Status:      model.StatusPending,
		DueDate:     res.DueDate,
		Recurrence:  model.RecurNone,
		AIMetadata: &model.AIMetadata{
			ParsedDescription: res.Description,
			SuggestedPriority: res.Priority,
			SuggestedCategory: res.Category,
			UrgencyScore:      res.UrgencyScore,
			Keywords:          res.Keywords,
			Confidence:        res.Confidence,
		},
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, user.ID)
}

func (s *TaskService) ListOpen(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListOpen(ctx, user.ID)
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// UpdateTask applies patch to the user's task.
func (s *TaskService) UpdateTask(ctx context.Context, user *model.User, taskID string, patch TaskPatch) (*model.Task, error) {
	task, err := s.GetTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || titleTooLong(title) {
			return nil, invalid("title", fmt.Sprintf("title must be 1 to %d characters", maxTitleLen))
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Recurrence != nil {
		task.Recurrence = *patch.Recurrence
	}
	switch {
	case patch.ClearDue:
		task.DueDate = nil
	case patch.DueDate != nil:
		task.DueDate = patch.DueDate
	}
	if err := validateTask(*task); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateStatus moves a task to status. Completing a task stamps UpdatedAt,
// which analytics reads as the completion time.
func (s *TaskService) UpdateStatus(ctx context.Context, user *model.User, taskID, status string) (*model.Task, error) {
	return s.UpdateTask(ctx, user, taskID, TaskPatch{Status: &status})
}

func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID string) error {
	return notFound(s.taskRepo.Delete(ctx, user.ID, taskID))
}

// DeleteCompleted removes every completed task of the user.
func (s *TaskService) DeleteCompleted(ctx context.Context, user *model.User) (int64, error) {
	return s.taskRepo.DeleteCompleted(ctx, user.ID)
}

// Now is the service clock, used to compute overdue flags.
func (s *TaskService) Now() time.Time {
	return s.clock.Now()
}

func validateTask(t model.Task) error {
	switch {
	case !model.ValidPriority(t.Priority):
		return invalid("priority", fmt.Sprintf("unknown priority %q", t.Priority))
	case !model.ValidStatus(t.Status):
		return invalid("status", fmt.Sprintf("unknown status %q", t.Status))
	case !model.ValidRecurrence(t.Recurrence):
		return invalid("recurrence", fmt.Sprintf("unknown recurrence %q", t.Recurrence))
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("task: %w", ErrNotFound)
	}
	return err
}

func orDefault(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
