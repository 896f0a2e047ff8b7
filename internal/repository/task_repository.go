package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskpulse/internal/model"
)

// TaskRepository handles CRUD and analytics reads for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByUser returns the user's tasks, newest first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListOpen returns pending and in-progress tasks ordered by due date.
func (r *TaskRepository) ListOpen(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{model.StatusPending, model.StatusInProgress}).
		Order("due_date IS NULL, due_date ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	if !ValidID(taskID) {
		return nil, ErrNotFound
	}
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, fmt.Errorf("find task: %w", translate(err))
	}
	return &task, nil
}

// Save writes every field and refreshes UpdatedAt.
func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

// Delete soft-deletes a single task of the user.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	if !ValidID(taskID) {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task: %w", ErrNotFound)
	}
	return nil
}

// DeleteCompleted removes all completed tasks of the user.
func (r *TaskRepository) DeleteCompleted(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.StatusCompleted).Delete(&model.Task{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete completed tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CompletedSince returns the completion timestamps of the user's tasks
// completed at or after since.
func (r *TaskRepository) CompletedSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	if !ValidID(userID) {
		return nil, ErrInvalidID
	}
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND status = ? AND updated_at >= ?", userID, model.StatusCompleted, since.UTC()).
		Order("updated_at ASC").
		Pluck("updated_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("query completed tasks: %w", err)
	}
	return stamps, nil
}

// CategoryCounts groups the user's tasks completed within [from, to] by
// category, largest group first.
func (r *TaskRepository) CategoryCounts(ctx context.Context, userID string, from, to time.Time) ([]model.CategoryCount, error) {
	if !ValidID(userID) {
		return nil, ErrInvalidID
	}
	var rows []model.CategoryCount
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category, COUNT(*) AS count").
		Where("user_id = ? AND status = ? AND updated_at >= ? AND updated_at <= ?",
			userID, model.StatusCompleted, from.UTC(), to.UTC()).
		Group("category").
		Order("count DESC, category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	return rows, nil
}

// ListChangedSince returns every task, soft-deleted ones included, that was
// updated or deleted after since.
func (r *TaskRepository) ListChangedSince(ctx context.Context, since time.Time) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Unscoped().
		Where("updated_at > ? OR deleted_at > ?", since.UTC(), since.UTC()).
		Order("updated_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list changed tasks: %w", err)
	}
	return tasks, nil
}
