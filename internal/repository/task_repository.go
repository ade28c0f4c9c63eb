package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskwell/internal/model"
)

// GroupColumn is a task column that analytics may group by.
type GroupColumn string

const (
	GroupByCategory GroupColumn = "category"
	GroupByPriority GroupColumn = "priority"
)

// TaskRepository handles CRUD for tasks. Every per-task statement is scoped by
// both task id and owner id.
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

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	tasks := []model.Task{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListPendingByUser returns the open tasks of a user, recurring ones included.
func (r *TaskRepository) ListPendingByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID string, taskID uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// Update applies column changes in a single UPDATE scoped by owner. A task
// that does not exist and a task owned by someone else both yield ErrNotFound.
func (r *TaskRepository) Update(ctx context.Context, userID string, taskID uint, changes map[string]interface{}) error {
	if len(changes) == 0 {
		_, err := r.FindByID(ctx, userID, taskID)
		return err
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(changes)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted closes a task. A recurring task that was still pending gains
// consistencyStep points, capped at 100.
func (r *TaskRepository) MarkCompleted(ctx context.Context, userID string, taskID uint, completedAt time.Time, consistencyStep int) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(map[string]interface{}{
			"status":         model.StatusCompleted,
			"last_completed": completedAt,
			"consistency_score": gorm.Expr(
				"CASE WHEN recurring AND status <> ? THEN (CASE WHEN consistency_score + ? > 100 THEN 100 ELSE consistency_score + ? END) ELSE consistency_score END",
				model.StatusCompleted, consistencyStep, consistencyStep,
			),
		})
	if res.Error != nil {
		return fmt.Errorf("complete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID string, taskID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", taskID, userID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletionCounts returns the total and completed task counts of a user.
func (r *TaskRepository) CompletionCounts(ctx context.Context, userID string) (total, completed int64, err error) {
	var row struct {
		Total     int64
		Completed int64
	}
	err = r.db.WithContext(ctx).Model(&model.Task{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed", model.StatusCompleted).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count tasks: %w", err)
	}
	return row.Total, row.Completed, nil
}

// CountBy groups a user's tasks by column and counts each group.
func (r *TaskRepository) CountBy(ctx context.Context, userID string, column GroupColumn) (map[string]int64, error) {
	switch column {
	case GroupByCategory, GroupByPriority:
	default:
		return nil, fmt.Errorf("count tasks: unsupported group column %q", column)
	}

	var rows []struct {
		Value string
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select(string(column)+" AS value, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group(string(column)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count tasks by %s: %w", column, err)
	}

	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Value] = row.Count
	}
	return result, nil
}

// DecayMissedRecurring lowers the score of recurring tasks created before
// cycleStart that were not completed in the finished cycle.
func (r *TaskRepository) DecayMissedRecurring(ctx context.Context, cycleStart time.Time, penalty int) (int64, error) {
	// SQLite compares timestamps as text; use the zone gorm writes created_at in.
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("recurring = ? AND status = ? AND created_at < ?", true, model.StatusPending, cycleStart.Local()).
		Update("consistency_score", gorm.Expr(
			"CASE WHEN consistency_score - ? < 0 THEN 0 ELSE consistency_score - ? END", penalty, penalty,
		))
	if res.Error != nil {
		return 0, fmt.Errorf("decay recurring tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ReopenCompletedRecurring moves completed recurring tasks back to pending.
func (r *TaskRepository) ReopenCompletedRecurring(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("recurring = ? AND status = ?", true, model.StatusCompleted).
		Update("status", model.StatusPending)
	if res.Error != nil {
		return 0, fmt.Errorf("reopen recurring tasks: %w", res.Error)
	}
	return res.RowsAffected, nil
}
