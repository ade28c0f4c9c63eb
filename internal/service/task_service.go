package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"taskwell/internal/apperrors"
	"taskwell/internal/model"
	"taskwell/internal/repository"
)

// ConsistencyStep is the score a recurring task gains per completed cycle.
const ConsistencyStep = 10

// TaskInput represents data required to create a task. Empty optional fields
// take their defaults.
type TaskInput struct {
	Title     string
	Category  string
	Priority  string
	Deadline  *string
	Status    string
	Recurring bool
}

// TaskUpdate lists the fields to change; nil fields are left alone. An empty
// Deadline clears it.
type TaskUpdate struct {
	Title     *string
	Category  *string
	Priority  *string
	Deadline  *string
	Status    *string
	Recurring *bool
}

// TaskService wraps task-related business logic. Every method is scoped to
// the calling user.
type TaskService struct {
	taskRepo *repository.TaskRepository
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, now: time.Now}
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	return s.taskRepo.ListByUser(ctx, userID)
}

func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	task := model.Task{
		UserID:   userID,
		Title:    title,
		Category: model.DefaultCategory,
		Priority: model.PriorityMedium,
		Status:   model.StatusPending,
	}
	if c := strings.TrimSpace(input.Category); c != "" {
		if err := validateCategory(c); err != nil {
			return nil, err
		}
		task.Category = c
	}
	if input.Priority != "" {
		if !model.ValidPriority(input.Priority) {
			return nil, errInvalidPriority()
		}
		task.Priority = input.Priority
	}
	if input.Status != "" {
		if !model.ValidStatus(input.Status) {
			return nil, errInvalidStatus()
		}
		task.Status = input.Status
	}
	if input.Deadline != nil && *input.Deadline != "" {
		if !ValidDate(*input.Deadline) {
			return nil, errInvalidDeadline()
		}
		deadline := *input.Deadline
		task.Deadline = &deadline
	}
	task.Recurring = input.Recurring

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies a partial update in one statement and returns the new row.
func (s *TaskService) Update(ctx context.Context, userID string, taskID uint, update TaskUpdate) (*model.Task, error) {
	changes := map[string]interface{}{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		changes["task"] = title
	}
	if update.Category != nil {
		c := strings.TrimSpace(*update.Category)
		if c == "" {
			c = model.DefaultCategory
		}
		if err := validateCategory(c); err != nil {
			return nil, err
		}
		changes["category"] = c
	}
	if update.Priority != nil {
		if !model.ValidPriority(*update.Priority) {
			return nil, errInvalidPriority()
		}
		changes["priority"] = *update.Priority
	}
	if update.Status != nil {
		if !model.ValidStatus(*update.Status) {
			return nil, errInvalidStatus()
		}
		changes["status"] = *update.Status
	}
	if update.Deadline != nil {
		if *update.Deadline == "" {
			changes["deadline"] = nil
		} else {
			if !ValidDate(*update.Deadline) {
				return nil, errInvalidDeadline()
			}
			changes["deadline"] = *update.Deadline
		}
	}
	if update.Recurring != nil {
		changes["recurring"] = *update.Recurring
	}

	if err := s.taskRepo.Update(ctx, userID, taskID, changes); err != nil {
		return nil, mapTaskErr(err)
	}
	return s.get(ctx, userID, taskID)
}

// Complete marks a task done. A recurring task completed for the first time
// in its cycle gains ConsistencyStep points.
func (s *TaskService) Complete(ctx context.Context, userID string, taskID uint) (*model.Task, error) {
	if err := s.taskRepo.MarkCompleted(ctx, userID, taskID, s.now(), ConsistencyStep); err != nil {
		return nil, mapTaskErr(err)
	}
	return s.get(ctx, userID, taskID)
}

// Delete removes a task completely.
func (s *TaskService) Delete(ctx context.Context, userID string, taskID uint) error {
	return mapTaskErr(s.taskRepo.Delete(ctx, userID, taskID))
}

// CompletionRate returns the share of completed tasks in percent, 0 for a
// user without tasks.
func (s *TaskService) CompletionRate(ctx context.Context, userID string) (float64, error) {
	total, completed, err := s.taskRepo.CompletionCounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return float64(completed) / float64(total) * 100, nil
}

// GroupBy counts the user's tasks per distinct value of column.
func (s *TaskService) GroupBy(ctx context.Context, userID string, column repository.GroupColumn) (map[string]int64, error) {
	return s.taskRepo.CountBy(ctx, userID, column)
}

func (s *TaskService) get(ctx context.Context, userID string, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, userID, taskID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	return task, nil
}

func mapTaskErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(apperrors.CodeTaskNotFound, "Task not found")
	}
	return err
}

func validateTitle(title string) error {
	if title == "" {
		return apperrors.Validation("Task title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return apperrors.Validation("Task title must be at most 200 characters")
	}
	return nil
}

func validateCategory(category string) error {
	if utf8.RuneCountInString(category) > maxCategoryLen {
		return apperrors.Validation("Category must be at most 50 characters")
	}
	return nil
}

func errInvalidPriority() error {
	return apperrors.Validation("Priority must be Low, Medium or High")
}

func errInvalidStatus() error {
	return apperrors.Validation("Status must be Pending or Completed")
}

func errInvalidDeadline() error {
	return apperrors.Validation("Deadline must be a YYYY-MM-DD date")
}
