package service

import (
	"context"
	"log"
	"time"

	"taskwell/internal/repository"
)

// MissedCyclePenalty is the score a recurring task loses for a cycle that
// ended without a completion.
const MissedCyclePenalty = 10

// RolloverResult reports what a rollover changed.
type RolloverResult struct {
	Decayed  int64
	Reopened int64
}

// RecurrenceService starts a new cycle for recurring tasks once a day.
type RecurrenceService struct {
	taskRepo *repository.TaskRepository
}

func NewRecurrenceService(taskRepo *repository.TaskRepository) *RecurrenceService {
	return &RecurrenceService{taskRepo: taskRepo}
}

// Rollover closes the cycle that ends at now. Recurring tasks left pending
// lose MissedCyclePenalty points unless they were created during the cycle,
// then completed recurring tasks reopen.
func (s *RecurrenceService) Rollover(ctx context.Context, now time.Time) (RolloverResult, error) {
	var res RolloverResult
	decayed, err := s.taskRepo.DecayMissedRecurring(ctx, cycleStart(now), MissedCyclePenalty)
	if err != nil {
		return res, err
	}
	res.Decayed = decayed

	reopened, err := s.taskRepo.ReopenCompletedRecurring(ctx)
	if err != nil {
		return res, err
	}
	res.Reopened = reopened

	log.Printf("[info] recurring rollover: %d decayed, %d reopened", res.Decayed, res.Reopened)
	return res, nil
}

// cycleStart is the midnight opening the day before now, in now's location.
func cycleStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -1)
}
