package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ErrScheduleNotFound is returned when a schedule is not found.
var ErrScheduleNotFound = persistence.ErrScheduleNotFound

// Schedule is the CRUD service for policy schedules.
type Schedule struct {
	persistence persistence.Persistence
}

// NewSchedule creates a new schedule service.
func NewSchedule(persistence persistence.Persistence) *Schedule {
	return &Schedule{persistence: persistence}
}

// List retrieves all schedules.
func (s *Schedule) List(ctx context.Context) ([]*models.PolicySchedule, error) {
	return s.persistence.Schedules().List(ctx)
}

// FetchByID retrieves a schedule by its ID.
func (s *Schedule) FetchByID(ctx context.Context, id string) (*models.PolicySchedule, error) {
	return s.persistence.Schedules().GetByID(ctx, id)
}

// Create adds a new schedule with its first run time precomputed.
func (s *Schedule) Create(ctx context.Context, policyID, cronExpression string) (*models.PolicySchedule, error) {
	if _, err := s.persistence.Policies().GetByID(ctx, policyID); err != nil {
		return nil, err
	}

	schedule, err := models.NewPolicySchedule(uuid.New().String(), policyID, cronExpression)
	if err != nil {
		return nil, NewValidationError("CreateSchedule", "INVALID_CRON",
			fmt.Sprintf("invalid cron expression %q", cronExpression), ErrInvalidCronExpression)
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	return schedule, nil
}

// Update replaces the schedule's cron expression and active flag, and
// recomputes the next run time.
func (s *Schedule) Update(ctx context.Context, scheduleID, cronExpression string, active bool) (*models.PolicySchedule, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	schedule.CronExpression = cronExpression
	schedule.Active = active

	if err := schedule.ComputeNextRun(time.Now().UTC()); err != nil {
		return nil, NewValidationError("UpdateSchedule", "INVALID_CRON",
			fmt.Sprintf("invalid cron expression %q", cronExpression), ErrInvalidCronExpression)
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	return schedule, nil
}

// Delete removes a schedule by its ID.
func (s *Schedule) Delete(ctx context.Context, scheduleID string) error {
	if _, err := s.persistence.Schedules().GetByID(ctx, scheduleID); err != nil {
		return err
	}

	if err := s.persistence.Schedules().Delete(ctx, scheduleID); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	return nil
}
