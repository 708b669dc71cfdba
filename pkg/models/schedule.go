package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when schedule validation fails.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

// cronParser is the shared 5-field parser (minute hour day month weekday).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// PolicySchedule triggers a policy on a cron expression. NextRunAt is the
// precomputed next execution time so the scheduler can query for due
// schedules without parsing every expression on each tick. A nil NextRunAt
// marks a dormant schedule (unparsable cron) until it is edited.
type PolicySchedule struct {
	ID             string     `json:"id"`
	PolicyID       string     `json:"policy_id"       validate:"required"`
	CronExpression string     `json:"cron_expression" validate:"required"`
	Active         bool       `json:"active"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewPolicySchedule creates a schedule with its first run time computed
// from now.
func NewPolicySchedule(id, policyID, cronExpression string) (*PolicySchedule, error) {
	schedule := &PolicySchedule{
		ID:             id,
		PolicyID:       policyID,
		CronExpression: cronExpression,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}

	if err := schedule.ComputeNextRun(time.Now().UTC()); err != nil {
		return nil, err
	}

	return schedule, nil
}

// ComputeNextRun recomputes NextRunAt from the reference time. On a parse
// failure NextRunAt is cleared and the error returned so callers can log it;
// the schedule then stays dormant until its expression is edited.
func (s *PolicySchedule) ComputeNextRun(reference time.Time) error {
	cronSchedule, err := cronParser.Parse(s.CronExpression)
	if err != nil {
		s.NextRunAt = nil

		return err
	}

	next := cronSchedule.Next(reference)
	s.NextRunAt = &next

	return nil
}

// IsDue reports whether the schedule should run at the given time.
func (s *PolicySchedule) IsDue(now time.Time) bool {
	return s.Active && s.NextRunAt != nil && !s.NextRunAt.After(now)
}

// Validate checks required fields and the cron expression format.
func (s *PolicySchedule) Validate() error {
	if s.ID == "" || s.PolicyID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	_, err := cronParser.Parse(s.CronExpression)

	return err
}
