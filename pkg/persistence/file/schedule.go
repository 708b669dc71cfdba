package file

import (
	"context"
	"sort"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ScheduleRepository stores policy schedules.
type ScheduleRepository struct {
	schedules *collection[models.PolicySchedule]
}

func NewScheduleRepository(root string) *ScheduleRepository {
	return &ScheduleRepository{
		schedules: newCollection[models.PolicySchedule](root, "schedules", persistence.ErrScheduleNotFound),
	}
}

func (sr *ScheduleRepository) List(_ context.Context) ([]*models.PolicySchedule, error) {
	schedules, err := sr.schedules.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})

	return schedules, nil
}

func (sr *ScheduleRepository) GetByID(_ context.Context, id string) (*models.PolicySchedule, error) {
	return sr.schedules.get(id)
}

func (sr *ScheduleRepository) Save(_ context.Context, schedule *models.PolicySchedule) error {
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}

	return sr.schedules.save(schedule.ID, schedule)
}

func (sr *ScheduleRepository) Delete(_ context.Context, id string) error {
	return sr.schedules.delete(id)
}

// Due returns active schedules whose NextRunAt is at or before now.
func (sr *ScheduleRepository) Due(_ context.Context, now time.Time) ([]*models.PolicySchedule, error) {
	all, err := sr.schedules.list()
	if err != nil {
		return nil, err
	}

	due := make([]*models.PolicySchedule, 0)

	for _, schedule := range all {
		if schedule.IsDue(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}
