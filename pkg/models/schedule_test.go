package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

func TestNewPolicySchedule(t *testing.T) {
	t.Parallel()

	schedule, err := models.NewPolicySchedule("s-1", "p-1", "*/5 * * * *")
	require.NoError(t, err)

	assert.True(t, schedule.Active)
	require.NotNil(t, schedule.NextRunAt)
	assert.True(t, schedule.NextRunAt.After(time.Now().Add(-time.Second)))
}

func TestNewPolicyScheduleInvalidCron(t *testing.T) {
	t.Parallel()

	_, err := models.NewPolicySchedule("s-1", "p-1", "not a cron")
	require.Error(t, err)
}

func TestComputeNextRun(t *testing.T) {
	t.Parallel()

	schedule := &models.PolicySchedule{
		ID:             "s-1",
		PolicyID:       "p-1",
		CronExpression: "0 3 * * *",
		Active:         true,
	}

	reference := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, schedule.ComputeNextRun(reference))
	require.NotNil(t, schedule.NextRunAt)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), *schedule.NextRunAt)
}

func TestComputeNextRunClearsNextRunOnParseFailure(t *testing.T) {
	t.Parallel()

	next := time.Now().UTC()
	schedule := &models.PolicySchedule{
		ID:             "s-1",
		PolicyID:       "p-1",
		CronExpression: "bad expression",
		NextRunAt:      &next,
	}

	require.Error(t, schedule.ComputeNextRun(time.Now().UTC()))
	assert.Nil(t, schedule.NextRunAt, "a schedule with an unparsable expression must go dormant")
}

func TestIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name     string
		schedule models.PolicySchedule
		expected bool
	}{
		{
			name:     "due when next run is in the past",
			schedule: models.PolicySchedule{Active: true, NextRunAt: &past},
			expected: true,
		},
		{
			name:     "due exactly at the boundary",
			schedule: models.PolicySchedule{Active: true, NextRunAt: &now},
			expected: true,
		},
		{
			name:     "not due in the future",
			schedule: models.PolicySchedule{Active: true, NextRunAt: &future},
			expected: false,
		},
		{
			name:     "inactive schedules never fire",
			schedule: models.PolicySchedule{Active: false, NextRunAt: &past},
			expected: false,
		},
		{
			name:     "dormant schedules never fire",
			schedule: models.PolicySchedule{Active: true},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.schedule.IsDue(now))
		})
	}
}

func TestScheduleValidate(t *testing.T) {
	t.Parallel()

	valid := models.PolicySchedule{ID: "s-1", PolicyID: "p-1", CronExpression: "* * * * *"}
	require.NoError(t, valid.Validate())

	missing := models.PolicySchedule{CronExpression: "* * * * *"}
	require.ErrorIs(t, missing.Validate(), models.ErrInvalidSchedule)

	badCron := models.PolicySchedule{ID: "s-1", PolicyID: "p-1", CronExpression: "oops"}
	require.Error(t, badCron.Validate())
}
