package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/services"
)

func TestScheduleCreate(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewSchedule(p)

	schedule, err := service.Create(context.Background(), policy.ID, "*/10 * * * *")
	require.NoError(t, err)

	assert.NotEmpty(t, schedule.ID)
	assert.True(t, schedule.Active)
	assert.NotNil(t, schedule.NextRunAt)
}

func TestScheduleCreateInvalidCron(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewSchedule(p)

	_, err := service.Create(context.Background(), policy.ID, "every ten minutes")
	require.ErrorIs(t, err, services.ErrInvalidCronExpression)
	assert.True(t, services.IsValidationError(err))
}

func TestScheduleCreateRequiresPolicy(t *testing.T) {
	t.Parallel()

	service := services.NewSchedule(newStore(t))

	_, err := service.Create(context.Background(), "missing", "* * * * *")
	require.ErrorIs(t, err, services.ErrPolicyNotFound)
}

func TestScheduleUpdateRecomputesNextRun(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewSchedule(p)

	created, err := service.Create(context.Background(), policy.ID, "* * * * *")
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), created.ID, "0 0 * * *", false)
	require.NoError(t, err)

	assert.Equal(t, "0 0 * * *", updated.CronExpression)
	assert.False(t, updated.Active)
	require.NotNil(t, updated.NextRunAt)
}

func TestScheduleUpdateInvalidCron(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewSchedule(p)

	created, err := service.Create(context.Background(), policy.ID, "* * * * *")
	require.NoError(t, err)

	_, err = service.Update(context.Background(), created.ID, "nope", true)
	require.ErrorIs(t, err, services.ErrInvalidCronExpression)
}

func TestScheduleDelete(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewSchedule(p)

	created, err := service.Create(context.Background(), policy.ID, "* * * * *")
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID))
	require.ErrorIs(t, service.Delete(context.Background(), created.ID), services.ErrScheduleNotFound)
}
