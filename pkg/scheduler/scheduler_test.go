package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
)

type recordingRunner struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (r *recordingRunner) Execute(_ context.Context, policyID string, _ map[string]any) (*models.PolicyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executed = append(r.executed, policyID)

	if r.err != nil {
		return nil, r.err
	}

	return &models.PolicyResult{PolicyID: policyID, Success: true, Status: models.StatusSuccess}, nil
}

func (r *recordingRunner) policies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.executed...)
}

func saveSchedule(t *testing.T, p *file.Persistence, schedule *models.PolicySchedule) {
	t.Helper()
	require.NoError(t, p.Schedules().Save(context.Background(), schedule))
}

func TestRunPendingExecutesDueSchedules(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	runner := &recordingRunner{}
	sched := scheduler.NewScheduler(p.Schedules(), runner, slog.Default())

	now := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-due", PolicyID: "p-due", CronExpression: "* * * * *", Active: true, NextRunAt: &past,
	})
	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-future", PolicyID: "p-future", CronExpression: "* * * * *", Active: true, NextRunAt: &future,
	})
	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-inactive", PolicyID: "p-inactive", CronExpression: "* * * * *", Active: false, NextRunAt: &past,
	})

	sched.RunPending(context.Background(), now)

	assert.Equal(t, []string{"p-due"}, runner.policies())

	// The due schedule was advanced and stamped.
	stored, err := p.Schedules().GetByID(context.Background(), "s-due")
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, now, stored.LastRunAt.UTC())
	require.NotNil(t, stored.NextRunAt)
	assert.True(t, stored.NextRunAt.After(now))
}

func TestRunPendingIsolatesRunnerFailures(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	runner := &recordingRunner{err: errors.New("policy not found")}
	sched := scheduler.NewScheduler(p.Schedules(), runner, slog.Default())

	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-1", PolicyID: "p-1", CronExpression: "* * * * *", Active: true, NextRunAt: &past, CreatedAt: now.Add(-2 * time.Hour),
	})
	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-2", PolicyID: "p-2", CronExpression: "* * * * *", Active: true, NextRunAt: &past, CreatedAt: now.Add(-time.Hour),
	})

	sched.RunPending(context.Background(), now)

	// Both schedules ran despite every execution failing.
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, runner.policies())

	// Failed runs still advance NextRunAt so the schedule keeps firing.
	for _, id := range []string{"s-1", "s-2"} {
		stored, err := p.Schedules().GetByID(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, stored.NextRunAt)
		assert.True(t, stored.NextRunAt.After(now))
	}
}

func TestRunPendingDisablesUnparsableExpressions(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	runner := &recordingRunner{}
	sched := scheduler.NewScheduler(p.Schedules(), runner, slog.Default())

	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	// The expression was valid when NextRunAt was computed but was edited
	// into garbage since.
	saveSchedule(t, p, &models.PolicySchedule{
		ID: "s-bad", PolicyID: "p-bad", CronExpression: "no longer valid", Active: true, NextRunAt: &past,
	})

	sched.RunPending(context.Background(), now)

	assert.Equal(t, []string{"p-bad"}, runner.policies())

	stored, err := p.Schedules().GetByID(context.Background(), "s-bad")
	require.NoError(t, err)
	assert.Nil(t, stored.NextRunAt, "an unparsable expression leaves the schedule dormant")
	require.NotNil(t, stored.LastRunAt)
}

func TestStartStopGate(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	sched := scheduler.NewScheduler(p.Schedules(), &recordingRunner{}, slog.Default())

	assert.False(t, sched.IsRunning())

	sched.Start()
	assert.True(t, sched.IsRunning())

	sched.Stop()
	assert.False(t, sched.IsRunning())
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	sched := scheduler.NewScheduler(p.Schedules(), &recordingRunner{}, slog.Default())

	finished := make(chan struct{})

	go func() {
		sched.Run(context.Background())
		close(finished)
	}()

	// The gate opens as part of Run.
	require.Eventually(t, sched.IsRunning, time.Second, 10*time.Millisecond)

	sched.Shutdown()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Shutdown")
	}

	// Shutdown is idempotent.
	sched.Shutdown()
}
