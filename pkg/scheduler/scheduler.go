// Package scheduler triggers policies from their cron schedules on a fixed
// one-minute tick.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/eventbus"
	"github.com/ruleflow-io/ruleflow/pkg/events"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

const tickInterval = time.Minute

// PolicyRunner executes one policy by id. It is satisfied by the executor;
// the indirection keeps the scheduler testable without HTTP.
type PolicyRunner interface {
	Execute(ctx context.Context, policyID string, initial map[string]any) (*models.PolicyResult, error)
}

// Scheduler polls due schedules once a minute and runs their policies.
// Start and Stop toggle a gate checked at the top of each tick; the ticker
// itself keeps running until Shutdown so toggling is cheap and race-free.
type Scheduler struct {
	schedules persistence.ScheduleRepository
	runner    PolicyRunner
	eventBus  eventbus.EventBus
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	stopped chan struct{}
}

func NewScheduler(
	schedules persistence.ScheduleRepository,
	runner PolicyRunner,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		runner:    runner,
		logger:    logger,
	}
}

// WithEventBus enables best-effort PolicyTriggered events on each due
// schedule.
func (s *Scheduler) WithEventBus(bus eventbus.EventBus) *Scheduler {
	s.eventBus = bus

	return s
}

// Run starts the tick loop and blocks until Shutdown is called or the
// context is cancelled. The gate starts open.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	defer close(s.stopped)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "Scheduler started", "interval", tickInterval.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case now := <-ticker.C:
			if !s.IsRunning() {
				continue
			}

			s.RunPending(ctx, now.UTC())
		}
	}
}

// Start opens the gate so subsequent ticks process due schedules.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
}

// Stop closes the gate. The ticker keeps firing but ticks become no-ops
// until Start is called again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
}

// IsRunning reports whether the gate is open.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// Shutdown terminates the tick loop and waits for it to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	done := s.done
	stopped := s.stopped
	s.mu.Unlock()

	if done == nil {
		return
	}

	select {
	case <-done:
	default:
		close(done)
	}

	<-stopped
}

// RunPending runs every schedule due at now. A failure in one schedule is
// logged and never stops the others in the same pass.
func (s *Scheduler) RunPending(ctx context.Context, now time.Time) {
	due, err := s.schedules.Due(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load due schedules", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "Processing due schedules", "count", len(due))

	for _, schedule := range due {
		s.runSchedule(ctx, schedule, now)
	}
}

func (s *Scheduler) runSchedule(ctx context.Context, schedule *models.PolicySchedule, now time.Time) {
	s.logger.InfoContext(ctx, "Triggering scheduled policy",
		"schedule_id", schedule.ID,
		"policy_id", schedule.PolicyID,
		"cron", schedule.CronExpression)

	s.publishTriggered(ctx, schedule)

	if _, err := s.runner.Execute(ctx, schedule.PolicyID, nil); err != nil {
		s.logger.ErrorContext(ctx, "Scheduled policy execution failed",
			"schedule_id", schedule.ID,
			"policy_id", schedule.PolicyID,
			"error", err)
	}

	ranAt := now
	schedule.LastRunAt = &ranAt

	if err := schedule.ComputeNextRun(now); err != nil {
		// Dormant until the expression is edited.
		s.logger.WarnContext(ctx, "Invalid cron expression, schedule disabled until edited",
			"schedule_id", schedule.ID,
			"cron", schedule.CronExpression,
			"error", err)
	}

	if err := s.schedules.Save(ctx, schedule); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist schedule run state", "schedule_id", schedule.ID, "error", err)
	}
}

func (s *Scheduler) publishTriggered(ctx context.Context, schedule *models.PolicySchedule) {
	if s.eventBus == nil {
		return
	}

	event := events.PolicyTriggered{
		BaseEvent: events.BaseEvent{
			ID:        s.eventBus.GenerateID(),
			Type:      events.PolicyTriggeredEvent,
			Timestamp: time.Now().UTC(),
			PolicyID:  schedule.PolicyID,
		},
		ScheduleID: schedule.ID,
		Source:     "schedule",
	}

	if err := s.eventBus.Publish(ctx, schedule.PolicyID, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish trigger event", "schedule_id", schedule.ID, "error", err)
	}
}
