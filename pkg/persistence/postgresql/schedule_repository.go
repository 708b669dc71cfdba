package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ScheduleRepository handles policy schedule database operations.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewScheduleRepository(db *sql.DB, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{db: db, logger: logger}
}

const scheduleColumns = `
	id
  , policy_id
  , cron_expression
  , active
  , next_run_at
  , last_run_at
  , created_at
`

func (r *ScheduleRepository) List(ctx context.Context) ([]*models.PolicySchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM policy_schedules ORDER BY created_at`

	return r.querySchedules(ctx, query)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*models.PolicySchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM policy_schedules WHERE id = $1`

	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrScheduleNotFound)
		}

		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	return schedule, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.PolicySchedule) error {
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}

	if schedule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate schedule ID: %w", err)
		}

		schedule.ID = id.String()
	}

	query := `
		INSERT INTO policy_schedules (id, policy_id, cron_expression, active, next_run_at, last_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			policy_id = EXCLUDED.policy_id,
			cron_expression = EXCLUDED.cron_expression,
			active = EXCLUDED.active,
			next_run_at = EXCLUDED.next_run_at,
			last_run_at = EXCLUDED.last_run_at
	`

	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.PolicyID,
		schedule.CronExpression,
		schedule.Active,
		schedule.NextRunAt,
		schedule.LastRunAt,
		schedule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM policy_schedules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	return nil
}

// Due returns active schedules whose next_run_at is at or before now.
func (r *ScheduleRepository) Due(ctx context.Context, now time.Time) ([]*models.PolicySchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM policy_schedules
		WHERE active = true AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at
	`

	return r.querySchedules(ctx, query, now)
}

func (r *ScheduleRepository) querySchedules(ctx context.Context, query string, args ...any) ([]*models.PolicySchedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	schedules := make([]*models.PolicySchedule, 0)

	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func scanSchedule(row interface{ Scan(dest ...any) error }) (*models.PolicySchedule, error) {
	var schedule models.PolicySchedule

	err := row.Scan(
		&schedule.ID,
		&schedule.PolicyID,
		&schedule.CronExpression,
		&schedule.Active,
		&schedule.NextRunAt,
		&schedule.LastRunAt,
		&schedule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &schedule, nil
}
