package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

// ExecutionLogRepository appends immutable execution records.
type ExecutionLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewExecutionLogRepository(db *sql.DB, logger *slog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, logger: logger}
}

func (r *ExecutionLogRepository) Append(ctx context.Context, entry *models.ExecutionLog) error {
	query := `
		INSERT INTO execution_logs (id, policy_id, rule_id, status, input, output, error_message, started_at, completed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.PolicyID,
		entry.RuleID,
		entry.Status,
		entry.Input,
		entry.Output,
		entry.ErrorMessage,
		entry.StartedAt,
		entry.CompletedAt,
		entry.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to append execution log: %w", err)
	}

	return nil
}

// ListByPolicy returns the policy's log entries, newest first, capped at
// limit when limit is positive.
func (r *ExecutionLogRepository) ListByPolicy(ctx context.Context, policyID string, limit int) ([]*models.ExecutionLog, error) {
	query := `
		SELECT
			id
		  , policy_id
		  , rule_id
		  , status
		  , input
		  , output
		  , error_message
		  , started_at
		  , completed_at
		  , duration_ms
		FROM execution_logs
		WHERE policy_id = $1
		ORDER BY started_at DESC
	`

	args := []any{policyID}

	if limit > 0 {
		query += " LIMIT $2"

		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry        models.ExecutionLog
			input        sql.NullString
			output       sql.NullString
			errorMessage sql.NullString
		)

		err := rows.Scan(
			&entry.ID,
			&entry.PolicyID,
			&entry.RuleID,
			&entry.Status,
			&input,
			&output,
			&errorMessage,
			&entry.StartedAt,
			&entry.CompletedAt,
			&entry.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entry.Input = input.String
		entry.Output = output.String
		entry.ErrorMessage = errorMessage.String

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}
