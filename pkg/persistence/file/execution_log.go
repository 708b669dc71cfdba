package file

import (
	"context"
	"errors"
	"sort"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

var errExecutionLogNotFound = errors.New("execution log entry not found")

// ExecutionLogRepository appends immutable execution records, one JSON
// document per entry.
type ExecutionLogRepository struct {
	entries *collection[models.ExecutionLog]
}

func NewExecutionLogRepository(root string) *ExecutionLogRepository {
	return &ExecutionLogRepository{
		entries: newCollection[models.ExecutionLog](root, "execution_logs", errExecutionLogNotFound),
	}
}

func (er *ExecutionLogRepository) Append(_ context.Context, entry *models.ExecutionLog) error {
	return er.entries.save(entry.ID, entry)
}

// ListByPolicy returns the policy's log entries, newest first, capped at
// limit when limit is positive.
func (er *ExecutionLogRepository) ListByPolicy(_ context.Context, policyID string, limit int) ([]*models.ExecutionLog, error) {
	all, err := er.entries.list()
	if err != nil {
		return nil, err
	}

	entries := make([]*models.ExecutionLog, 0)

	for _, entry := range all {
		if entry.PolicyID == policyID {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.After(entries[j].StartedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
