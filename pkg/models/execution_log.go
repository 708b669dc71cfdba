package models

import "time"

// ExecutionStatus enumerates the states recorded for rule attempts and
// whole policy runs.
type ExecutionStatus string

const (
	StatusSuccess             ExecutionStatus = "Success"
	StatusFailed              ExecutionStatus = "Failed"
	StatusSkipped             ExecutionStatus = "Skipped"
	StatusRunning             ExecutionStatus = "Running"
	StatusCompletedWithErrors ExecutionStatus = "Completed with errors"
)

// ExecutionLog is one immutable record per rule invocation or per policy
// run. RuleID is nil for run-level entries. Input and Output are serialized
// snapshots; they are written once and never mutated.
type ExecutionLog struct {
	ID           string          `json:"id"`
	PolicyID     string          `json:"policy_id"`
	RuleID       *string         `json:"rule_id,omitempty"`
	Status       ExecutionStatus `json:"status"`
	Input        string          `json:"input,omitempty"`
	Output       string          `json:"output,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  time.Time       `json:"completed_at"`
	DurationMs   int64           `json:"duration_ms"`
}
