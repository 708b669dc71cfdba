package models

import "time"

// RuleOutcome records how one rule attempt ended within a policy run.
type RuleOutcome struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Order    int    `json:"order"`
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// PolicyResult is the aggregate outcome of one policy run. It is returned
// to callers instead of an error so they can inspect exactly how far
// execution progressed.
type PolicyResult struct {
	PolicyID       string           `json:"policy_id"`
	PolicyName     string           `json:"policy_name"`
	ExecutedAt     time.Time        `json:"executed_at"`
	Success        bool             `json:"success"`
	Status         ExecutionStatus  `json:"status"`
	Error          string           `json:"error,omitempty"`
	FailedAtRule   int              `json:"failed_at_rule,omitempty"`
	RulesExecuted  int              `json:"rules_executed"`
	RulesSucceeded int              `json:"rules_succeeded"`
	LastResult     any              `json:"last_result,omitempty"`
	Outcomes       []RuleOutcome    `json:"outcomes"`
	Context        ExecutionContext `json:"context,omitempty"`
}
