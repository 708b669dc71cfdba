// Package events defines event types and structures for policy execution
// lifecycle notifications.
package events

import (
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

type EventType string

// Topic is the event stream all policy lifecycle events are published to.
const Topic = "ruleflow.events"

const EventTypeMetadataKey = "event_type"

const (
	PolicyTriggeredEvent          EventType = "policy.triggered"
	PolicyExecutionStartedEvent   EventType = "policy.execution.started"
	PolicyExecutionCompletedEvent EventType = "policy.execution.completed"
	PolicyExecutionFailedEvent    EventType = "policy.execution.failed"
	RuleExecutionFinishedEvent    EventType = "rule.execution.finished"
	RuleExecutionFailedEvent      EventType = "rule.execution.failed"
	RuleExecutionSkippedEvent     EventType = "rule.execution.skipped"
)

// Event is anything publishable on the event bus.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PolicyID  string    `json:"policy_id"`
}

type PolicyTriggered struct {
	BaseEvent

	ScheduleID string `json:"schedule_id,omitempty"`
	Source     string `json:"source"` // "schedule" or "api"
}

func (e PolicyTriggered) GetType() EventType { return PolicyTriggeredEvent }

type PolicyExecutionStarted struct {
	BaseEvent

	PolicyName string `json:"policy_name"`
}

func (e PolicyExecutionStarted) GetType() EventType { return PolicyExecutionStartedEvent }

type PolicyExecutionCompleted struct {
	BaseEvent

	Status         models.ExecutionStatus `json:"status"`
	RulesExecuted  int                    `json:"rules_executed"`
	RulesSucceeded int                    `json:"rules_succeeded"`
	Duration       time.Duration          `json:"duration"`
}

func (e PolicyExecutionCompleted) GetType() EventType { return PolicyExecutionCompletedEvent }

type PolicyExecutionFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (e PolicyExecutionFailed) GetType() EventType { return PolicyExecutionFailedEvent }

type RuleExecutionFinished struct {
	BaseEvent

	RuleID   string        `json:"rule_id"`
	RuleName string        `json:"rule_name"`
	Duration time.Duration `json:"duration"`
}

func (e RuleExecutionFinished) GetType() EventType { return RuleExecutionFinishedEvent }

type RuleExecutionFailed struct {
	BaseEvent

	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Error    string `json:"error"`
}

func (e RuleExecutionFailed) GetType() EventType { return RuleExecutionFailedEvent }

type RuleExecutionSkipped struct {
	BaseEvent

	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Reason   string `json:"reason"`
}

func (e RuleExecutionSkipped) GetType() EventType { return RuleExecutionSkippedEvent }
