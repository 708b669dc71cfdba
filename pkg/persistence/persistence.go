// Package persistence provides the data storage abstraction layer for
// policies, rules, schedules, authentication settings and execution logs.
package persistence

import (
	"context"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

// Persistence bundles the repositories of one storage backend.
type Persistence interface {
	Policies() PolicyRepository
	Rules() RuleRepository
	ApiDefinitions() ApiDefinitionRepository
	SwaggerSources() SwaggerSourceRepository
	AuthenticationSettings() AuthenticationSettingRepository
	Schedules() ScheduleRepository
	ExecutionLogs() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// PolicyRepository loads and stores policies. GetByID returns the policy
// with its rules in ascending order and each rule's API definition and
// swagger source eagerly attached, along with the linked authentication
// setting, so one read is enough for a whole run.
type PolicyRepository interface {
	List(ctx context.Context) ([]*models.Policy, error)
	GetByID(ctx context.Context, id string) (*models.Policy, error)
	Save(ctx context.Context, policy *models.Policy) error
	Delete(ctx context.Context, id string) error
	SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error
}

type RuleRepository interface {
	ListByPolicy(ctx context.Context, policyID string) ([]*models.Rule, error)
	GetByID(ctx context.Context, id string) (*models.Rule, error)
	Save(ctx context.Context, rule *models.Rule) error
	Delete(ctx context.Context, id string) error
}

type ApiDefinitionRepository interface {
	List(ctx context.Context) ([]*models.ApiDefinition, error)
	GetByID(ctx context.Context, id string) (*models.ApiDefinition, error)
	Save(ctx context.Context, definition *models.ApiDefinition) error
	Delete(ctx context.Context, id string) error
}

type SwaggerSourceRepository interface {
	List(ctx context.Context) ([]*models.SwaggerSource, error)
	GetByID(ctx context.Context, id string) (*models.SwaggerSource, error)
	Save(ctx context.Context, source *models.SwaggerSource) error
	Delete(ctx context.Context, id string) error
}

type AuthenticationSettingRepository interface {
	List(ctx context.Context) ([]*models.AuthenticationSetting, error)
	GetByID(ctx context.Context, id string) (*models.AuthenticationSetting, error)
	// GetByName returns the active setting with the given name.
	GetByName(ctx context.Context, name string) (*models.AuthenticationSetting, error)
	Save(ctx context.Context, setting *models.AuthenticationSetting) error
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error
}

type ScheduleRepository interface {
	List(ctx context.Context) ([]*models.PolicySchedule, error)
	GetByID(ctx context.Context, id string) (*models.PolicySchedule, error)
	Save(ctx context.Context, schedule *models.PolicySchedule) error
	Delete(ctx context.Context, id string) error
	// Due returns active schedules whose NextRunAt is at or before now.
	Due(ctx context.Context, now time.Time) ([]*models.PolicySchedule, error)
}

// ExecutionLogRepository appends immutable execution records. Appends are
// fire-and-forget from the executor's perspective: failures are logged by
// the caller and never abort a run.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.ExecutionLog) error
	ListByPolicy(ctx context.Context, policyID string, limit int) ([]*models.ExecutionLog, error)
}
