// Package file provides file-based persistence for policies, rules,
// schedules and the API catalog. Each entity is one JSON document under the
// root directory, which makes the backend trivially inspectable and good
// enough for single-node deployments and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface on the file
// system.
type Persistence struct {
	root string

	policies       *PolicyRepository
	rules          *RuleRepository
	apiDefinitions *ApiDefinitionRepository
	swaggerSources *SwaggerSourceRepository
	authSettings   *AuthenticationSettingRepository
	schedules      *ScheduleRepository
	executionLogs  *ExecutionLogRepository
}

// NewPersistence creates a file-backed persistence rooted at the given
// directory. A "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	rules := NewRuleRepository(cleanRoot)
	apiDefinitions := NewApiDefinitionRepository(cleanRoot)
	swaggerSources := NewSwaggerSourceRepository(cleanRoot)
	authSettings := NewAuthenticationSettingRepository(cleanRoot)

	return &Persistence{
		root:           cleanRoot,
		policies:       NewPolicyRepository(cleanRoot, rules, apiDefinitions, swaggerSources, authSettings),
		rules:          rules,
		apiDefinitions: apiDefinitions,
		swaggerSources: swaggerSources,
		authSettings:   authSettings,
		schedules:      NewScheduleRepository(cleanRoot),
		executionLogs:  NewExecutionLogRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Policies() persistence.PolicyRepository {
	return fp.policies
}

func (fp *Persistence) Rules() persistence.RuleRepository {
	return fp.rules
}

func (fp *Persistence) ApiDefinitions() persistence.ApiDefinitionRepository {
	return fp.apiDefinitions
}

func (fp *Persistence) SwaggerSources() persistence.SwaggerSourceRepository {
	return fp.swaggerSources
}

func (fp *Persistence) AuthenticationSettings() persistence.AuthenticationSettingRepository {
	return fp.authSettings
}

func (fp *Persistence) Schedules() persistence.ScheduleRepository {
	return fp.schedules
}

func (fp *Persistence) ExecutionLogs() persistence.ExecutionLogRepository {
	return fp.executionLogs
}
