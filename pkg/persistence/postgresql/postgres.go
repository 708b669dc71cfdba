// Package postgresql provides PostgreSQL persistence for policies, rules,
// schedules and the API catalog.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	policies       *PolicyRepository
	rules          *RuleRepository
	apiDefinitions *ApiDefinitionRepository
	swaggerSources *SwaggerSourceRepository
	authSettings   *AuthenticationSettingRepository
	schedules      *ScheduleRepository
	executionLogs  *ExecutionLogRepository
}

// NewPersistence connects, runs migrations, and returns a ready persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		policies:       NewPolicyRepository(database, logger),
		rules:          NewRuleRepository(database, logger),
		apiDefinitions: NewApiDefinitionRepository(database, logger),
		swaggerSources: NewSwaggerSourceRepository(database, logger),
		authSettings:   NewAuthenticationSettingRepository(database, logger),
		schedules:      NewScheduleRepository(database, logger),
		executionLogs:  NewExecutionLogRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Policies() persistence.PolicyRepository {
	return p.policies
}

func (p *Persistence) Rules() persistence.RuleRepository {
	return p.rules
}

func (p *Persistence) ApiDefinitions() persistence.ApiDefinitionRepository {
	return p.apiDefinitions
}

func (p *Persistence) SwaggerSources() persistence.SwaggerSourceRepository {
	return p.swaggerSources
}

func (p *Persistence) AuthenticationSettings() persistence.AuthenticationSettingRepository {
	return p.authSettings
}

func (p *Persistence) Schedules() persistence.ScheduleRepository {
	return p.schedules
}

func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository {
	return p.executionLogs
}
