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

// PolicyRepository handles policy-related database operations.
type PolicyRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPolicyRepository(db *sql.DB, logger *slog.Logger) *PolicyRepository {
	return &PolicyRepository{db: db, logger: logger}
}

// List returns all policies sorted by name, without rules attached.
func (r *PolicyRepository) List(ctx context.Context) ([]*models.Policy, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , authentication_setting_id
		  , active
		  , created_at
		  , last_executed_at
		FROM policies
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	policies := make([]*models.Policy, 0)

	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}

		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policies: %w", err)
	}

	return policies, nil
}

// GetByID loads a policy with its rules in ascending order, each rule's API
// definition and swagger source, and the linked authentication setting.
func (r *PolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , authentication_setting_id
		  , active
		  , created_at
		  , last_executed_at
		FROM policies
		WHERE id = $1
	`

	policy, err := scanPolicy(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrPolicyNotFound)
		}

		return nil, fmt.Errorf("failed to scan policy: %w", err)
	}

	if err := r.loadRules(ctx, policy); err != nil {
		return nil, err
	}

	if err := r.loadAuthenticationSetting(ctx, policy); err != nil {
		return nil, err
	}

	return policy, nil
}

// Save upserts the policy document. Rules belong to their own repository.
func (r *PolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}

	if policy.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate policy ID: %w", err)
		}

		policy.ID = id.String()
	}

	query := `
		INSERT INTO policies (id, name, description, authentication_setting_id, active, created_at, last_executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			authentication_setting_id = EXCLUDED.authentication_setting_id,
			active = EXCLUDED.active,
			last_executed_at = EXCLUDED.last_executed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		policy.ID,
		policy.Name,
		policy.Description,
		policy.AuthenticationSettingID,
		policy.Active,
		policy.CreatedAt,
		policy.LastExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	return nil
}

// Delete removes the policy; rules cascade at the schema level.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM policies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	return nil
}

// SetLastExecuted stamps the policy's last execution time.
func (r *PolicyRepository) SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE policies SET last_executed_at = $2 WHERE id = $1", id, executedAt)
	if err != nil {
		return fmt.Errorf("failed to update policy last-executed time: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", id, persistence.ErrPolicyNotFound)
	}

	return nil
}

func (r *PolicyRepository) loadRules(ctx context.Context, policy *models.Policy) error {
	query := `
		SELECT
			r.id
		  , r.policy_id
		  , r.api_definition_id
		  , r.name
		  , r.description
		  , r.condition
		  , r.action_json
		  , r.rule_order
		  , r.active
		  , r.created_at
		  , a.id
		  , a.swagger_source_id
		  , a.name
		  , a.path
		  , a.method
		  , a.description
		  , a.request_schema
		  , a.response_schema
		  , a.parameters
		  , a.requires_auth
		  , a.created_at
		  , s.id
		  , s.name
		  , s.swagger_url
		  , s.created_at
		FROM rules r
		LEFT JOIN api_definitions a ON a.id = r.api_definition_id
		LEFT JOIN swagger_sources s ON s.id = a.swagger_source_id
		WHERE r.policy_id = $1
		ORDER BY r.rule_order
	`

	rows, err := r.db.QueryContext(ctx, query, policy.ID)
	if err != nil {
		return fmt.Errorf("failed to query policy rules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		var (
			rule        models.Rule
			description sql.NullString
			condition   sql.NullString
			actionJSON  sql.NullString

			defID             *string
			defSourceID       *string
			defName           *string
			defPath           *string
			defMethod         *string
			defDescription    sql.NullString
			defRequestSchema  sql.NullString
			defResponseSchema sql.NullString
			defParameters     sql.NullString
			defRequiresAuth   *bool
			defCreatedAt      *time.Time

			sourceID         *string
			sourceName       *string
			sourceSwaggerURL *string
			sourceCreatedAt  *time.Time
		)

		err := rows.Scan(
			&rule.ID,
			&rule.PolicyID,
			&rule.ApiDefinitionID,
			&rule.Name,
			&description,
			&condition,
			&actionJSON,
			&rule.Order,
			&rule.Active,
			&rule.CreatedAt,
			&defID,
			&defSourceID,
			&defName,
			&defPath,
			&defMethod,
			&defDescription,
			&defRequestSchema,
			&defResponseSchema,
			&defParameters,
			&defRequiresAuth,
			&defCreatedAt,
			&sourceID,
			&sourceName,
			&sourceSwaggerURL,
			&sourceCreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.Description = description.String
		rule.Condition = condition.String
		rule.ActionJSON = actionJSON.String

		if defID != nil {
			definition := &models.ApiDefinition{
				ID:              *defID,
				SwaggerSourceID: *defSourceID,
				Name:            *defName,
				Path:            *defPath,
				Method:          *defMethod,
				Description:     defDescription.String,
				RequestSchema:   defRequestSchema.String,
				ResponseSchema:  defResponseSchema.String,
				Parameters:      defParameters.String,
				RequiresAuth:    *defRequiresAuth,
				CreatedAt:       *defCreatedAt,
			}

			if sourceID != nil {
				definition.SwaggerSource = &models.SwaggerSource{
					ID:         *sourceID,
					Name:       *sourceName,
					SwaggerURL: *sourceSwaggerURL,
					CreatedAt:  *sourceCreatedAt,
				}
			}

			rule.ApiDefinition = definition
		}

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rules: %w", err)
	}

	policy.Rules = rules

	return nil
}

func (r *PolicyRepository) loadAuthenticationSetting(ctx context.Context, policy *models.Policy) error {
	if policy.AuthenticationSettingID == nil {
		return nil
	}

	settings := NewAuthenticationSettingRepository(r.db, r.logger)

	setting, err := settings.GetByID(ctx, *policy.AuthenticationSettingID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return nil
		}

		return err
	}

	policy.AuthenticationSetting = setting

	return nil
}

// scanPolicy works for both sql.Row and sql.Rows.
func scanPolicy(row interface{ Scan(dest ...any) error }) (*models.Policy, error) {
	var (
		policy      models.Policy
		description sql.NullString
	)

	err := row.Scan(
		&policy.ID,
		&policy.Name,
		&description,
		&policy.AuthenticationSettingID,
		&policy.Active,
		&policy.CreatedAt,
		&policy.LastExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	policy.Description = description.String

	return &policy, nil
}
