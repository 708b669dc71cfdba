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

// RuleRepository handles rule-related database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
	id
  , policy_id
  , api_definition_id
  , name
  , description
  , condition
  , action_json
  , rule_order
  , active
  , created_at
`

// ListByPolicy returns the policy's rules in ascending execution order.
func (r *RuleRepository) ListByPolicy(ctx context.Context, policyID string) ([]*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE policy_id = $1 ORDER BY rule_order`

	rows, err := r.db.QueryContext(ctx, query, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrRuleNotFound)
		}

		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.Rule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	if rule.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate rule ID: %w", err)
		}

		rule.ID = id.String()
	}

	query := `
		INSERT INTO rules (id, policy_id, api_definition_id, name, description, condition, action_json, rule_order, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			policy_id = EXCLUDED.policy_id,
			api_definition_id = EXCLUDED.api_definition_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			condition = EXCLUDED.condition,
			action_json = EXCLUDED.action_json,
			rule_order = EXCLUDED.rule_order,
			active = EXCLUDED.active
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.PolicyID,
		rule.ApiDefinitionID,
		rule.Name,
		rule.Description,
		rule.Condition,
		rule.ActionJSON,
		rule.Order,
		rule.Active,
		rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return nil
}

func scanRule(row interface{ Scan(dest ...any) error }) (*models.Rule, error) {
	var (
		rule        models.Rule
		description sql.NullString
		condition   sql.NullString
		actionJSON  sql.NullString
	)

	err := row.Scan(
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
	)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Condition = condition.String
	rule.ActionJSON = actionJSON.String

	return &rule, nil
}
