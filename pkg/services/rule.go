package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ErrRuleNotFound is returned when a rule is not found.
var ErrRuleNotFound = persistence.ErrRuleNotFound

// Rule is the CRUD service for policy rules.
type Rule struct {
	persistence persistence.Persistence
}

// NewRule creates a new rule service.
func NewRule(persistence persistence.Persistence) *Rule {
	return &Rule{persistence: persistence}
}

// ListByPolicy returns the policy's rules in ascending execution order.
func (r *Rule) ListByPolicy(ctx context.Context, policyID string) ([]*models.Rule, error) {
	if _, err := r.persistence.Policies().GetByID(ctx, policyID); err != nil {
		return nil, err
	}

	return r.persistence.Rules().ListByPolicy(ctx, policyID)
}

// FetchByID retrieves a rule by its ID.
func (r *Rule) FetchByID(ctx context.Context, id string) (*models.Rule, error) {
	return r.persistence.Rules().GetByID(ctx, id)
}

// Create adds a new rule to a policy.
func (r *Rule) Create(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	if err := r.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	rule.ID = uuid.New().String()
	rule.CreatedAt = time.Now().UTC()

	if err := r.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	return rule, nil
}

// Update modifies an existing rule by its ID.
func (r *Rule) Update(ctx context.Context, ruleID string, rule *models.Rule) (*models.Rule, error) {
	if err := r.validateRule(ctx, rule); err != nil {
		return nil, err
	}

	existing, err := r.persistence.Rules().GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	rule.ID = ruleID
	rule.CreatedAt = existing.CreatedAt

	if err := r.persistence.Rules().Save(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	return rule, nil
}

// Delete removes a rule by its ID.
func (r *Rule) Delete(ctx context.Context, ruleID string) error {
	if _, err := r.persistence.Rules().GetByID(ctx, ruleID); err != nil {
		return err
	}

	if err := r.persistence.Rules().Delete(ctx, ruleID); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return nil
}

func (r *Rule) validateRule(ctx context.Context, rule *models.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return ErrRuleNameRequired
	}

	if rule.PolicyID == "" {
		return ErrRulePolicyRequired
	}

	if _, err := r.persistence.Policies().GetByID(ctx, rule.PolicyID); err != nil {
		return err
	}

	if rule.ApiDefinitionID != nil {
		if _, err := r.persistence.ApiDefinitions().GetByID(ctx, *rule.ApiDefinitionID); err != nil {
			return err
		}
	}

	// Conditions are evaluated leniently at run time, but a stored action
	// that isn't even JSON would silently disable the rule's API call.
	if strings.TrimSpace(rule.ActionJSON) != "" {
		if !json.Valid([]byte(rule.ActionJSON)) {
			return NewValidationError("validateRule", "INVALID_ACTION_JSON",
				"action is not valid JSON", ErrInvalidActionJSON)
		}
	}

	return nil
}
