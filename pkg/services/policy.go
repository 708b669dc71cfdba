package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ErrPolicyNotFound is returned when a policy is not found.
var ErrPolicyNotFound = persistence.ErrPolicyNotFound

// Policy is the CRUD service for policies and their execution logs.
type Policy struct {
	persistence persistence.Persistence
}

// NewPolicy creates a new policy service.
func NewPolicy(persistence persistence.Persistence) *Policy {
	return &Policy{persistence: persistence}
}

// HealthCheck checks the health of the persistence layer.
func (p *Policy) HealthCheck(ctx context.Context) (string, bool) {
	if p.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := p.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List retrieves all policies without their rules.
func (p *Policy) List(ctx context.Context) ([]*models.Policy, error) {
	policies, err := p.persistence.Policies().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	return policies, nil
}

// FetchByID retrieves a policy with rules and linked settings attached.
func (p *Policy) FetchByID(ctx context.Context, id string) (*models.Policy, error) {
	return p.persistence.Policies().GetByID(ctx, id)
}

// Create adds a new policy.
func (p *Policy) Create(ctx context.Context, policy *models.Policy) (*models.Policy, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	policy.ID = uuid.New().String()
	policy.CreatedAt = time.Now().UTC()

	if err := p.persistence.Policies().Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	return policy, nil
}

// Update modifies an existing policy by its ID.
func (p *Policy) Update(ctx context.Context, policyID string, policy *models.Policy) (*models.Policy, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	existing, err := p.persistence.Policies().GetByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	policy.ID = policyID
	policy.CreatedAt = existing.CreatedAt

	if err := p.persistence.Policies().Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	return policy, nil
}

// Delete removes a policy and its rules.
func (p *Policy) Delete(ctx context.Context, policyID string) error {
	if _, err := p.persistence.Policies().GetByID(ctx, policyID); err != nil {
		return err
	}

	if err := p.persistence.Policies().Delete(ctx, policyID); err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	return nil
}

// Logs returns the policy's execution log entries, newest first.
func (p *Policy) Logs(ctx context.Context, policyID string, limit int) ([]*models.ExecutionLog, error) {
	if _, err := p.persistence.Policies().GetByID(ctx, policyID); err != nil {
		return nil, err
	}

	entries, err := p.persistence.ExecutionLogs().ListByPolicy(ctx, policyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}

	return entries, nil
}

func validatePolicy(policy *models.Policy) error {
	if policy == nil {
		return ErrPolicyNil
	}

	if strings.TrimSpace(policy.Name) == "" {
		return ErrPolicyNameRequired
	}

	return nil
}
