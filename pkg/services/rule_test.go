package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
	"github.com/ruleflow-io/ruleflow/pkg/services"
)

func seedPolicy(t *testing.T, p *file.Persistence) *models.Policy {
	t.Helper()

	policy, err := services.NewPolicy(p).Create(context.Background(), &models.Policy{Name: "host policy", Active: true})
	require.NoError(t, err)

	return policy
}

func TestRuleCreate(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewRule(p)

	created, err := service.Create(context.Background(), &models.Rule{
		PolicyID:   policy.ID,
		Name:       "first step",
		Order:      1,
		Active:     true,
		ActionJSON: `{"type":"callApi"}`,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	rules, err := service.ListByPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "first step", rules[0].Name)
}

func TestRuleCreateValidation(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewRule(p)
	ctx := context.Background()

	tests := []struct {
		name     string
		rule     *models.Rule
		expected error
	}{
		{
			name:     "name required",
			rule:     &models.Rule{PolicyID: policy.ID, Name: "  "},
			expected: services.ErrRuleNameRequired,
		},
		{
			name:     "policy reference required",
			rule:     &models.Rule{Name: "orphan"},
			expected: services.ErrRulePolicyRequired,
		},
		{
			name:     "policy must exist",
			rule:     &models.Rule{PolicyID: "missing", Name: "dangling"},
			expected: services.ErrPolicyNotFound,
		},
		{
			name:     "action must be valid JSON",
			rule:     &models.Rule{PolicyID: policy.ID, Name: "broken action", ActionJSON: `{"type":`},
			expected: services.ErrInvalidActionJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := service.Create(ctx, tt.rule)
			require.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestRuleCreateRejectsUnknownApiDefinition(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewRule(p)

	missing := "missing-def"

	_, err := service.Create(context.Background(), &models.Rule{
		PolicyID:        policy.ID,
		Name:            "dangling definition",
		ApiDefinitionID: &missing,
	})
	require.ErrorIs(t, err, persistence.ErrApiDefinitionNotFound)
}

func TestRuleUpdatePreservesCreatedAt(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewRule(p)

	created, err := service.Create(context.Background(), &models.Rule{PolicyID: policy.ID, Name: "v1"})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), created.ID, &models.Rule{
		PolicyID: policy.ID,
		Name:     "v2",
		Order:    5,
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, 5, updated.Order)
}

func TestRuleDelete(t *testing.T) {
	t.Parallel()

	p := newStore(t)
	policy := seedPolicy(t, p)
	service := services.NewRule(p)

	created, err := service.Create(context.Background(), &models.Rule{PolicyID: policy.ID, Name: "temp"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID))
	require.ErrorIs(t, service.Delete(context.Background(), created.ID), services.ErrRuleNotFound)
}
