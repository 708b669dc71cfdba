package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruleflow-io/ruleflow/pkg/models"
)

func TestActiveRulesOrdering(t *testing.T) {
	t.Parallel()

	policy := &models.Policy{
		ID:   "p-1",
		Name: "ordering",
		Rules: []*models.Rule{
			{ID: "r-c", Order: 2, Active: true},
			{ID: "r-a", Order: 1, Active: true},
			{ID: "r-disabled", Order: 0, Active: false},
			{ID: "r-b", Order: 1, Active: true},
		},
	}

	active := policy.ActiveRules()

	ids := make([]string, 0, len(active))
	for _, rule := range active {
		ids = append(ids, rule.ID)
	}

	// Equal orders keep their original relative position.
	assert.Equal(t, []string{"r-a", "r-b", "r-c"}, ids)
}

func TestActiveRulesEmptyPolicy(t *testing.T) {
	t.Parallel()

	policy := &models.Policy{ID: "p-2", Name: "empty"}

	assert.Empty(t, policy.ActiveRules())
}
