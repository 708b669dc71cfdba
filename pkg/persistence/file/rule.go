package file

import (
	"context"
	"sort"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// RuleRepository stores rules as JSON documents, one per rule.
type RuleRepository struct {
	rules *collection[models.Rule]
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{
		rules: newCollection[models.Rule](root, "rules", persistence.ErrRuleNotFound),
	}
}

// ListByPolicy returns the policy's rules in ascending execution order.
func (rr *RuleRepository) ListByPolicy(_ context.Context, policyID string) ([]*models.Rule, error) {
	all, err := rr.rules.list()
	if err != nil {
		return nil, err
	}

	rules := make([]*models.Rule, 0)

	for _, rule := range all {
		if rule.PolicyID == policyID {
			rules = append(rules, rule)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Order < rules[j].Order
	})

	return rules, nil
}

func (rr *RuleRepository) GetByID(_ context.Context, id string) (*models.Rule, error) {
	return rr.rules.get(id)
}

func (rr *RuleRepository) Save(_ context.Context, rule *models.Rule) error {
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	stored := *rule
	stored.ApiDefinition = nil

	return rr.rules.save(rule.ID, &stored)
}

func (rr *RuleRepository) Delete(_ context.Context, id string) error {
	return rr.rules.delete(id)
}
