package file

import (
	"context"
	"sort"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// PolicyRepository stores policies as JSON documents. Rules, API definitions
// and authentication settings live in their own collections; GetByID stitches
// them together so a policy loads ready to execute.
type PolicyRepository struct {
	policies       *collection[models.Policy]
	rules          *RuleRepository
	apiDefinitions *ApiDefinitionRepository
	swaggerSources *SwaggerSourceRepository
	authSettings   *AuthenticationSettingRepository
}

func NewPolicyRepository(
	root string,
	rules *RuleRepository,
	apiDefinitions *ApiDefinitionRepository,
	swaggerSources *SwaggerSourceRepository,
	authSettings *AuthenticationSettingRepository,
) *PolicyRepository {
	return &PolicyRepository{
		policies:       newCollection[models.Policy](root, "policies", persistence.ErrPolicyNotFound),
		rules:          rules,
		apiDefinitions: apiDefinitions,
		swaggerSources: swaggerSources,
		authSettings:   authSettings,
	}
}

// List returns all policies sorted by name, without rules attached.
func (pr *PolicyRepository) List(ctx context.Context) ([]*models.Policy, error) {
	policies, err := pr.policies.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(policies, func(i, j int) bool {
		return policies[i].Name < policies[j].Name
	})

	return policies, nil
}

// GetByID loads a policy with its rules in ascending order, each rule's API
// definition and swagger source, and the linked authentication setting.
func (pr *PolicyRepository) GetByID(ctx context.Context, id string) (*models.Policy, error) {
	policy, err := pr.policies.get(id)
	if err != nil {
		return nil, err
	}

	rules, err := pr.rules.ListByPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if rule.ApiDefinitionID == nil {
			continue
		}

		definition, err := pr.apiDefinitions.GetByID(ctx, *rule.ApiDefinitionID)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, err
		}

		source, err := pr.swaggerSources.GetByID(ctx, definition.SwaggerSourceID)
		if err == nil {
			definition.SwaggerSource = source
		} else if !persistence.IsNotFound(err) {
			return nil, err
		}

		rule.ApiDefinition = definition
	}

	policy.Rules = rules

	if policy.AuthenticationSettingID != nil {
		setting, err := pr.authSettings.GetByID(ctx, *policy.AuthenticationSettingID)
		if err == nil {
			policy.AuthenticationSetting = setting
		} else if !persistence.IsNotFound(err) {
			return nil, err
		}
	}

	return policy, nil
}

// Save persists the policy document. Attached rules and settings are not
// written here; they belong to their own repositories.
func (pr *PolicyRepository) Save(_ context.Context, policy *models.Policy) error {
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = time.Now().UTC()
	}

	stored := *policy
	stored.Rules = nil
	stored.AuthenticationSetting = nil

	return pr.policies.save(policy.ID, &stored)
}

// Delete removes the policy and its rules.
func (pr *PolicyRepository) Delete(ctx context.Context, id string) error {
	rules, err := pr.rules.ListByPolicy(ctx, id)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := pr.rules.Delete(ctx, rule.ID); err != nil {
			return err
		}
	}

	return pr.policies.delete(id)
}

// SetLastExecuted stamps the policy's last execution time.
func (pr *PolicyRepository) SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error {
	policy, err := pr.policies.get(id)
	if err != nil {
		return err
	}

	policy.LastExecutedAt = &executedAt

	return pr.policies.save(id, policy)
}
