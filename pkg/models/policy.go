// Package models defines the core domain models for policy-driven API automation.
package models

import "time"

// Policy is an ordered, named automation consisting of rules, optionally
// bound to one authentication setting used to acquire a bearer token before
// any rule runs.
type Policy struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"                                validate:"required,min=3"`
	Description             string     `json:"description,omitempty"`
	AuthenticationSettingID *string    `json:"authentication_setting_id,omitempty"`
	AuthenticationSetting   *AuthenticationSetting `json:"authentication_setting,omitempty"`
	Rules                   []*Rule    `json:"rules"`
	Active                  bool       `json:"active"`
	CreatedAt               time.Time  `json:"created_at"`
	LastExecutedAt          *time.Time `json:"last_executed_at,omitempty"`
}

// ActiveRules returns the active rules in ascending execution order.
// Ties on Order keep their original relative position.
func (p *Policy) ActiveRules() []*Rule {
	active := make([]*Rule, 0, len(p.Rules))

	for _, rule := range p.Rules {
		if rule.Active {
			active = append(active, rule)
		}
	}

	// Insertion sort keeps the sort stable without pulling in sort.SliceStable
	// for what is almost always a handful of rules.
	for i := 1; i < len(active); i++ {
		for j := i; j > 0 && active[j-1].Order > active[j].Order; j-- {
			active[j-1], active[j] = active[j], active[j-1]
		}
	}

	return active
}
