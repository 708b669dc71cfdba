package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Rule is one step of a policy: an API call gated by an optional condition,
// with optional input/output mapping. Condition and ActionJSON are opaque
// strings at rest and parsed lazily at evaluation time.
type Rule struct {
	ID              string         `json:"id"`
	PolicyID        string         `json:"policy_id"       validate:"required"`
	ApiDefinitionID *string        `json:"api_definition_id,omitempty"`
	ApiDefinition   *ApiDefinition `json:"api_definition,omitempty"`
	Name            string         `json:"name"            validate:"required"`
	Description     string         `json:"description,omitempty"`
	Condition       string         `json:"condition,omitempty"`
	ActionJSON      string         `json:"action_json,omitempty"`
	Order           int            `json:"order"`
	Active          bool           `json:"active"`
	CreatedAt       time.Time      `json:"created_at"`
}

// RuleAction is the decoded form of Rule.ActionJSON. The original payloads
// used both inputMapping/requestMapping and mapping/outputMapping spellings,
// so both are accepted.
type RuleAction struct {
	Type           string `json:"type"`
	InputMapping   any    `json:"inputMapping,omitempty"`
	RequestMapping any    `json:"requestMapping,omitempty"`
	Mapping        any    `json:"mapping,omitempty"`
	OutputMapping  any    `json:"outputMapping,omitempty"`
}

// Action decodes ActionJSON. An empty or malformed payload yields nil, not
// an error: rules without a parseable action simply have no mapping step.
func (r *Rule) Action() *RuleAction {
	if strings.TrimSpace(r.ActionJSON) == "" {
		return nil
	}

	var action RuleAction
	if err := json.Unmarshal([]byte(r.ActionJSON), &action); err != nil {
		return nil
	}

	return &action
}

// RequestMappingTemplate returns the input-side mapping template, or nil
// when the action carries none.
func (a *RuleAction) RequestMappingTemplate() any {
	if a == nil {
		return nil
	}

	if !isEmptyMapping(a.InputMapping) {
		return a.InputMapping
	}

	if !isEmptyMapping(a.RequestMapping) {
		return a.RequestMapping
	}

	return nil
}

// ResultMappingTemplate returns the output-side mapping template, or nil
// when the action carries none.
func (a *RuleAction) ResultMappingTemplate() any {
	if a == nil {
		return nil
	}

	if !isEmptyMapping(a.Mapping) {
		return a.Mapping
	}

	if !isEmptyMapping(a.OutputMapping) {
		return a.OutputMapping
	}

	return nil
}

// isEmptyMapping treats nil and zero-length objects/arrays as "no mapping",
// mirroring the has-values check the engine has always applied.
func isEmptyMapping(mapping any) bool {
	switch v := mapping.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}
