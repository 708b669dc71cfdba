// Package web provides HTTP request and response types for the policy API.
package web

// CreatePolicyRequest represents the request body for creating a new policy.
type CreatePolicyRequest struct {
	Name                    string  `json:"name"        validate:"required,min=3"`
	Description             string  `json:"description"`
	AuthenticationSettingID *string `json:"authentication_setting_id,omitempty"`
	Active                  bool    `json:"active"`
}

// UpdatePolicyRequest represents the request body for updating an existing
// policy. The full document is replaced; rules are managed separately.
type UpdatePolicyRequest struct {
	Name                    string  `json:"name"        validate:"required,min=3"`
	Description             string  `json:"description"`
	AuthenticationSettingID *string `json:"authentication_setting_id,omitempty"`
	Active                  bool    `json:"active"`
}

// RuleRequest represents the request body for creating or updating a rule.
type RuleRequest struct {
	PolicyID        string  `json:"policy_id"   validate:"required"`
	ApiDefinitionID *string `json:"api_definition_id,omitempty"`
	Name            string  `json:"name"        validate:"required"`
	Description     string  `json:"description"`
	Condition       string  `json:"condition"`
	ActionJSON      string  `json:"action_json"`
	Order           int     `json:"order"`
	Active          bool    `json:"active"`
}

// CreateScheduleRequest represents the request body for creating a schedule.
type CreateScheduleRequest struct {
	PolicyID       string `json:"policy_id"       validate:"required"`
	CronExpression string `json:"cron_expression" validate:"required"`
}

// UpdateScheduleRequest represents the request body for updating a schedule.
type UpdateScheduleRequest struct {
	CronExpression string `json:"cron_expression" validate:"required"`
	Active         bool   `json:"active"`
}

// AuthSettingRequest represents the request body for creating or updating an
// authentication setting.
type AuthSettingRequest struct {
	Name                 string `json:"name"           validate:"required"`
	TokenEndpoint        string `json:"token_endpoint" validate:"required,url"`
	Username             string `json:"username"       validate:"required"`
	Password             string `json:"password"       validate:"required"`
	GrantType            string `json:"grant_type"`
	ClientID             string `json:"client_id"`
	ClientSecret         string `json:"client_secret"`
	Scope                string `json:"scope"`
	AdditionalParameters string `json:"additional_parameters"`
	Active               bool   `json:"active"`
}

// SwaggerSourceRequest represents the request body for creating or updating
// a swagger source.
type SwaggerSourceRequest struct {
	Name       string `json:"name"        validate:"required"`
	SwaggerURL string `json:"swagger_url" validate:"required,url"`
}

// ApiDefinitionRequest represents the request body for creating or updating
// an API definition.
type ApiDefinitionRequest struct {
	SwaggerSourceID string `json:"swagger_source_id" validate:"required"`
	Name            string `json:"name"              validate:"required"`
	Path            string `json:"path"              validate:"required"`
	Method          string `json:"method"            validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Description     string `json:"description"`
	RequestSchema   string `json:"request_schema"`
	ResponseSchema  string `json:"response_schema"`
	Parameters      string `json:"parameters"`
	RequiresAuth    bool   `json:"requires_auth"`
}

// ExecutePolicyRequest represents the optional request body for a manual
// policy run. The initial context seeds the first rule's input.
type ExecutePolicyRequest struct {
	InitialContext map[string]any `json:"initial_context,omitempty"`
}
