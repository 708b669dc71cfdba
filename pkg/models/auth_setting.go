package models

import "time"

// AuthenticationSetting describes an OAuth-like token endpoint used to
// acquire bearer tokens for policies whose APIs require authentication.
type AuthenticationSetting struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"           validate:"required"`
	TokenEndpoint string     `json:"token_endpoint" validate:"required,url"`
	Username      string     `json:"username"       validate:"required"`
	Password      string     `json:"password"       validate:"required"`
	GrantType     string     `json:"grant_type,omitempty"`
	ClientID      string     `json:"client_id,omitempty"`
	ClientSecret  string     `json:"client_secret,omitempty"`
	Scope         string     `json:"scope,omitempty"`
	// AdditionalParameters is a JSON-encoded string map of extra form
	// fields sent with the token request.
	AdditionalParameters string     `json:"additional_parameters,omitempty"`
	Active               bool       `json:"active"`
	CreatedAt            time.Time  `json:"created_at"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
}
