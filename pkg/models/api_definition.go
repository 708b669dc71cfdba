package models

import "time"

// SwaggerSource points at an OpenAPI document. Only its URL participates in
// execution: scheme, host and port become the base URL for every
// ApiDefinition imported from it.
type SwaggerSource struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"        validate:"required"`
	SwaggerURL string    `json:"swagger_url" validate:"required,url"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApiDefinition is one catalog entry imported from a swagger source: a
// method and path, plus the schemas the source declared for it.
type ApiDefinition struct {
	ID              string         `json:"id"`
	SwaggerSourceID string         `json:"swagger_source_id" validate:"required"`
	SwaggerSource   *SwaggerSource `json:"swagger_source,omitempty"`
	Name            string         `json:"name"   validate:"required"`
	Path            string         `json:"path"   validate:"required"`
	Method          string         `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Description     string         `json:"description,omitempty"`
	RequestSchema   string         `json:"request_schema,omitempty"`
	ResponseSchema  string         `json:"response_schema,omitempty"`
	Parameters      string         `json:"parameters,omitempty"`
	RequiresAuth    bool           `json:"requires_auth"`
	CreatedAt       time.Time      `json:"created_at"`
}
