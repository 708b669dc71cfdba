// Package invoker builds and sends the HTTP request behind one rule
// invocation and decodes the response for downstream mapping and condition
// evaluation.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/template"
)

// fallbackBaseURL is used when the swagger source URL cannot be parsed.
const fallbackBaseURL = "https://localhost"

// HTTPError carries a non-success response back to the policy executor,
// which treats it as fatal for the whole run.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API call failed: %d - %s", e.StatusCode, e.Body)
}

// Invoker sends rule API calls over a plain HTTP client.
type Invoker struct {
	client *http.Client
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewInvoker(client *http.Client, tokens *auth.TokenService, logger *slog.Logger) *Invoker {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Invoker{
		client: client,
		tokens: tokens,
		logger: logger,
	}
}

// Invoke executes the API definition with requestData. GET requests flatten
// the data into camelCased query parameters; POST/PUT/PATCH send it as a
// JSON body. A bearer token from the execution context wins over the token
// service fallback. Non-success statuses return an *HTTPError; success
// returns the decoded JSON body with numeric fidelity preserved.
func (i *Invoker) Invoke(
	ctx context.Context,
	definition *models.ApiDefinition,
	requestData any,
	execCtx models.ExecutionContext,
) (any, error) {
	if definition == nil {
		return nil, fmt.Errorf("rule has no API definition")
	}

	fullURL := i.baseURL(definition) + definition.Path
	method := strings.ToUpper(definition.Method)

	i.validateRequestSchema(ctx, definition, requestData)

	var body io.Reader

	switch method {
	case http.MethodGet:
		if query := encodeQuery(requestData); query != "" {
			fullURL += "?" + query
		}
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if requestData != nil {
			encoded, err := json.Marshal(requestData)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}

			body = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", method, fullURL, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	i.attachAuth(ctx, req, definition, execCtx)

	i.logger.InfoContext(ctx, "Invoking rule API", "method", method, "url", fullURL)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", fullURL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", fullURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}

	if len(responseBody) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(responseBody))
	decoder.UseNumber()

	var result any
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", fullURL, err)
	}

	return result, nil
}

// attachAuth prefers the token already in the execution context; otherwise,
// for APIs that require auth, it falls back to the token service keyed by
// the context's auth setting name.
func (i *Invoker) attachAuth(ctx context.Context, req *http.Request, definition *models.ApiDefinition, execCtx models.ExecutionContext) {
	if token, ok := execCtx[models.ContextAuthToken].(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)

		return
	}

	if !definition.RequiresAuth || i.tokens == nil {
		return
	}

	settingName, _ := execCtx[models.ContextAuthSettingName].(string)
	for key, value := range i.tokens.AuthHeaders(ctx, settingName) {
		req.Header.Set(key, value)
	}
}

// baseURL derives scheme://host:port from the linked swagger source URL.
func (i *Invoker) baseURL(definition *models.ApiDefinition) string {
	if definition.SwaggerSource == nil {
		return fallbackBaseURL
	}

	parsed, err := url.Parse(definition.SwaggerSource.SwaggerURL)
	if err != nil || parsed.Scheme == "" || parsed.Hostname() == "" {
		return fallbackBaseURL
	}

	port := parsed.Port()
	if port == "" {
		switch parsed.Scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}

	if port == "" {
		return parsed.Scheme + "://" + parsed.Hostname()
	}

	return parsed.Scheme + "://" + parsed.Hostname() + ":" + port
}

// validateRequestSchema checks the payload against the definition's request
// schema when one was imported. Violations are logged as warnings only; no
// schema is enforced at write time and none is enforced here either.
func (i *Invoker) validateRequestSchema(ctx context.Context, definition *models.ApiDefinition, requestData any) {
	if definition.RequestSchema == "" || requestData == nil {
		return
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definition.RequestSchema),
		gojsonschema.NewGoLoader(requestData),
	)
	if err != nil {
		i.logger.WarnContext(ctx, "Request schema validation unavailable", "api", definition.Name, "error", err)

		return
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			details = append(details, violation.String())
		}

		i.logger.WarnContext(ctx, "Request payload does not match the imported schema",
			"api", definition.Name,
			"violations", strings.Join(details, "; "))
	}
}

// encodeQuery flattens an object payload into percent-encoded query
// parameters with camelCased names. Non-object payloads contribute no
// parameters.
func encodeQuery(requestData any) string {
	object, ok := asObject(requestData)
	if !ok {
		return ""
	}

	values := url.Values{}
	for key, value := range object {
		values.Set(camelCase(key), template.Stringify(value))
	}

	return values.Encode()
}

func asObject(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case models.ExecutionContext:
		return v, true
	default:
		return nil, false
	}
}

// camelCase lowers the first character so PascalCased fields coming out of
// upstream APIs line up with camelCased query parameter conventions.
func camelCase(name string) string {
	if name == "" {
		return name
	}

	runes := []rune(name)
	if unicode.IsLower(runes[0]) {
		return name
	}

	runes[0] = unicode.ToLower(runes[0])

	return string(runes)
}
