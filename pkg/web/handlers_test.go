package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/executor"
	"github.com/ruleflow-io/ruleflow/pkg/invoker"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
	"github.com/ruleflow-io/ruleflow/pkg/scheduler"
	"github.com/ruleflow-io/ruleflow/pkg/services"
	"github.com/ruleflow-io/ruleflow/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := slog.Default()

	tokens := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), nil, logger)
	exec := executor.NewExecutor(p, invoker.NewInvoker(nil, tokens, logger), tokens, logger)
	sched := scheduler.NewScheduler(p.Schedules(), exec, logger)

	handlers := web.NewAPIHandlers(
		services.NewPolicy(p),
		services.NewRule(p),
		services.NewSchedule(p),
		services.NewCatalog(p),
		services.NewAuthSetting(p),
		exec,
		sched,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()

	pg := app.Group("/policies")
	pg.Get("/", handlers.GetPolicies)
	pg.Post("/", handlers.CreatePolicy)
	pg.Get("/:id", handlers.GetPolicy)
	pg.Put("/:id", handlers.UpdatePolicy)
	pg.Delete("/:id", handlers.DeletePolicy)
	pg.Post("/:id/execute", handlers.ExecutePolicy)
	pg.Get("/:id/logs", handlers.GetPolicyLogs)
	pg.Get("/:id/rules", handlers.GetPolicyRules)

	rg := app.Group("/rules")
	rg.Post("/", handlers.CreateRule)
	rg.Get("/:id", handlers.GetRule)
	rg.Put("/:id", handlers.UpdateRule)
	rg.Delete("/:id", handlers.DeleteRule)

	sg := app.Group("/schedules")
	sg.Get("/", handlers.GetSchedules)
	sg.Post("/", handlers.CreateSchedule)
	sg.Get("/:id", handlers.GetSchedule)
	sg.Put("/:id", handlers.UpdateSchedule)
	sg.Delete("/:id", handlers.DeleteSchedule)

	app.Post("/scheduler/start", handlers.StartScheduler)
	app.Post("/scheduler/stop", handlers.StopScheduler)
	app.Get("/scheduler/status", handlers.SchedulerStatus)

	ag := app.Group("/authentication-settings")
	ag.Post("/", handlers.CreateAuthSetting)
	ag.Get("/:id", handlers.GetAuthSetting)

	app.Get("/health", handlers.HealthCheck)

	return app, p
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload any) *http.Response {
	t.Helper()

	var body io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, target))
}

func TestCreatePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreatePolicyRequest{
				Name:        "Invoice Sync",
				Description: "Nightly invoice synchronization",
				Active:      true,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreatePolicyRequest{Description: "no name"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "validation error - name too short",
			requestBody:    web.CreatePolicyRequest{Name: "ab"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp := doJSON(t, app, http.MethodPost, "/policies/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var policy models.Policy

				decodeBody(t, resp, &policy)
				assert.NotEmpty(t, policy.ID)
				assert.Equal(t, "Invoice Sync", policy.Name)
				assert.True(t, policy.Active)
			} else {
				_ = resp.Body.Close()
			}
		})
	}
}

func TestGetPolicyNotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/policies/missing", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "json")
}

func TestPolicyLifecycle(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/policies/", web.CreatePolicyRequest{Name: "Lifecycle", Active: true})

	var created models.Policy

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &created)

	resp = doJSON(t, app, http.MethodPut, "/policies/"+created.ID, web.UpdatePolicyRequest{Name: "Lifecycle v2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Policy

	decodeBody(t, resp, &updated)
	assert.Equal(t, "Lifecycle v2", updated.Name)
	assert.False(t, updated.Active)

	resp = doJSON(t, app, http.MethodDelete, "/policies/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/policies/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCreateRuleForPolicy(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/policies/", web.CreatePolicyRequest{Name: "Rule host", Active: true})

	var policy models.Policy

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &policy)

	resp = doJSON(t, app, http.MethodPost, "/rules/", web.RuleRequest{
		PolicyID:   policy.ID,
		Name:       "call billing",
		Order:      1,
		Active:     true,
		ActionJSON: `{"type":"callApi"}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rule models.Rule

	decodeBody(t, resp, &rule)
	assert.NotEmpty(t, rule.ID)

	resp = doJSON(t, app, http.MethodGet, "/policies/"+policy.ID+"/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rules []models.Rule

	decodeBody(t, resp, &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, "call billing", rules[0].Name)
}

func TestCreateRuleInvalidActionJSON(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/policies/", web.CreatePolicyRequest{Name: "Rule host"})

	var policy models.Policy

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &policy)

	resp = doJSON(t, app, http.MethodPost, "/rules/", web.RuleRequest{
		PolicyID:   policy.ID,
		Name:       "broken",
		ActionJSON: `{"type":`,
	})
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleEndpoints(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/policies/", web.CreatePolicyRequest{Name: "Scheduled", Active: true})

	var policy models.Policy

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &policy)

	resp = doJSON(t, app, http.MethodPost, "/schedules/", web.CreateScheduleRequest{
		PolicyID:       policy.ID,
		CronExpression: "*/15 * * * *",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var schedule models.PolicySchedule

	decodeBody(t, resp, &schedule)
	assert.NotEmpty(t, schedule.ID)
	assert.NotNil(t, schedule.NextRunAt)

	resp = doJSON(t, app, http.MethodPost, "/schedules/", web.CreateScheduleRequest{
		PolicyID:       policy.ID,
		CronExpression: "not a cron",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestExecutePolicyEndpoint(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)

	// A policy without rules executes successfully and returns a result.
	require.NoError(t, p.Policies().Save(context.Background(), &models.Policy{
		ID: "p-run", Name: "runnable", Active: true,
	}))

	resp := doJSON(t, app, http.MethodPost, "/policies/p-run/execute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.PolicyResult

	decodeBody(t, resp, &result)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Zero(t, result.RulesExecuted)
}

func TestExecuteInactivePolicyConflicts(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)

	require.NoError(t, p.Policies().Save(context.Background(), &models.Policy{
		ID: "p-off", Name: "disabled",
	}))

	resp := doJSON(t, app, http.MethodPost, "/policies/p-off/execute", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExecuteUnknownPolicyNotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/policies/missing/execute", nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSchedulerControlEndpoints(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/scheduler/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]bool

	decodeBody(t, resp, &status)
	assert.True(t, status["running"])

	resp = doJSON(t, app, http.MethodPost, "/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status["running"])

	resp = doJSON(t, app, http.MethodGet, "/scheduler/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &status)
	assert.False(t, status["running"])
}

func TestAuthSettingEndpoints(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/authentication-settings/", web.AuthSettingRequest{
		Name:          "core-auth",
		TokenEndpoint: "https://auth.internal/connect/token",
		Username:      "svc",
		Password:      "secret",
		Active:        true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var setting models.AuthenticationSetting

	decodeBody(t, resp, &setting)
	assert.NotEmpty(t, setting.ID)

	resp = doJSON(t, app, http.MethodGet, "/authentication-settings/"+setting.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Token endpoint must be a URL.
	resp = doJSON(t, app, http.MethodPost, "/authentication-settings/", web.AuthSettingRequest{
		Name:          "bad",
		TokenEndpoint: "not-a-url",
		Username:      "svc",
		Password:      "secret",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any

	decodeBody(t, resp, &payload)
	assert.Equal(t, "healthy", payload["status"])
}
