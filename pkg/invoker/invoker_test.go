package invoker_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/invoker"
	"github.com/ruleflow-io/ruleflow/pkg/models"
)

func definitionFor(serverURL, path, method string) *models.ApiDefinition {
	return &models.ApiDefinition{
		ID:     "def-1",
		Name:   "test-api",
		Path:   path,
		Method: method,
		SwaggerSource: &models.SwaggerSource{
			ID:         "src-1",
			Name:       "test-source",
			SwaggerURL: serverURL + "/swagger/v1/swagger.json",
		},
	}
}

func TestInvokeGetFlattensQueryParameters(t *testing.T) {
	t.Parallel()

	var captured *http.Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	requestData := map[string]any{
		"UserId":   "7",
		"pageSize": float64(25),
	}

	result, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/users", "GET"), requestData, models.ExecutionContext{})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "/users", captured.URL.Path)
	assert.Equal(t, "7", captured.URL.Query().Get("userId"))
	assert.Equal(t, "25", captured.URL.Query().Get("pageSize"))

	decoded, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", decoded["status"])
}

func TestInvokePostSendsJSONBody(t *testing.T) {
	t.Parallel()

	var (
		capturedBody        []byte
		capturedContentType string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedBody, _ = io.ReadAll(r.Body)
		capturedContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"created-1"}`))
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	result, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/orders", "POST"),
		map[string]any{"total": float64(12)}, models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, "application/json", capturedContentType)
	assert.JSONEq(t, `{"total":12}`, string(capturedBody))
	assert.Equal(t, map[string]any{"id": "created-1"}, asPlainMap(t, result))
}

func TestInvokeAttachesContextToken(t *testing.T) {
	t.Parallel()

	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	execCtx := models.ExecutionContext{models.ContextAuthToken: "token-abc"}

	_, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/secure", "GET"), nil, execCtx)
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-abc", capturedAuth)
}

func TestInvokeNonSuccessStatusReturnsHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	result, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/flaky", "GET"), nil, models.ExecutionContext{})
	require.Error(t, err)
	assert.Nil(t, result)

	var httpErr *invoker.HTTPError

	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream down", httpErr.Body)
	assert.Contains(t, httpErr.Error(), "502")
}

func TestInvokeEmptyBodyYieldsNil(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	result, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/empty", "DELETE"), nil, models.ExecutionContext{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestInvokePreservesNumericFidelity(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":9007199254740993}`))
	}))
	defer server.Close()

	inv := invoker.NewInvoker(server.Client(), nil, slog.Default())

	result, err := inv.Invoke(context.Background(), definitionFor(server.URL, "/big", "GET"), nil, models.ExecutionContext{})
	require.NoError(t, err)

	decoded, ok := result.(map[string]any)
	require.True(t, ok)

	number, ok := decoded["id"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "9007199254740993", number.String())
}

func TestInvokeWithoutDefinitionFails(t *testing.T) {
	t.Parallel()

	inv := invoker.NewInvoker(nil, nil, slog.Default())

	_, err := inv.Invoke(context.Background(), nil, nil, models.ExecutionContext{})
	require.Error(t, err)
}

func asPlainMap(t *testing.T, value any) map[string]any {
	t.Helper()

	object, ok := value.(map[string]any)
	require.True(t, ok)

	plain := make(map[string]any, len(object))
	for key, item := range object {
		plain[key] = item
	}

	return plain
}
