package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/auth"
	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
)

func newTokenServer(t *testing.T, requests *atomic.Int64, response string, status int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "svc-user", r.PostForm.Get("username"))
		assert.Equal(t, "svc-pass", r.PostForm.Get("password"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func saveSetting(t *testing.T, p *file.Persistence, endpoint string, active bool) *models.AuthenticationSetting {
	t.Helper()

	setting := &models.AuthenticationSetting{
		ID:            "auth-1",
		Name:          "core-auth",
		TokenEndpoint: endpoint,
		Username:      "svc-user",
		Password:      "svc-pass",
		Active:        active,
		CreatedAt:     time.Now().UTC(),
	}

	require.NoError(t, p.AuthenticationSettings().Save(context.Background(), setting))

	return setting
}

func TestAcquireTokenCachesPerSetting(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTokenServer(t, &requests, `{"access_token":"tok-1","expires_in":3600}`, http.StatusOK)
	defer server.Close()

	p := file.NewPersistence(t.TempDir())
	setting := saveSetting(t, p, server.URL, true)

	service := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), server.Client(), slog.Default())

	token := service.AcquireToken(context.Background(), setting.ID)
	assert.Equal(t, "tok-1", token)

	// Second acquisition must come from the cache.
	token = service.AcquireToken(context.Background(), setting.ID)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, int64(1), requests.Load())

	// LastUsedAt is updated on acquisition.
	stored, err := p.AuthenticationSettings().GetByID(context.Background(), setting.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt)
}

func TestAcquireTokenByName(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTokenServer(t, &requests, `{"access_token":"tok-2"}`, http.StatusOK)
	defer server.Close()

	p := file.NewPersistence(t.TempDir())
	setting := saveSetting(t, p, server.URL, true)

	service := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), server.Client(), slog.Default())

	assert.Equal(t, "tok-2", service.AcquireTokenByName(context.Background(), setting.Name))
}

func TestAcquireTokenFailuresYieldEmptyToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		status   int
		active   bool
	}{
		{
			name:     "endpoint rejects credentials",
			response: `{"error":"invalid_grant"}`,
			status:   http.StatusUnauthorized,
			active:   true,
		},
		{
			name:     "response has no access_token",
			response: `{"expires_in":3600}`,
			status:   http.StatusOK,
			active:   true,
		},
		{
			name:     "setting is inactive",
			response: `{"access_token":"tok"}`,
			status:   http.StatusOK,
			active:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var requests atomic.Int64

			server := newTokenServer(t, &requests, tt.response, tt.status)
			defer server.Close()

			p := file.NewPersistence(t.TempDir())
			setting := saveSetting(t, p, server.URL, tt.active)

			service := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), server.Client(), slog.Default())

			assert.Empty(t, service.AcquireToken(context.Background(), setting.ID))
		})
	}
}

func TestAcquireTokenUnknownSetting(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	service := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), nil, slog.Default())

	assert.Empty(t, service.AcquireToken(context.Background(), "missing"))
}

func TestAuthHeaders(t *testing.T) {
	t.Parallel()

	var requests atomic.Int64

	server := newTokenServer(t, &requests, `{"access_token":"tok-3"}`, http.StatusOK)
	defer server.Close()

	p := file.NewPersistence(t.TempDir())
	setting := saveSetting(t, p, server.URL, true)

	service := auth.NewTokenService(p.AuthenticationSettings(), auth.NewMemoryTokenCache(), server.Client(), slog.Default())

	headers := service.AuthHeaders(context.Background(), setting.Name)
	assert.Equal(t, map[string]string{"Authorization": "Bearer tok-3"}, headers)

	assert.Empty(t, service.AuthHeaders(context.Background(), ""))
}

func TestMemoryTokenCacheValidityMargin(t *testing.T) {
	t.Parallel()

	cache := auth.NewMemoryTokenCache()
	ctx := context.Background()

	cache.Set(ctx, "short", "tok-short", time.Minute)

	_, ok := cache.Get(ctx, "short")
	assert.False(t, ok, "tokens inside the five-minute validity margin must not be served")

	cache.Set(ctx, "long", "tok-long", time.Hour)

	token, ok := cache.Get(ctx, "long")
	assert.True(t, ok)
	assert.Equal(t, "tok-long", token)

	_, ok = cache.Get(ctx, "unknown")
	assert.False(t, ok)
}
