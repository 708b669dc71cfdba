package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

const defaultTokenLifetime = 3600 // seconds, when the endpoint omits expires_in

// TokenService acquires bearer tokens from the token endpoints described by
// authentication settings, caching them per setting name. Acquisition
// failures are reported as an empty token, never as an abort: the caller
// decides what a missing token means.
type TokenService struct {
	settings persistence.AuthenticationSettingRepository
	cache    TokenCache
	client   *http.Client
	logger   *slog.Logger
}

func NewTokenService(
	settings persistence.AuthenticationSettingRepository,
	cache TokenCache,
	client *http.Client,
	logger *slog.Logger,
) *TokenService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &TokenService{
		settings: settings,
		cache:    cache,
		client:   client,
		logger:   logger,
	}
}

// AcquireToken returns a token for the setting id, reusing the cache while
// at least five minutes of validity remain. It returns "" on any failure.
func (s *TokenService) AcquireToken(ctx context.Context, settingID string) string {
	setting, err := s.settings.GetByID(ctx, settingID)
	if err != nil || !setting.Active {
		s.logger.WarnContext(ctx, "Authentication setting not found or inactive", "setting_id", settingID, "error", err)

		return ""
	}

	return s.acquireFromSetting(ctx, setting)
}

// AcquireTokenByName is AcquireToken keyed by setting name instead of id.
func (s *TokenService) AcquireTokenByName(ctx context.Context, name string) string {
	setting, err := s.settings.GetByName(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "Authentication setting not found or inactive", "setting_name", name, "error", err)

		return ""
	}

	return s.acquireFromSetting(ctx, setting)
}

// AuthHeaders returns the headers a request should carry for the named
// setting: an Authorization bearer header when a token can be produced,
// otherwise an empty map.
func (s *TokenService) AuthHeaders(ctx context.Context, name string) map[string]string {
	headers := make(map[string]string)

	if name == "" {
		return headers
	}

	if token := s.AcquireTokenByName(ctx, name); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	return headers
}

func (s *TokenService) acquireFromSetting(ctx context.Context, setting *models.AuthenticationSetting) string {
	if token, ok := s.cache.Get(ctx, setting.Name); ok {
		return token
	}

	s.logger.InfoContext(ctx, "Acquiring new token", "endpoint", setting.TokenEndpoint, "setting", setting.Name)

	form := url.Values{}

	grantType := setting.GrantType
	if grantType == "" {
		grantType = "password"
	}

	form.Set("grant_type", grantType)
	form.Set("username", setting.Username)
	form.Set("password", setting.Password)

	if setting.ClientID != "" {
		form.Set("client_id", setting.ClientID)
	}

	if setting.ClientSecret != "" {
		form.Set("client_secret", setting.ClientSecret)
	}

	if setting.Scope != "" {
		form.Set("scope", setting.Scope)
	}

	if setting.AdditionalParameters != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(setting.AdditionalParameters), &extra); err != nil {
			s.logger.WarnContext(ctx, "Failed to parse additional token parameters", "setting", setting.Name, "error", err)
		} else {
			for key, value := range extra {
				form.Set(key, value)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, setting.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build token request", "endpoint", setting.TokenEndpoint, "error", err)

		return ""
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Token endpoint unreachable", "endpoint", setting.TokenEndpoint, "error", err)

		return ""
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read token response", "endpoint", setting.TokenEndpoint, "error", err)

		return ""
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.ErrorContext(ctx, "Token acquisition failed",
			"endpoint", setting.TokenEndpoint,
			"status", resp.StatusCode,
			"body", string(body))

		return ""
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}

	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		s.logger.ErrorContext(ctx, "Token response has no access_token", "endpoint", setting.TokenEndpoint, "error", err)

		return ""
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}

	s.cache.Set(ctx, setting.Name, payload.AccessToken, time.Duration(expiresIn)*time.Second)

	if err := s.settings.TouchLastUsed(ctx, setting.ID, time.Now().UTC()); err != nil {
		s.logger.WarnContext(ctx, "Failed to update setting last-used time", "setting", setting.Name, "error", err)
	}

	s.logger.InfoContext(ctx, "Token acquired", "setting", setting.Name, "expires_in", expiresIn)

	return payload.AccessToken
}
