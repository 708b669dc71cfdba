package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// AuthenticationSettingRepository handles token endpoint configurations.
type AuthenticationSettingRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewAuthenticationSettingRepository(db *sql.DB, logger *slog.Logger) *AuthenticationSettingRepository {
	return &AuthenticationSettingRepository{db: db, logger: logger}
}

const authSettingColumns = `
	id
  , name
  , token_endpoint
  , username
  , password
  , grant_type
  , client_id
  , client_secret
  , scope
  , additional_parameters
  , active
  , created_at
  , last_used_at
`

func (r *AuthenticationSettingRepository) List(ctx context.Context) ([]*models.AuthenticationSetting, error) {
	query := `SELECT ` + authSettingColumns + ` FROM authentication_settings ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query authentication settings: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	settings := make([]*models.AuthenticationSetting, 0)

	for rows.Next() {
		setting, err := scanAuthenticationSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan authentication setting: %w", err)
		}

		settings = append(settings, setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authentication settings: %w", err)
	}

	return settings, nil
}

func (r *AuthenticationSettingRepository) GetByID(ctx context.Context, id string) (*models.AuthenticationSetting, error) {
	query := `SELECT ` + authSettingColumns + ` FROM authentication_settings WHERE id = $1`

	setting, err := scanAuthenticationSetting(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrAuthenticationSettingNotFound)
		}

		return nil, fmt.Errorf("failed to scan authentication setting: %w", err)
	}

	return setting, nil
}

// GetByName returns the active setting with the given name.
func (r *AuthenticationSettingRepository) GetByName(ctx context.Context, name string) (*models.AuthenticationSetting, error) {
	query := `SELECT ` + authSettingColumns + ` FROM authentication_settings WHERE name = $1 AND active = true LIMIT 1`

	setting, err := scanAuthenticationSetting(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", name, persistence.ErrAuthenticationSettingNotFound)
		}

		return nil, fmt.Errorf("failed to scan authentication setting: %w", err)
	}

	return setting, nil
}

func (r *AuthenticationSettingRepository) Save(ctx context.Context, setting *models.AuthenticationSetting) error {
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = time.Now().UTC()
	}

	if setting.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate authentication setting ID: %w", err)
		}

		setting.ID = id.String()
	}

	query := `
		INSERT INTO authentication_settings (id, name, token_endpoint, username, password, grant_type, client_id, client_secret, scope, additional_parameters, active, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			token_endpoint = EXCLUDED.token_endpoint,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			grant_type = EXCLUDED.grant_type,
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			scope = EXCLUDED.scope,
			additional_parameters = EXCLUDED.additional_parameters,
			active = EXCLUDED.active,
			last_used_at = EXCLUDED.last_used_at
	`

	_, err := r.db.ExecContext(ctx, query,
		setting.ID,
		setting.Name,
		setting.TokenEndpoint,
		setting.Username,
		setting.Password,
		setting.GrantType,
		setting.ClientID,
		setting.ClientSecret,
		setting.Scope,
		setting.AdditionalParameters,
		setting.Active,
		setting.CreatedAt,
		setting.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save authentication setting: %w", err)
	}

	return nil
}

func (r *AuthenticationSettingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM authentication_settings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete authentication setting: %w", err)
	}

	return nil
}

func (r *AuthenticationSettingRepository) TouchLastUsed(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE authentication_settings SET last_used_at = $2 WHERE id = $1", id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to update setting last-used time: %w", err)
	}

	return nil
}

func scanAuthenticationSetting(row interface{ Scan(dest ...any) error }) (*models.AuthenticationSetting, error) {
	var (
		setting              models.AuthenticationSetting
		grantType            sql.NullString
		clientID             sql.NullString
		clientSecret         sql.NullString
		scope                sql.NullString
		additionalParameters sql.NullString
	)

	err := row.Scan(
		&setting.ID,
		&setting.Name,
		&setting.TokenEndpoint,
		&setting.Username,
		&setting.Password,
		&grantType,
		&clientID,
		&clientSecret,
		&scope,
		&additionalParameters,
		&setting.Active,
		&setting.CreatedAt,
		&setting.LastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	setting.GrantType = grantType.String
	setting.ClientID = clientID.String
	setting.ClientSecret = clientSecret.String
	setting.Scope = scope.String
	setting.AdditionalParameters = additionalParameters.String

	return &setting, nil
}
