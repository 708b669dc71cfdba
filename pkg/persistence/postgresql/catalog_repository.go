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

// ApiDefinitionRepository handles the API catalog entries imported from
// swagger sources.
type ApiDefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApiDefinitionRepository(db *sql.DB, logger *slog.Logger) *ApiDefinitionRepository {
	return &ApiDefinitionRepository{db: db, logger: logger}
}

const apiDefinitionColumns = `
	id
  , swagger_source_id
  , name
  , path
  , method
  , description
  , request_schema
  , response_schema
  , parameters
  , requires_auth
  , created_at
`

func (r *ApiDefinitionRepository) List(ctx context.Context) ([]*models.ApiDefinition, error) {
	query := `SELECT ` + apiDefinitionColumns + ` FROM api_definitions ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query api definitions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	definitions := make([]*models.ApiDefinition, 0)

	for rows.Next() {
		definition, err := scanApiDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api definition: %w", err)
		}

		definitions = append(definitions, definition)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating api definitions: %w", err)
	}

	return definitions, nil
}

func (r *ApiDefinitionRepository) GetByID(ctx context.Context, id string) (*models.ApiDefinition, error) {
	query := `SELECT ` + apiDefinitionColumns + ` FROM api_definitions WHERE id = $1`

	definition, err := scanApiDefinition(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrApiDefinitionNotFound)
		}

		return nil, fmt.Errorf("failed to scan api definition: %w", err)
	}

	return definition, nil
}

func (r *ApiDefinitionRepository) Save(ctx context.Context, definition *models.ApiDefinition) error {
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = time.Now().UTC()
	}

	if definition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate api definition ID: %w", err)
		}

		definition.ID = id.String()
	}

	query := `
		INSERT INTO api_definitions (id, swagger_source_id, name, path, method, description, request_schema, response_schema, parameters, requires_auth, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			swagger_source_id = EXCLUDED.swagger_source_id,
			name = EXCLUDED.name,
			path = EXCLUDED.path,
			method = EXCLUDED.method,
			description = EXCLUDED.description,
			request_schema = EXCLUDED.request_schema,
			response_schema = EXCLUDED.response_schema,
			parameters = EXCLUDED.parameters,
			requires_auth = EXCLUDED.requires_auth
	`

	_, err := r.db.ExecContext(ctx, query,
		definition.ID,
		definition.SwaggerSourceID,
		definition.Name,
		definition.Path,
		definition.Method,
		definition.Description,
		definition.RequestSchema,
		definition.ResponseSchema,
		definition.Parameters,
		definition.RequiresAuth,
		definition.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save api definition: %w", err)
	}

	return nil
}

func (r *ApiDefinitionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM api_definitions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete api definition: %w", err)
	}

	return nil
}

func scanApiDefinition(row interface{ Scan(dest ...any) error }) (*models.ApiDefinition, error) {
	var (
		definition     models.ApiDefinition
		description    sql.NullString
		requestSchema  sql.NullString
		responseSchema sql.NullString
		parameters     sql.NullString
	)

	err := row.Scan(
		&definition.ID,
		&definition.SwaggerSourceID,
		&definition.Name,
		&definition.Path,
		&definition.Method,
		&description,
		&requestSchema,
		&responseSchema,
		&parameters,
		&definition.RequiresAuth,
		&definition.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	definition.Description = description.String
	definition.RequestSchema = requestSchema.String
	definition.ResponseSchema = responseSchema.String
	definition.Parameters = parameters.String

	return &definition, nil
}

// SwaggerSourceRepository handles the OpenAPI documents the catalog is
// imported from.
type SwaggerSourceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSwaggerSourceRepository(db *sql.DB, logger *slog.Logger) *SwaggerSourceRepository {
	return &SwaggerSourceRepository{db: db, logger: logger}
}

func (r *SwaggerSourceRepository) List(ctx context.Context) ([]*models.SwaggerSource, error) {
	query := `SELECT id, name, swagger_url, created_at FROM swagger_sources ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query swagger sources: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	sources := make([]*models.SwaggerSource, 0)

	for rows.Next() {
		var source models.SwaggerSource

		err := rows.Scan(&source.ID, &source.Name, &source.SwaggerURL, &source.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swagger source: %w", err)
		}

		sources = append(sources, &source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swagger sources: %w", err)
	}

	return sources, nil
}

func (r *SwaggerSourceRepository) GetByID(ctx context.Context, id string) (*models.SwaggerSource, error) {
	query := `SELECT id, name, swagger_url, created_at FROM swagger_sources WHERE id = $1`

	var source models.SwaggerSource

	err := r.db.QueryRowContext(ctx, query, id).Scan(&source.ID, &source.Name, &source.SwaggerURL, &source.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, persistence.ErrSwaggerSourceNotFound)
		}

		return nil, fmt.Errorf("failed to scan swagger source: %w", err)
	}

	return &source, nil
}

func (r *SwaggerSourceRepository) Save(ctx context.Context, source *models.SwaggerSource) error {
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	if source.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate swagger source ID: %w", err)
		}

		source.ID = id.String()
	}

	query := `
		INSERT INTO swagger_sources (id, name, swagger_url, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			swagger_url = EXCLUDED.swagger_url
	`

	_, err := r.db.ExecContext(ctx, query, source.ID, source.Name, source.SwaggerURL, source.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save swagger source: %w", err)
	}

	return nil
}

func (r *SwaggerSourceRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM swagger_sources WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete swagger source: %w", err)
	}

	return nil
}
