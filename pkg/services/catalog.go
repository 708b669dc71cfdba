package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// Catalog manages swagger sources and the API definitions imported from
// them.
type Catalog struct {
	persistence persistence.Persistence
}

// NewCatalog creates a new catalog service.
func NewCatalog(persistence persistence.Persistence) *Catalog {
	return &Catalog{persistence: persistence}
}

func (c *Catalog) ListSwaggerSources(ctx context.Context) ([]*models.SwaggerSource, error) {
	return c.persistence.SwaggerSources().List(ctx)
}

func (c *Catalog) FetchSwaggerSource(ctx context.Context, id string) (*models.SwaggerSource, error) {
	return c.persistence.SwaggerSources().GetByID(ctx, id)
}

func (c *Catalog) CreateSwaggerSource(ctx context.Context, source *models.SwaggerSource) (*models.SwaggerSource, error) {
	source.ID = uuid.New().String()
	source.CreatedAt = time.Now().UTC()

	if err := c.persistence.SwaggerSources().Save(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to create swagger source: %w", err)
	}

	return source, nil
}

func (c *Catalog) UpdateSwaggerSource(ctx context.Context, id string, source *models.SwaggerSource) (*models.SwaggerSource, error) {
	existing, err := c.persistence.SwaggerSources().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	source.ID = id
	source.CreatedAt = existing.CreatedAt

	if err := c.persistence.SwaggerSources().Save(ctx, source); err != nil {
		return nil, fmt.Errorf("failed to update swagger source: %w", err)
	}

	return source, nil
}

func (c *Catalog) DeleteSwaggerSource(ctx context.Context, id string) error {
	if _, err := c.persistence.SwaggerSources().GetByID(ctx, id); err != nil {
		return err
	}

	if err := c.persistence.SwaggerSources().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete swagger source: %w", err)
	}

	return nil
}

func (c *Catalog) ListApiDefinitions(ctx context.Context) ([]*models.ApiDefinition, error) {
	return c.persistence.ApiDefinitions().List(ctx)
}

func (c *Catalog) FetchApiDefinition(ctx context.Context, id string) (*models.ApiDefinition, error) {
	return c.persistence.ApiDefinitions().GetByID(ctx, id)
}

func (c *Catalog) CreateApiDefinition(ctx context.Context, definition *models.ApiDefinition) (*models.ApiDefinition, error) {
	if _, err := c.persistence.SwaggerSources().GetByID(ctx, definition.SwaggerSourceID); err != nil {
		return nil, err
	}

	definition.ID = uuid.New().String()
	definition.CreatedAt = time.Now().UTC()

	if err := c.persistence.ApiDefinitions().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to create api definition: %w", err)
	}

	return definition, nil
}

func (c *Catalog) UpdateApiDefinition(ctx context.Context, id string, definition *models.ApiDefinition) (*models.ApiDefinition, error) {
	existing, err := c.persistence.ApiDefinitions().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	definition.ID = id
	definition.CreatedAt = existing.CreatedAt

	if err := c.persistence.ApiDefinitions().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to update api definition: %w", err)
	}

	return definition, nil
}

func (c *Catalog) DeleteApiDefinition(ctx context.Context, id string) error {
	if _, err := c.persistence.ApiDefinitions().GetByID(ctx, id); err != nil {
		return err
	}

	if err := c.persistence.ApiDefinitions().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete api definition: %w", err)
	}

	return nil
}
