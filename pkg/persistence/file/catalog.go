package file

import (
	"context"
	"sort"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// ApiDefinitionRepository stores the API catalog entries imported from
// swagger sources.
type ApiDefinitionRepository struct {
	definitions *collection[models.ApiDefinition]
}

func NewApiDefinitionRepository(root string) *ApiDefinitionRepository {
	return &ApiDefinitionRepository{
		definitions: newCollection[models.ApiDefinition](root, "api_definitions", persistence.ErrApiDefinitionNotFound),
	}
}

func (ar *ApiDefinitionRepository) List(_ context.Context) ([]*models.ApiDefinition, error) {
	definitions, err := ar.definitions.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})

	return definitions, nil
}

func (ar *ApiDefinitionRepository) GetByID(_ context.Context, id string) (*models.ApiDefinition, error) {
	return ar.definitions.get(id)
}

func (ar *ApiDefinitionRepository) Save(_ context.Context, definition *models.ApiDefinition) error {
	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = time.Now().UTC()
	}

	stored := *definition
	stored.SwaggerSource = nil

	return ar.definitions.save(definition.ID, &stored)
}

func (ar *ApiDefinitionRepository) Delete(_ context.Context, id string) error {
	return ar.definitions.delete(id)
}

// SwaggerSourceRepository stores the OpenAPI documents the catalog is
// imported from.
type SwaggerSourceRepository struct {
	sources *collection[models.SwaggerSource]
}

func NewSwaggerSourceRepository(root string) *SwaggerSourceRepository {
	return &SwaggerSourceRepository{
		sources: newCollection[models.SwaggerSource](root, "swagger_sources", persistence.ErrSwaggerSourceNotFound),
	}
}

func (sr *SwaggerSourceRepository) List(_ context.Context) ([]*models.SwaggerSource, error) {
	sources, err := sr.sources.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Name < sources[j].Name
	})

	return sources, nil
}

func (sr *SwaggerSourceRepository) GetByID(_ context.Context, id string) (*models.SwaggerSource, error) {
	return sr.sources.get(id)
}

func (sr *SwaggerSourceRepository) Save(_ context.Context, source *models.SwaggerSource) error {
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now().UTC()
	}

	return sr.sources.save(source.ID, source)
}

func (sr *SwaggerSourceRepository) Delete(_ context.Context, id string) error {
	return sr.sources.delete(id)
}
