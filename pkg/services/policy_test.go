package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence/file"
	"github.com/ruleflow-io/ruleflow/pkg/services"
)

func newStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func TestPolicyCreate(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	created, err := service.Create(context.Background(), &models.Policy{Name: "daily sync", Active: true})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	loaded, err := service.FetchByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "daily sync", loaded.Name)
}

func TestPolicyCreateValidation(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	_, err := service.Create(context.Background(), nil)
	require.ErrorIs(t, err, services.ErrPolicyNil)
	assert.True(t, services.IsValidationError(err))

	_, err = service.Create(context.Background(), &models.Policy{Name: "   "})
	require.ErrorIs(t, err, services.ErrPolicyNameRequired)
	assert.True(t, services.IsValidationError(err))
}

func TestPolicyUpdatePreservesCreatedAt(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	created, err := service.Create(context.Background(), &models.Policy{Name: "original"})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), created.ID, &models.Policy{Name: "renamed", Active: true})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "renamed", updated.Name)
}

func TestPolicyUpdateUnknownID(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	_, err := service.Update(context.Background(), "missing", &models.Policy{Name: "anything"})
	require.ErrorIs(t, err, services.ErrPolicyNotFound)
}

func TestPolicyDelete(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	created, err := service.Create(context.Background(), &models.Policy{Name: "short lived"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), created.ID))
	require.ErrorIs(t, service.Delete(context.Background(), created.ID), services.ErrPolicyNotFound)
}

func TestPolicyLogsRequiresExistingPolicy(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	_, err := service.Logs(context.Background(), "missing", 10)
	require.ErrorIs(t, err, services.ErrPolicyNotFound)
}

func TestPolicyHealthCheck(t *testing.T) {
	t.Parallel()

	service := services.NewPolicy(newStore(t))

	message, ok := service.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.NotEmpty(t, message)
}
