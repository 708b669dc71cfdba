package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// AuthSetting is the CRUD service for authentication settings.
type AuthSetting struct {
	persistence persistence.Persistence
}

// NewAuthSetting creates a new authentication setting service.
func NewAuthSetting(persistence persistence.Persistence) *AuthSetting {
	return &AuthSetting{persistence: persistence}
}

func (a *AuthSetting) List(ctx context.Context) ([]*models.AuthenticationSetting, error) {
	return a.persistence.AuthenticationSettings().List(ctx)
}

func (a *AuthSetting) FetchByID(ctx context.Context, id string) (*models.AuthenticationSetting, error) {
	return a.persistence.AuthenticationSettings().GetByID(ctx, id)
}

func (a *AuthSetting) Create(ctx context.Context, setting *models.AuthenticationSetting) (*models.AuthenticationSetting, error) {
	setting.ID = uuid.New().String()
	setting.CreatedAt = time.Now().UTC()

	if err := a.persistence.AuthenticationSettings().Save(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to create authentication setting: %w", err)
	}

	return setting, nil
}

func (a *AuthSetting) Update(ctx context.Context, id string, setting *models.AuthenticationSetting) (*models.AuthenticationSetting, error) {
	existing, err := a.persistence.AuthenticationSettings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	setting.ID = id
	setting.CreatedAt = existing.CreatedAt

	if err := a.persistence.AuthenticationSettings().Save(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to update authentication setting: %w", err)
	}

	return setting, nil
}

func (a *AuthSetting) Delete(ctx context.Context, id string) error {
	if _, err := a.persistence.AuthenticationSettings().GetByID(ctx, id); err != nil {
		return err
	}

	if err := a.persistence.AuthenticationSettings().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete authentication setting: %w", err)
	}

	return nil
}
