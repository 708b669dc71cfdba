package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ruleflow-io/ruleflow/pkg/models"
	"github.com/ruleflow-io/ruleflow/pkg/persistence"
)

// AuthenticationSettingRepository stores token endpoint configurations.
type AuthenticationSettingRepository struct {
	settings *collection[models.AuthenticationSetting]
}

func NewAuthenticationSettingRepository(root string) *AuthenticationSettingRepository {
	return &AuthenticationSettingRepository{
		settings: newCollection[models.AuthenticationSetting](root, "auth_settings", persistence.ErrAuthenticationSettingNotFound),
	}
}

func (ar *AuthenticationSettingRepository) List(_ context.Context) ([]*models.AuthenticationSetting, error) {
	settings, err := ar.settings.list()
	if err != nil {
		return nil, err
	}

	sort.Slice(settings, func(i, j int) bool {
		return settings[i].Name < settings[j].Name
	})

	return settings, nil
}

func (ar *AuthenticationSettingRepository) GetByID(_ context.Context, id string) (*models.AuthenticationSetting, error) {
	return ar.settings.get(id)
}

// GetByName returns the active setting with the given name.
func (ar *AuthenticationSettingRepository) GetByName(_ context.Context, name string) (*models.AuthenticationSetting, error) {
	settings, err := ar.settings.list()
	if err != nil {
		return nil, err
	}

	for _, setting := range settings {
		if setting.Name == name && setting.Active {
			return setting, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", name, persistence.ErrAuthenticationSettingNotFound)
}

func (ar *AuthenticationSettingRepository) Save(_ context.Context, setting *models.AuthenticationSetting) error {
	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = time.Now().UTC()
	}

	return ar.settings.save(setting.ID, setting)
}

func (ar *AuthenticationSettingRepository) Delete(_ context.Context, id string) error {
	return ar.settings.delete(id)
}

func (ar *AuthenticationSettingRepository) TouchLastUsed(_ context.Context, id string, usedAt time.Time) error {
	setting, err := ar.settings.get(id)
	if err != nil {
		return err
	}

	setting.LastUsedAt = &usedAt

	return ar.settings.save(id, setting)
}
