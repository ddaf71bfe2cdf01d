package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type mockConfigurationRepo struct {
	configs map[string]*models.Configuration
	updated map[string]string
}

func (m *mockConfigurationRepo) List(ctx context.Context) ([]models.Configuration, error) {
	var out []models.Configuration
	for _, cfg := range m.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (m *mockConfigurationRepo) Get(ctx context.Context, key string) (*models.Configuration, error) {
	cfg, ok := m.configs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cfg, nil
}

func (m *mockConfigurationRepo) UpdateValue(ctx context.Context, key, value string) error {
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[key] = value
	return nil
}

func newConfigurationServiceForTest(configs map[string]*models.Configuration) (*ConfigurationService, *mockConfigurationRepo) {
	repo := &mockConfigurationRepo{configs: configs}
	return NewConfigurationService(repo, validator.New(), zap.NewNop()), repo
}

func TestConfigurationUpdateRejectsSystemOwned(t *testing.T) {
	svc, repo := newConfigurationServiceForTest(map[string]*models.Configuration{
		"version_esquema": {Clave: "version_esquema", Valor: "3", TipoDato: "entero", Editable: false},
	})

	_, err := svc.Update(context.Background(), "version_esquema", UpdateConfigurationRequest{Valor: "4"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestConfigurationUpdateValidatesDataType(t *testing.T) {
	svc, _ := newConfigurationServiceForTest(map[string]*models.Configuration{
		models.ConfigKeyDelinquencyDays: {Clave: models.ConfigKeyDelinquencyDays, Valor: "30", TipoDato: "entero", Editable: true},
	})

	_, err := svc.Update(context.Background(), models.ConfigKeyDelinquencyDays, UpdateConfigurationRequest{Valor: "abc"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	cfg, err := svc.Update(context.Background(), models.ConfigKeyDelinquencyDays, UpdateConfigurationRequest{Valor: "45"})
	require.NoError(t, err)
	assert.Equal(t, "45", cfg.Valor)
}

func TestConfigurationGetIntFallsBack(t *testing.T) {
	svc, _ := newConfigurationServiceForTest(map[string]*models.Configuration{
		models.ConfigKeyDelinquencyDays: {Clave: models.ConfigKeyDelinquencyDays, Valor: "45", TipoDato: "entero", Editable: true},
	})

	assert.Equal(t, 45, svc.GetInt(context.Background(), models.ConfigKeyDelinquencyDays, 30))
	assert.Equal(t, 30, svc.GetInt(context.Background(), "clave_inexistente", 30))
}
