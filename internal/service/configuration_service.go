package service

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type configurationRepository interface {
	List(ctx context.Context) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	UpdateValue(ctx context.Context, key, value string) error
}

// UpdateConfigurationRequest holds the new value for a setting.
type UpdateConfigurationRequest struct {
	Valor string `json:"valor" validate:"required"`
}

// ConfigurationService manages business-rule settings stored per
// installation.
type ConfigurationService struct {
	repo      configurationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConfigurationService constructs the configuration service.
func NewConfigurationService(repo configurationRepository, validate *validator.Validate, logger *zap.Logger) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfigurationService{repo: repo, validator: validate, logger: logger}
}

// List returns all settings.
func (s *ConfigurationService) List(ctx context.Context) ([]models.Configuration, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list configurations")
	}
	return configs, nil
}

// Get returns a setting by key.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*models.Configuration, error) {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	return cfg, nil
}

// Update changes the value of an editable setting. The new value must parse
// according to the setting's declared data type.
func (s *ConfigurationService) Update(ctx context.Context, key string, req UpdateConfigurationRequest) (*models.Configuration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid configuration payload")
	}
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	if !cfg.Editable {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "configuration is not editable")
	}
	if err := validateTypedValue(cfg.TipoDato, req.Valor); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateValue(ctx, key, req.Valor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update configuration")
	}
	cfg.Valor = req.Valor
	return cfg, nil
}

// GetInt reads an integer setting, falling back when the row is missing or
// malformed.
func (s *ConfigurationService) GetInt(ctx context.Context, key string, fallback int) int {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("failed to read configuration", zap.String("clave", key), zap.Error(err))
		}
		return fallback
	}
	value, err := strconv.Atoi(cfg.Valor)
	if err != nil {
		s.logger.Warn("configuration value is not an integer", zap.String("clave", key), zap.String("valor", cfg.Valor))
		return fallback
	}
	return value
}

// GetString reads a string setting with a fallback.
func (s *ConfigurationService) GetString(ctx context.Context, key, fallback string) string {
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Warn("failed to read configuration", zap.String("clave", key), zap.Error(err))
		}
		return fallback
	}
	return cfg.Valor
}

func validateTypedValue(tipoDato, valor string) error {
	switch tipoDato {
	case "entero":
		if _, err := strconv.Atoi(valor); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "value must be an integer")
		}
	case "decimal":
		if _, err := strconv.ParseFloat(valor, 64); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "value must be a number")
		}
	case "booleano":
		if _, err := strconv.ParseBool(valor); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "value must be a boolean")
		}
	}
	return nil
}
