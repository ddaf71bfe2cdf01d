package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// ConfigurationRepository persists business-rule settings.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// List returns all settings ordered by key.
func (r *ConfigurationRepository) List(ctx context.Context) ([]models.Configuration, error) {
	const query = `SELECT id, clave, valor, tipo_dato, descripcion, editable, updated_at
        FROM configuraciones ORDER BY clave ASC`
	var configs []models.Configuration
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// Get fetches a single setting by key.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	const query = `SELECT id, clave, valor, tipo_dato, descripcion, editable, updated_at
        FROM configuraciones WHERE clave = $1`
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, query, key); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Upsert inserts or updates a setting by key.
func (r *ConfigurationRepository) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO configuraciones (id, clave, valor, tipo_dato, descripcion, editable, updated_at)
VALUES (:id, :clave, :valor, :tipo_dato, :descripcion, :editable, :updated_at)
ON CONFLICT (clave)
DO UPDATE SET valor = EXCLUDED.valor, tipo_dato = EXCLUDED.tipo_dato, descripcion = EXCLUDED.descripcion,
              updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("upsert configuration: %w", err)
	}
	return nil
}

// UpdateValue changes the value of an existing setting.
func (r *ConfigurationRepository) UpdateValue(ctx context.Context, key, value string) error {
	const query = `UPDATE configuraciones SET valor = $2, updated_at = $3 WHERE clave = $1`
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	return nil
}
