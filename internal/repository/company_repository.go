package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// CompanyRepository manages the single institution identity row.
type CompanyRepository struct {
	db *sqlx.DB
}

// NewCompanyRepository constructs the repository.
func NewCompanyRepository(db *sqlx.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Get returns the institution identity.
func (r *CompanyRepository) Get(ctx context.Context) (*models.Company, error) {
	const query = `SELECT id, razon_social, nombre_corto, nit, direccion, telefono, email, sitio_web, logo_url, updated_at
        FROM empresa LIMIT 1`
	var company models.Company
	if err := r.db.GetContext(ctx, &company, query); err != nil {
		return nil, err
	}
	return &company, nil
}

// Update rewrites the institution identity.
func (r *CompanyRepository) Update(ctx context.Context, company *models.Company) error {
	company.UpdatedAt = time.Now().UTC()
	const query = `UPDATE empresa SET razon_social = :razon_social, nombre_corto = :nombre_corto, nit = :nit,
        direccion = :direccion, telefono = :telefono, email = :email, sitio_web = :sitio_web,
        logo_url = :logo_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, company); err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}
