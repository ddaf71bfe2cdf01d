package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type companyRepository interface {
	Get(ctx context.Context) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

// UpdateCompanyRequest holds payload for updating the institution identity.
type UpdateCompanyRequest struct {
	RazonSocial string  `json:"razon_social" validate:"required"`
	NombreCorto string  `json:"nombre_corto" validate:"required"`
	NIT         string  `json:"nit" validate:"required"`
	Direccion   string  `json:"direccion"`
	Telefono    string  `json:"telefono"`
	Email       string  `json:"email" validate:"omitempty,email"`
	SitioWeb    string  `json:"sitio_web"`
	LogoURL     *string `json:"logo_url"`
}

// CompanyService exposes the single-row institution identity used on
// receipts and invoices.
type CompanyService struct {
	repo      companyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyService constructs the company service.
func NewCompanyService(repo companyRepository, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyService{repo: repo, validator: validate, logger: logger}
}

// Get returns the institution identity.
func (s *CompanyService) Get(ctx context.Context) (*models.Company, error) {
	company, err := s.repo.Get(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}
	return company, nil
}

// Update rewrites the institution identity.
func (s *CompanyService) Update(ctx context.Context, req UpdateCompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid company payload")
	}
	company, err := s.repo.Get(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load company")
	}

	company.RazonSocial = req.RazonSocial
	company.NombreCorto = req.NombreCorto
	company.NIT = req.NIT
	company.Direccion = req.Direccion
	company.Telefono = req.Telefono
	company.Email = req.Email
	company.SitioWeb = req.SitioWeb
	company.LogoURL = req.LogoURL
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update company")
	}
	return company, nil
}
