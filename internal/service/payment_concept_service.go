package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type paymentConceptRepository interface {
	List(ctx context.Context, onlyActive bool) ([]models.PaymentConcept, error)
	FindByID(ctx context.Context, id string) (*models.PaymentConcept, error)
	ExistsByCodigo(ctx context.Context, codigo, excludeID string) (bool, error)
	Create(ctx context.Context, concept *models.PaymentConcept) error
	Update(ctx context.Context, concept *models.PaymentConcept) error
	InUse(ctx context.Context, id string) (bool, error)
	Deactivate(ctx context.Context, id string) error
}

// CreatePaymentConceptRequest holds payload for new catalog entries.
type CreatePaymentConceptRequest struct {
	Codigo      string `json:"codigo" validate:"required"`
	Nombre      string `json:"nombre" validate:"required"`
	Descripcion string `json:"descripcion"`
}

// UpdatePaymentConceptRequest holds payload for catalog updates.
type UpdatePaymentConceptRequest struct {
	Nombre      string `json:"nombre" validate:"required"`
	Descripcion string `json:"descripcion"`
	Activo      bool   `json:"activo"`
}

// PaymentConceptService manages the payment concept catalog.
type PaymentConceptService struct {
	repo      paymentConceptRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentConceptService constructs the service.
func NewPaymentConceptService(repo paymentConceptRepository, validate *validator.Validate, logger *zap.Logger) *PaymentConceptService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentConceptService{repo: repo, validator: validate, logger: logger}
}

// List returns the catalog, optionally only active entries.
func (s *PaymentConceptService) List(ctx context.Context, onlyActive bool) ([]models.PaymentConcept, error) {
	concepts, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payment concepts")
	}
	return concepts, nil
}

// Get returns a concept by ID.
func (s *PaymentConceptService) Get(ctx context.Context, id string) (*models.PaymentConcept, error) {
	concept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment concept not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment concept")
	}
	return concept, nil
}

// Create adds a catalog entry. Codes are stored upper-cased and must be
// unique.
func (s *PaymentConceptService) Create(ctx context.Context, req CreatePaymentConceptRequest) (*models.PaymentConcept, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment concept payload")
	}
	codigo := strings.ToUpper(strings.TrimSpace(req.Codigo))
	exists, err := s.repo.ExistsByCodigo(ctx, codigo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate concept code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "concept code already registered")
	}

	concept := &models.PaymentConcept{
		Codigo:      codigo,
		Nombre:      req.Nombre,
		Descripcion: req.Descripcion,
		Activo:      true,
	}
	if err := s.repo.Create(ctx, concept); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "concept code already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment concept")
	}
	return concept, nil
}

// Update modifies a catalog entry. Codes are immutable once created because
// transaction history references them.
func (s *PaymentConceptService) Update(ctx context.Context, id string, req UpdatePaymentConceptRequest) (*models.PaymentConcept, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment concept payload")
	}
	concept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment concept not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment concept")
	}

	concept.Nombre = req.Nombre
	concept.Descripcion = req.Descripcion
	concept.Activo = req.Activo
	if err := s.repo.Update(ctx, concept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment concept")
	}
	return concept, nil
}

// Deactivate hides a concept from new transactions. Concepts already used by
// transaction details are never hard-deleted, only deactivated.
func (s *PaymentConceptService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "payment concept not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment concept")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate payment concept")
	}
	return nil
}
