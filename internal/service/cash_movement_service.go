package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type cashMovementRepository interface {
	List(ctx context.Context, filter models.CashMovementFilter) ([]models.CashMovement, int, error)
	Create(ctx context.Context, movement *models.CashMovement) error
	PeriodTotals(ctx context.Context, from, to time.Time) (*models.CashPeriodTotals, error)
}

// CreateCashMovementRequest holds payload for manual ledger entries, such as
// office expenses or cash adjustments not backed by a transaction.
type CreateCashMovementRequest struct {
	Tipo      string  `json:"tipo" validate:"required"`
	Monto     float64 `json:"monto" validate:"required,gt=0"`
	FormaPago string  `json:"forma_pago" validate:"required"`
	Concepto  string  `json:"concepto" validate:"required"`
}

// CashMovementService exposes the append-only cash ledger.
type CashMovementService struct {
	repo      cashMovementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCashMovementService constructs the service.
func NewCashMovementService(repo cashMovementRepository, validate *validator.Validate, logger *zap.Logger) *CashMovementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashMovementService{repo: repo, validator: validate, logger: logger}
}

// List returns ledger entries and pagination metadata.
func (s *CashMovementService) List(ctx context.Context, filter models.CashMovementFilter) ([]models.CashMovement, *models.Pagination, error) {
	movements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cash movements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := models.NewPagination(page, size, total)
	return movements, &pagination, nil
}

// Register writes a manual ledger entry. Transaction-backed entries are
// posted by the payment workflow, never through this path.
func (s *CashMovementService) Register(ctx context.Context, req CreateCashMovementRequest, registeredBy *string) (*models.CashMovement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cash movement payload")
	}
	tipo := models.CashMovementType(req.Tipo)
	if tipo != models.CashMovementIngreso && tipo != models.CashMovementEgreso {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tipo must be INGRESO or EGRESO")
	}
	if !models.ValidPaymentMethod(req.FormaPago) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "forma_pago is not a valid payment method")
	}

	movement := &models.CashMovement{
		Tipo:          tipo,
		Monto:         req.Monto,
		FormaPago:     models.PaymentMethod(req.FormaPago),
		Concepto:      req.Concepto,
		RegistradoPor: registeredBy,
	}
	if err := s.repo.Create(ctx, movement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register cash movement")
	}
	s.logger.Info("cash movement registered",
		zap.String("tipo", string(movement.Tipo)),
		zap.Float64("monto", movement.Monto))
	return movement, nil
}

// DailyClose sums inflows and outflows of a calendar day.
func (s *CashMovementService) DailyClose(ctx context.Context, day time.Time) (*models.CashPeriodTotals, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24*time.Hour - time.Nanosecond)
	return s.PeriodTotals(ctx, from, to)
}

// PeriodTotals sums inflows and outflows inside an arbitrary window.
func (s *CashMovementService) PeriodTotals(ctx context.Context, from, to time.Time) (*models.CashPeriodTotals, error) {
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period end precedes period start")
	}
	totals, err := s.repo.PeriodTotals(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute period totals")
	}
	return totals, nil
}
