package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	FindByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	ExistsForTransaction(ctx context.Context, transactionID string) (bool, error)
}

type invoiceTransactionRepository interface {
	FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error)
}

// IssueInvoiceRequest holds payload for issuing an invoice against a
// confirmed transaction.
type IssueInvoiceRequest struct {
	TransaccionID string `json:"transaccion_id" validate:"required"`
	NITCliente    string `json:"nit_cliente" validate:"required"`
	RazonSocial   string `json:"razon_social" validate:"required"`
}

// InvoiceService issues fiscal invoices. Tax rates come from configuration
// and are applied on top of the transaction's final amount.
type InvoiceService struct {
	repo         invoiceRepository
	transactions invoiceTransactionRepository
	ivaRate      float64
	itRate       float64
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewInvoiceService constructs the invoice service.
func NewInvoiceService(repo invoiceRepository, transactions invoiceTransactionRepository, ivaRate, itRate float64, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		repo:         repo,
		transactions: transactions,
		ivaRate:      ivaRate,
		itRate:       itRate,
		validator:    validate,
		logger:       logger,
	}
}

// List returns invoices and pagination metadata.
func (s *InvoiceService) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
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
	return invoices, &pagination, nil
}

// Get returns an invoice by ID.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// GetByTransaction returns the invoice issued for a transaction.
func (s *InvoiceService) GetByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByTransaction(ctx, transactionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction has no invoice")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// Issue creates an invoice for a confirmed transaction. Each transaction may
// carry at most one invoice, and the amounts derive from the transaction's
// final amount so they always reconcile with the ledger.
func (s *InvoiceService) Issue(ctx context.Context, req IssueInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}

	transaction, err := s.transactions.FindByID(ctx, req.TransaccionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	if transaction.Estado != models.TransactionStateConfirmado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only confirmed transactions can be invoiced")
	}
	exists, err := s.repo.ExistsForTransaction(ctx, req.TransaccionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing invoice")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "transaction already has an invoice")
	}

	subtotal := transaction.MontoFinal
	iva := roundCents(subtotal * s.ivaRate)
	it := roundCents(subtotal * s.itRate)
	invoice := &models.Invoice{
		TransaccionID: req.TransaccionID,
		NITCliente:    req.NITCliente,
		RazonSocial:   req.RazonSocial,
		Subtotal:      subtotal,
		IVA:           iva,
		IT:            it,
		Total:         roundCents(subtotal + iva + it),
	}
	if err := s.repo.Create(ctx, invoice); err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue invoice")
	}
	s.logger.Info("invoice issued",
		zap.String("numero_factura", invoice.NumeroFactura),
		zap.String("transaccion_id", req.TransaccionID))
	return invoice, nil
}

func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
