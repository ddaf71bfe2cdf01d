package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
	"github.com/formagestpro/formagest-api/pkg/export"
)

type transactionRepository interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionWithDetails, int, error)
	FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error)
	Create(ctx context.Context, transaction *models.Transaction, details []models.TransactionDetail) (*models.Transaction, error)
	FindByNumero(ctx context.Context, numero string) (*models.TransactionWithDetails, error)
	ExistsByComprobante(ctx context.Context, numero string) (bool, error)
	Confirm(ctx context.Context, id string) (*models.Transaction, error)
	Annul(ctx context.Context, id, reason string) (*models.Transaction, error)
	ConfirmedTotalForEnrollment(ctx context.Context, enrollmentID string) (float64, error)
	Stats(ctx context.Context, year int) (*models.TransactionStats, error)
}

type transactionEnrollmentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type transactionConceptRepository interface {
	FindByCodigo(ctx context.Context, codigo string) (*models.PaymentConcept, error)
	FindByID(ctx context.Context, id string) (*models.PaymentConcept, error)
}

type transactionCompanyRepository interface {
	Get(ctx context.Context) (*models.Company, error)
}

// RegisterEnrollmentPaymentRequest is the payload for the combined
// matricula plus inscripcion payment of an enrollment.
type RegisterEnrollmentPaymentRequest struct {
	InscripcionID     string  `json:"inscripcion_id" validate:"required"`
	MontoPagado       float64 `json:"monto_pagado" validate:"required,gt=0"`
	DescuentoTotal    float64 `json:"descuento_total" validate:"gte=0"`
	FormaPago         string  `json:"forma_pago" validate:"required"`
	NumeroComprobante *string `json:"numero_comprobante"`
	BancoOrigen       *string `json:"banco_origen"`
	CuentaOrigen      *string `json:"cuenta_origen"`
	Observaciones     string  `json:"observaciones"`
	Confirmar         bool    `json:"confirmar"`
}

// PaymentLineRequest is one concept line of a free-form payment.
type PaymentLineRequest struct {
	ConceptoPagoID string  `json:"concepto_pago_id" validate:"required"`
	Descripcion    string  `json:"descripcion" validate:"required"`
	Cantidad       int     `json:"cantidad" validate:"required,gt=0"`
	PrecioUnitario float64 `json:"precio_unitario" validate:"required,gte=0"`
}

// RegisterPaymentRequest is the payload for an arbitrary payment, such as a
// monthly installment.
type RegisterPaymentRequest struct {
	EstudianteID      string               `json:"estudiante_id" validate:"required"`
	ProgramaID        *string              `json:"programa_id"`
	InscripcionID     *string              `json:"inscripcion_id"`
	DescuentoTotal    float64              `json:"descuento_total" validate:"gte=0"`
	FormaPago         string               `json:"forma_pago" validate:"required"`
	NumeroComprobante *string              `json:"numero_comprobante"`
	BancoOrigen       *string              `json:"banco_origen"`
	CuentaOrigen      *string              `json:"cuenta_origen"`
	Observaciones     string               `json:"observaciones"`
	Confirmar         bool                 `json:"confirmar"`
	Detalles          []PaymentLineRequest `json:"detalles" validate:"required,min=1,dive"`
}

// AnnulTransactionRequest carries the mandatory annulment reason.
type AnnulTransactionRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

// TransactionService handles payment registration, confirmation and
// annulment.
type TransactionService struct {
	repo        transactionRepository
	enrollments transactionEnrollmentRepository
	concepts    transactionConceptRepository
	company     transactionCompanyRepository
	receipts    *export.ReceiptRenderer
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTransactionService constructs the transaction service.
func NewTransactionService(repo transactionRepository, enrollments transactionEnrollmentRepository, concepts transactionConceptRepository, company transactionCompanyRepository, validate *validator.Validate, logger *zap.Logger) *TransactionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{
		repo:        repo,
		enrollments: enrollments,
		concepts:    concepts,
		company:     company,
		receipts:    export.NewReceiptRenderer(),
		validator:   validate,
		logger:      logger,
	}
}

// List returns transactions and pagination metadata.
func (s *TransactionService) List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionWithDetails, *models.Pagination, error) {
	transactions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
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
	return transactions, &pagination, nil
}

// Get returns a transaction with its concept lines.
func (s *TransactionService) Get(ctx context.Context, id string) (*models.TransactionWithDetails, error) {
	transaction, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	return transaction, nil
}

// GetByNumber returns a transaction looked up by its public number.
func (s *TransactionService) GetByNumber(ctx context.Context, numero string) (*models.TransactionWithDetails, error) {
	transaction, err := s.repo.FindByNumero(ctx, numero)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	return transaction, nil
}

func (s *TransactionService) checkComprobante(ctx context.Context, numero *string) error {
	if numero == nil || *numero == "" {
		return nil
	}
	exists, err := s.repo.ExistsByComprobante(ctx, *numero)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate comprobante")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "numero_comprobante already registered")
	}
	return nil
}

// RegisterEnrollmentPayment registers the combined matricula plus
// inscripcion payment of an enrollment. The amount owed is the sum of both
// concepts minus the discount; paying less is rejected. A discount shows up
// on the receipt as its own negative concept line.
func (s *TransactionService) RegisterEnrollmentPayment(ctx context.Context, req RegisterEnrollmentPaymentRequest, registeredBy *string) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !models.ValidPaymentMethod(req.FormaPago) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "forma_pago is not a valid payment method")
	}
	if err := s.checkComprobante(ctx, req.NumeroComprobante); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.FindDetailByID(ctx, req.InscripcionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.EstadoAcademico == models.EnrollmentStateRetirado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment was withdrawn")
	}

	montoTotal := enrollment.CostoMatricula + enrollment.CostoInscripcion
	if req.DescuentoTotal > montoTotal {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount exceeds amount owed")
	}
	montoFinal := montoTotal - req.DescuentoTotal
	if req.MontoPagado < montoFinal {
		return nil, appErrors.Clone(appErrors.ErrInsufficientAmount, "")
	}

	matricula, err := s.concepts.FindByCodigo(ctx, models.ConceptCodeMatricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve matricula concept")
	}
	inscripcion, err := s.concepts.FindByCodigo(ctx, models.ConceptCodeInscripcion)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve inscripcion concept")
	}

	estado := models.TransactionStateRegistrado
	if req.Confirmar {
		estado = models.TransactionStateConfirmado
	}
	transaction := &models.Transaction{
		EstudianteID:      enrollment.EstudianteID,
		ProgramaID:        &enrollment.ProgramaID,
		InscripcionID:     &enrollment.Enrollment.ID,
		FechaPago:         time.Now().UTC(),
		MontoTotal:        montoTotal,
		DescuentoTotal:    req.DescuentoTotal,
		MontoFinal:        montoFinal,
		FormaPago:         models.PaymentMethod(req.FormaPago),
		Estado:            estado,
		NumeroComprobante: req.NumeroComprobante,
		BancoOrigen:       req.BancoOrigen,
		CuentaOrigen:      req.CuentaOrigen,
		Observaciones:     req.Observaciones,
		RegistradoPor:     registeredBy,
	}
	details := []models.TransactionDetail{
		{ConceptoPagoID: matricula.ID, Descripcion: matricula.Nombre, Cantidad: 1, PrecioUnitario: enrollment.CostoMatricula, Subtotal: enrollment.CostoMatricula},
		{ConceptoPagoID: inscripcion.ID, Descripcion: inscripcion.Nombre, Cantidad: 1, PrecioUnitario: enrollment.CostoInscripcion, Subtotal: enrollment.CostoInscripcion},
	}
	if req.DescuentoTotal > 0 {
		descuento, err := s.concepts.FindByCodigo(ctx, models.ConceptCodeDescuento)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve descuento concept")
		}
		details = append(details, models.TransactionDetail{
			ConceptoPagoID: descuento.ID,
			Descripcion:    descuento.Nombre,
			Cantidad:       1,
			PrecioUnitario: -req.DescuentoTotal,
			Subtotal:       -req.DescuentoTotal,
		})
	}

	created, err := s.repo.Create(ctx, transaction, details)
	if err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register payment")
	}
	s.logger.Info("payment registered",
		zap.String("numero_transaccion", created.NumeroTransaccion),
		zap.String("inscripcion_id", req.InscripcionID),
		zap.Float64("monto_final", created.MontoFinal))
	return created, nil
}

// RegisterPayment registers a free-form payment built from catalog concepts.
func (s *TransactionService) RegisterPayment(ctx context.Context, req RegisterPaymentRequest, registeredBy *string) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !models.ValidPaymentMethod(req.FormaPago) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "forma_pago is not a valid payment method")
	}
	if err := s.checkComprobante(ctx, req.NumeroComprobante); err != nil {
		return nil, err
	}

	var montoTotal float64
	details := make([]models.TransactionDetail, 0, len(req.Detalles))
	for _, line := range req.Detalles {
		concept, err := s.concepts.FindByID(ctx, line.ConceptoPagoID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "payment concept does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve payment concept")
		}
		if !concept.Activo {
			return nil, appErrors.Clone(appErrors.ErrValidation, "payment concept is inactive")
		}
		subtotal := float64(line.Cantidad) * line.PrecioUnitario
		montoTotal += subtotal
		details = append(details, models.TransactionDetail{
			ConceptoPagoID: concept.ID,
			Descripcion:    line.Descripcion,
			Cantidad:       line.Cantidad,
			PrecioUnitario: line.PrecioUnitario,
			Subtotal:       subtotal,
		})
	}
	if req.DescuentoTotal > montoTotal {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discount exceeds amount owed")
	}

	estado := models.TransactionStateRegistrado
	if req.Confirmar {
		estado = models.TransactionStateConfirmado
	}
	transaction := &models.Transaction{
		EstudianteID:      req.EstudianteID,
		ProgramaID:        req.ProgramaID,
		InscripcionID:     req.InscripcionID,
		FechaPago:         time.Now().UTC(),
		MontoTotal:        montoTotal,
		DescuentoTotal:    req.DescuentoTotal,
		MontoFinal:        montoTotal - req.DescuentoTotal,
		FormaPago:         models.PaymentMethod(req.FormaPago),
		Estado:            estado,
		NumeroComprobante: req.NumeroComprobante,
		BancoOrigen:       req.BancoOrigen,
		CuentaOrigen:      req.CuentaOrigen,
		Observaciones:     req.Observaciones,
		RegistradoPor:     registeredBy,
	}

	created, err := s.repo.Create(ctx, transaction, details)
	if err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register payment")
	}
	return created, nil
}

// Confirm transitions a registered transaction to CONFIRMADO.
func (s *TransactionService) Confirm(ctx context.Context, id string) (*models.Transaction, error) {
	confirmed, err := s.repo.Confirm(ctx, id)
	if err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm transaction")
	}
	return confirmed, nil
}

// Annul voids a transaction with a mandatory reason.
func (s *TransactionService) Annul(ctx context.Context, id string, req AnnulTransactionRequest) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid annulment payload")
	}
	annulled, err := s.repo.Annul(ctx, id, req.Motivo)
	if err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to annul transaction")
	}
	return annulled, nil
}

// Receipt renders the comprobante PDF of a transaction. Annulled
// transactions cannot produce receipts.
func (s *TransactionService) Receipt(ctx context.Context, id string) ([]byte, *models.TransactionWithDetails, error) {
	transaction, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if transaction.Estado == models.TransactionStateAnulado {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "transaction is annulled")
	}

	receipt := export.Receipt{
		NumeroTransaccion: transaction.NumeroTransaccion,
		Estudiante:        transaction.EstudianteNombre,
		FormaPago:         string(transaction.FormaPago),
		FechaPago:         transaction.FechaPago,
		MontoTotal:        transaction.MontoTotal,
		DescuentoTotal:    transaction.DescuentoTotal,
		MontoFinal:        transaction.MontoFinal,
		Observaciones:     transaction.Observaciones,
	}
	if transaction.NumeroComprobante != nil {
		receipt.NumeroComprobante = *transaction.NumeroComprobante
	}
	if transaction.ProgramaNombre != nil {
		receipt.Programa = *transaction.ProgramaNombre
	}
	for _, detail := range transaction.Detalles {
		receipt.Lineas = append(receipt.Lineas, export.ReceiptLine{
			Concepto:       detail.Descripcion,
			Cantidad:       detail.Cantidad,
			PrecioUnitario: detail.PrecioUnitario,
			Subtotal:       detail.Subtotal,
		})
	}
	if company, err := s.company.Get(ctx); err == nil {
		receipt.Empresa = company.RazonSocial
		receipt.EmpresaNIT = company.NIT
	} else if err != sql.ErrNoRows {
		s.logger.Warn("failed to load company for receipt", zap.Error(err))
	}

	rendered, err := s.receipts.Render(receipt)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return rendered, transaction, nil
}

// Balance reports the pending balance of an enrollment. Only confirmed
// payments reduce the balance, and it never goes below zero.
func (s *TransactionService) Balance(ctx context.Context, enrollmentID string) (*models.StudentBalance, error) {
	enrollment, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	paid, err := s.repo.ConfirmedTotalForEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum payments")
	}

	cost := enrollment.CostoTotal
	if enrollment.ValorFinal != nil {
		cost = *enrollment.ValorFinal
	}
	balance := cost - paid
	if balance < 0 {
		balance = 0
	}
	return &models.StudentBalance{
		InscripcionID:    enrollmentID,
		EstudianteID:     enrollment.EstudianteID,
		EstudianteNombre: enrollment.EstudianteNombre,
		ProgramaID:       enrollment.ProgramaID,
		ProgramaNombre:   enrollment.ProgramaNombre,
		CostoTotal:       cost,
		TotalPagado:      paid,
		SaldoPendiente:   balance,
		EstadoFinanciero: models.StandingFor(cost, paid),
	}, nil
}

// Stats returns yearly transaction aggregates.
func (s *TransactionService) Stats(ctx context.Context, year int) (*models.TransactionStats, error) {
	if year <= 0 {
		year = time.Now().UTC().Year()
	}
	stats, err := s.repo.Stats(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction stats")
	}
	return stats, nil
}
