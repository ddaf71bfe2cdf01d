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

type mockTransactionRepo struct {
	created        *models.Transaction
	createdDetails []models.TransactionDetail
	confirmed      string
	annulled       string
	annulReason    string
	confirmedTotal float64
	comprobantes   map[string]bool
}

func (m *mockTransactionRepo) List(ctx context.Context, filter models.TransactionFilter) ([]models.TransactionWithDetails, int, error) {
	return nil, 0, nil
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error) {
	return nil, sql.ErrNoRows
}

func (m *mockTransactionRepo) Create(ctx context.Context, transaction *models.Transaction, details []models.TransactionDetail) (*models.Transaction, error) {
	transaction.ID = "t1"
	transaction.NumeroTransaccion = "T-2026-000001"
	m.created = transaction
	m.createdDetails = details
	return transaction, nil
}

func (m *mockTransactionRepo) FindByNumero(ctx context.Context, numero string) (*models.TransactionWithDetails, error) {
	return nil, sql.ErrNoRows
}

func (m *mockTransactionRepo) ExistsByComprobante(ctx context.Context, numero string) (bool, error) {
	return m.comprobantes[numero], nil
}

func (m *mockTransactionRepo) Confirm(ctx context.Context, id string) (*models.Transaction, error) {
	m.confirmed = id
	return &models.Transaction{ID: id, Estado: models.TransactionStateConfirmado}, nil
}

func (m *mockTransactionRepo) Annul(ctx context.Context, id, reason string) (*models.Transaction, error) {
	m.annulled = id
	m.annulReason = reason
	return &models.Transaction{ID: id, Estado: models.TransactionStateAnulado}, nil
}

func (m *mockTransactionRepo) ConfirmedTotalForEnrollment(ctx context.Context, enrollmentID string) (float64, error) {
	return m.confirmedTotal, nil
}

func (m *mockTransactionRepo) Stats(ctx context.Context, year int) (*models.TransactionStats, error) {
	return &models.TransactionStats{Anio: year}, nil
}

type mockTransactionEnrollmentRepo struct {
	detail *models.EnrollmentDetail
}

func (m *mockTransactionEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

type mockConceptRepo struct {
	byCodigo map[string]*models.PaymentConcept
	byID     map[string]*models.PaymentConcept
}

func (m *mockConceptRepo) FindByCodigo(ctx context.Context, codigo string) (*models.PaymentConcept, error) {
	concept, ok := m.byCodigo[codigo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return concept, nil
}

func (m *mockConceptRepo) FindByID(ctx context.Context, id string) (*models.PaymentConcept, error) {
	concept, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return concept, nil
}

type mockCompanyRepo struct {
	company *models.Company
}

func (m *mockCompanyRepo) Get(ctx context.Context) (*models.Company, error) {
	if m.company == nil {
		return nil, sql.ErrNoRows
	}
	return m.company, nil
}

func enrollmentDetailFixture() *models.EnrollmentDetail {
	detail := &models.EnrollmentDetail{
		EstudianteNombre: "Maria Flores",
		ProgramaNombre:   "Diplomado en Tributacion",
		CostoTotal:       4200,
		CostoMatricula:   500,
		CostoInscripcion: 200,
	}
	detail.Enrollment = models.Enrollment{
		ID:              "i1",
		EstudianteID:    "e1",
		ProgramaID:      "p1",
		EstadoAcademico: models.EnrollmentStatePreinscrito,
	}
	return detail
}

func newTransactionServiceForTest(repo *mockTransactionRepo, enrollments *mockTransactionEnrollmentRepo, concepts *mockConceptRepo) *TransactionService {
	return NewTransactionService(repo, enrollments, concepts, &mockCompanyRepo{}, validator.New(), zap.NewNop())
}

func conceptCatalog() *mockConceptRepo {
	matricula := &models.PaymentConcept{ID: "c1", Codigo: models.ConceptCodeMatricula, Nombre: "Matricula", Activo: true}
	inscripcion := &models.PaymentConcept{ID: "c2", Codigo: models.ConceptCodeInscripcion, Nombre: "Inscripcion", Activo: true}
	mensualidad := &models.PaymentConcept{ID: "c3", Codigo: models.ConceptCodeMensualidad, Nombre: "Mensualidad", Activo: true}
	descuento := &models.PaymentConcept{ID: "c4", Codigo: models.ConceptCodeDescuento, Nombre: "Descuento", Activo: true}
	return &mockConceptRepo{
		byCodigo: map[string]*models.PaymentConcept{
			matricula.Codigo:   matricula,
			inscripcion.Codigo: inscripcion,
			descuento.Codigo:   descuento,
		},
		byID: map[string]*models.PaymentConcept{
			matricula.ID:   matricula,
			inscripcion.ID: inscripcion,
			mensualidad.ID: mensualidad,
		},
	}
}

func TestRegisterEnrollmentPaymentComputesAmounts(t *testing.T) {
	repo := &mockTransactionRepo{}
	enrollments := &mockTransactionEnrollmentRepo{detail: enrollmentDetailFixture()}
	svc := newTransactionServiceForTest(repo, enrollments, conceptCatalog())

	created, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID:  "i1",
		MontoPagado:    600,
		DescuentoTotal: 100,
		FormaPago:      string(models.PaymentMethodEfectivo),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 700.0, created.MontoTotal)
	assert.Equal(t, 100.0, created.DescuentoTotal)
	assert.Equal(t, 600.0, created.MontoFinal)
	assert.Equal(t, models.TransactionStateRegistrado, created.Estado)
	require.Len(t, repo.createdDetails, 3)
	assert.Equal(t, 500.0, repo.createdDetails[0].Subtotal)
	assert.Equal(t, 200.0, repo.createdDetails[1].Subtotal)
	assert.Equal(t, "c4", repo.createdDetails[2].ConceptoPagoID)
	assert.Equal(t, -100.0, repo.createdDetails[2].Subtotal)
}

func TestRegisterEnrollmentPaymentWithoutDiscountOmitsDiscountLine(t *testing.T) {
	repo := &mockTransactionRepo{}
	enrollments := &mockTransactionEnrollmentRepo{detail: enrollmentDetailFixture()}
	svc := newTransactionServiceForTest(repo, enrollments, conceptCatalog())

	created, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID: "i1",
		MontoPagado:   700,
		FormaPago:     string(models.PaymentMethodEfectivo),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 700.0, created.MontoFinal)
	require.Len(t, repo.createdDetails, 2)
}

func TestRegisterEnrollmentPaymentRejectsUnderpayment(t *testing.T) {
	repo := &mockTransactionRepo{}
	enrollments := &mockTransactionEnrollmentRepo{detail: enrollmentDetailFixture()}
	svc := newTransactionServiceForTest(repo, enrollments, conceptCatalog())

	_, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID: "i1",
		MontoPagado:   650,
		FormaPago:     string(models.PaymentMethodEfectivo),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsufficientAmount.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRegisterEnrollmentPaymentRejectsExcessiveDiscount(t *testing.T) {
	repo := &mockTransactionRepo{}
	enrollments := &mockTransactionEnrollmentRepo{detail: enrollmentDetailFixture()}
	svc := newTransactionServiceForTest(repo, enrollments, conceptCatalog())

	_, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID:  "i1",
		MontoPagado:    700,
		DescuentoTotal: 800,
		FormaPago:      string(models.PaymentMethodEfectivo),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterEnrollmentPaymentRejectsWithdrawnEnrollment(t *testing.T) {
	detail := enrollmentDetailFixture()
	detail.EstadoAcademico = models.EnrollmentStateRetirado
	repo := &mockTransactionRepo{}
	svc := newTransactionServiceForTest(repo, &mockTransactionEnrollmentRepo{detail: detail}, conceptCatalog())

	_, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID: "i1",
		MontoPagado:   700,
		FormaPago:     string(models.PaymentMethodEfectivo),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRegisterEnrollmentPaymentRejectsDuplicateComprobante(t *testing.T) {
	repo := &mockTransactionRepo{comprobantes: map[string]bool{"DEP-778899": true}}
	enrollments := &mockTransactionEnrollmentRepo{detail: enrollmentDetailFixture()}
	svc := newTransactionServiceForTest(repo, enrollments, conceptCatalog())

	comprobante := "DEP-778899"
	_, err := svc.RegisterEnrollmentPayment(context.Background(), RegisterEnrollmentPaymentRequest{
		InscripcionID:     "i1",
		MontoPagado:       700,
		FormaPago:         string(models.PaymentMethodDeposito),
		NumeroComprobante: &comprobante,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestRegisterPaymentComputesLineSubtotals(t *testing.T) {
	repo := &mockTransactionRepo{}
	svc := newTransactionServiceForTest(repo, &mockTransactionEnrollmentRepo{}, conceptCatalog())

	created, err := svc.RegisterPayment(context.Background(), RegisterPaymentRequest{
		EstudianteID: "e1",
		FormaPago:    string(models.PaymentMethodTransferencia),
		Detalles: []PaymentLineRequest{
			{ConceptoPagoID: "c3", Descripcion: "Mensualidad marzo", Cantidad: 3, PrecioUnitario: 350},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1050.0, created.MontoTotal)
	assert.Equal(t, 1050.0, created.MontoFinal)
	require.Len(t, repo.createdDetails, 1)
	assert.Equal(t, 1050.0, repo.createdDetails[0].Subtotal)
}

func TestRegisterPaymentRejectsInactiveConcept(t *testing.T) {
	concepts := conceptCatalog()
	concepts.byID["c3"].Activo = false
	svc := newTransactionServiceForTest(&mockTransactionRepo{}, &mockTransactionEnrollmentRepo{}, concepts)

	_, err := svc.RegisterPayment(context.Background(), RegisterPaymentRequest{
		EstudianteID: "e1",
		FormaPago:    string(models.PaymentMethodEfectivo),
		Detalles: []PaymentLineRequest{
			{ConceptoPagoID: "c3", Descripcion: "Mensualidad", Cantidad: 1, PrecioUnitario: 350},
		},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAnnulRequiresReason(t *testing.T) {
	repo := &mockTransactionRepo{}
	svc := newTransactionServiceForTest(repo, &mockTransactionEnrollmentRepo{}, conceptCatalog())

	_, err := svc.Annul(context.Background(), "t1", AnnulTransactionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.annulled)
}

func TestBalanceNeverNegative(t *testing.T) {
	detail := enrollmentDetailFixture()
	repo := &mockTransactionRepo{confirmedTotal: 5000}
	svc := newTransactionServiceForTest(repo, &mockTransactionEnrollmentRepo{detail: detail}, conceptCatalog())

	balance, err := svc.Balance(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance.SaldoPendiente)
	assert.Equal(t, models.StandingCompleto, balance.EstadoFinanciero)
}

func TestBalanceUsesNegotiatedPrice(t *testing.T) {
	detail := enrollmentDetailFixture()
	negotiated := 3000.0
	detail.ValorFinal = &negotiated
	repo := &mockTransactionRepo{confirmedTotal: 1500}
	svc := newTransactionServiceForTest(repo, &mockTransactionEnrollmentRepo{detail: detail}, conceptCatalog())

	balance, err := svc.Balance(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, balance.CostoTotal)
	assert.Equal(t, 1500.0, balance.SaldoPendiente)
	assert.Equal(t, models.StandingParcial, balance.EstadoFinanciero)
}
