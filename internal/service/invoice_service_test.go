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

type mockInvoiceRepo struct {
	created *models.Invoice
	exists  bool
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int, error) {
	return nil, 0, nil
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	return nil, sql.ErrNoRows
}

func (m *mockInvoiceRepo) FindByTransaction(ctx context.Context, transactionID string) (*models.Invoice, error) {
	return nil, sql.ErrNoRows
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	invoice.ID = "f1"
	invoice.NumeroFactura = "F-2026-000001"
	m.created = invoice
	return nil
}

func (m *mockInvoiceRepo) ExistsForTransaction(ctx context.Context, transactionID string) (bool, error) {
	return m.exists, nil
}

type mockInvoiceTransactionRepo struct {
	transaction *models.TransactionWithDetails
}

func (m *mockInvoiceTransactionRepo) FindByID(ctx context.Context, id string) (*models.TransactionWithDetails, error) {
	if m.transaction == nil {
		return nil, sql.ErrNoRows
	}
	return m.transaction, nil
}

func confirmedTransactionFixture(amount float64) *models.TransactionWithDetails {
	transaction := &models.TransactionWithDetails{}
	transaction.Transaction = models.Transaction{
		ID:         "t1",
		MontoFinal: amount,
		Estado:     models.TransactionStateConfirmado,
	}
	return transaction
}

func TestInvoiceIssueComputesTaxes(t *testing.T) {
	repo := &mockInvoiceRepo{}
	transactions := &mockInvoiceTransactionRepo{transaction: confirmedTransactionFixture(1000)}
	svc := NewInvoiceService(repo, transactions, 0.13, 0.03, validator.New(), zap.NewNop())

	invoice, err := svc.Issue(context.Background(), IssueInvoiceRequest{
		TransaccionID: "t1",
		NITCliente:    "1234567018",
		RazonSocial:   "Comercial Andina SRL",
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, invoice.Subtotal)
	assert.Equal(t, 130.0, invoice.IVA)
	assert.Equal(t, 30.0, invoice.IT)
	assert.Equal(t, 1160.0, invoice.Total)
	assert.Equal(t, "F-2026-000001", invoice.NumeroFactura)
}

func TestInvoiceIssueRejectsUnconfirmedTransaction(t *testing.T) {
	transaction := confirmedTransactionFixture(500)
	transaction.Estado = models.TransactionStateRegistrado
	svc := NewInvoiceService(&mockInvoiceRepo{}, &mockInvoiceTransactionRepo{transaction: transaction}, 0.13, 0.03, validator.New(), zap.NewNop())

	_, err := svc.Issue(context.Background(), IssueInvoiceRequest{
		TransaccionID: "t1",
		NITCliente:    "123",
		RazonSocial:   "Cliente",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestInvoiceIssueRejectsDuplicate(t *testing.T) {
	repo := &mockInvoiceRepo{exists: true}
	svc := NewInvoiceService(repo, &mockInvoiceTransactionRepo{transaction: confirmedTransactionFixture(500)}, 0.13, 0.03, validator.New(), zap.NewNop())

	_, err := svc.Issue(context.Background(), IssueInvoiceRequest{
		TransaccionID: "t1",
		NITCliente:    "123",
		RazonSocial:   "Cliente",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestInvoiceIssueRoundsToCents(t *testing.T) {
	svc := NewInvoiceService(&mockInvoiceRepo{}, &mockInvoiceTransactionRepo{transaction: confirmedTransactionFixture(333.33)}, 0.13, 0.03, validator.New(), zap.NewNop())

	invoice, err := svc.Issue(context.Background(), IssueInvoiceRequest{
		TransaccionID: "t1",
		NITCliente:    "123",
		RazonSocial:   "Cliente",
	})
	require.NoError(t, err)
	assert.Equal(t, 43.33, invoice.IVA)
	assert.Equal(t, 10.0, invoice.IT)
	assert.Equal(t, 386.66, invoice.Total)
}
