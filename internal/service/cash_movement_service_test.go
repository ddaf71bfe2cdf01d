package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type mockCashMovementRepo struct {
	created    *models.CashMovement
	totalsFrom time.Time
	totalsTo   time.Time
}

func (m *mockCashMovementRepo) List(ctx context.Context, filter models.CashMovementFilter) ([]models.CashMovement, int, error) {
	return nil, 0, nil
}

func (m *mockCashMovementRepo) Create(ctx context.Context, movement *models.CashMovement) error {
	movement.ID = "m1"
	m.created = movement
	return nil
}

func (m *mockCashMovementRepo) PeriodTotals(ctx context.Context, from, to time.Time) (*models.CashPeriodTotals, error) {
	m.totalsFrom = from
	m.totalsTo = to
	return &models.CashPeriodTotals{Ingresos: 900, Egresos: 250, Saldo: 650}, nil
}

func newCashMovementServiceForTest(repo *mockCashMovementRepo) *CashMovementService {
	return NewCashMovementService(repo, validator.New(), zap.NewNop())
}

func TestCashMovementRegisterRejectsUnknownType(t *testing.T) {
	svc := newCashMovementServiceForTest(&mockCashMovementRepo{})

	_, err := svc.Register(context.Background(), CreateCashMovementRequest{
		Tipo:      "TRANSFERENCIA",
		Monto:     100,
		FormaPago: "EFECTIVO",
		Concepto:  "ajuste",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCashMovementRegisterRejectsNonPositiveAmount(t *testing.T) {
	repo := &mockCashMovementRepo{}
	svc := newCashMovementServiceForTest(repo)

	_, err := svc.Register(context.Background(), CreateCashMovementRequest{
		Tipo:      "EGRESO",
		Monto:     0,
		FormaPago: "EFECTIVO",
		Concepto:  "compra de material",
	}, nil)
	require.Error(t, err)
	assert.Nil(t, repo.created)
}

func TestCashMovementRegisterPersistsEntry(t *testing.T) {
	repo := &mockCashMovementRepo{}
	svc := newCashMovementServiceForTest(repo)
	actor := "u1"

	movement, err := svc.Register(context.Background(), CreateCashMovementRequest{
		Tipo:      "EGRESO",
		Monto:     180.5,
		FormaPago: "EFECTIVO",
		Concepto:  "compra de material",
	}, &actor)
	require.NoError(t, err)
	assert.Equal(t, models.CashMovementEgreso, movement.Tipo)
	assert.Equal(t, 180.5, movement.Monto)
	require.NotNil(t, movement.RegistradoPor)
	assert.Equal(t, "u1", *movement.RegistradoPor)
}

func TestDailyCloseCoversWholeDay(t *testing.T) {
	repo := &mockCashMovementRepo{}
	svc := newCashMovementServiceForTest(repo)
	day := time.Date(2026, time.March, 15, 14, 30, 0, 0, time.UTC)

	totals, err := svc.DailyClose(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 650.0, totals.Saldo)
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), repo.totalsFrom)
	assert.Equal(t, time.March, repo.totalsTo.Month())
	assert.Equal(t, 15, repo.totalsTo.Day())
	assert.Equal(t, 23, repo.totalsTo.Hour())
}

func TestPeriodTotalsRejectsInvertedWindow(t *testing.T) {
	svc := newCashMovementServiceForTest(&mockCashMovementRepo{})
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := svc.PeriodTotals(context.Background(), from, to)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
