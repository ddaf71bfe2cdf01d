package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

func transactionLockRows(estado models.TransactionState, inscripcionID interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "numero_transaccion", "estudiante_id", "programa_id", "inscripcion_id",
		"fecha_pago", "monto_total", "descuento_total", "monto_final", "forma_pago", "estado",
		"numero_comprobante", "banco_origen", "cuenta_origen", "observaciones", "motivo_anulacion",
		"registrado_por", "created_at", "updated_at"}).
		AddRow("t1", "T-2026-000010", "s1", "p1", inscripcionID,
			time.Now(), 700.0, 0.0, 700.0, "EFECTIVO", estado,
			nil, nil, nil, "", nil, nil, time.Now(), time.Now())
}

func TestTransactionRepositoryCreateAssignsSequentialNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM transacciones WHERE numero_transaccion LIKE \\$1").
		WithArgs("T-2026-%").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(41))
	mock.ExpectExec("INSERT INTO transacciones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO detalles_transaccion").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	transaction := &models.Transaction{
		EstudianteID: "s1",
		FechaPago:    time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		MontoTotal:   700,
		MontoFinal:   700,
		FormaPago:    models.PaymentMethodEfectivo,
	}
	details := []models.TransactionDetail{
		{ConceptoPagoID: "c1", Descripcion: "Matricula", Cantidad: 1, PrecioUnitario: 700, Subtotal: 700},
	}
	created, err := repo.Create(context.Background(), transaction, details)
	require.NoError(t, err)
	assert.Equal(t, "T-2026-000042", created.NumeroTransaccion)
	assert.Equal(t, models.TransactionStateRegistrado, created.Estado)
	assert.Equal(t, 1, details[0].Orden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryCreateConfirmedPostsCashMovement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	inscripcionID := "i1"
	mock.ExpectBegin()
	mock.ExpectQuery("FROM transacciones WHERE numero_transaccion LIKE \\$1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO transacciones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO detalles_transaccion").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE inscripciones SET estado_academico").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO movimientos_caja").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	transaction := &models.Transaction{
		EstudianteID:  "s1",
		InscripcionID: &inscripcionID,
		FechaPago:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		MontoTotal:    700,
		MontoFinal:    700,
		FormaPago:     models.PaymentMethodQR,
		Estado:        models.TransactionStateConfirmado,
	}
	details := []models.TransactionDetail{
		{ConceptoPagoID: "c1", Descripcion: "Matricula", Cantidad: 1, PrecioUnitario: 700, Subtotal: 700},
	}
	created, err := repo.Create(context.Background(), transaction, details)
	require.NoError(t, err)
	assert.Equal(t, "T-2026-000001", created.NumeroTransaccion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryCreateRegisteredAdvancesEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	inscripcionID := "i1"
	mock.ExpectBegin()
	mock.ExpectQuery("FROM transacciones WHERE numero_transaccion LIKE \\$1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
	mock.ExpectExec("INSERT INTO transacciones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO detalles_transaccion").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE inscripciones SET estado_academico").
		WithArgs("i1", models.EnrollmentStateInscrito, sqlmock.AnyArg(), models.EnrollmentStatePreinscrito).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	transaction := &models.Transaction{
		EstudianteID:  "s1",
		InscripcionID: &inscripcionID,
		FechaPago:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		MontoTotal:    700,
		MontoFinal:    700,
		FormaPago:     models.PaymentMethodTransferencia,
	}
	details := []models.TransactionDetail{
		{ConceptoPagoID: "c1", Descripcion: "Matricula", Cantidad: 1, PrecioUnitario: 700, Subtotal: 700},
	}
	created, err := repo.Create(context.Background(), transaction, details)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStateRegistrado, created.Estado)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryConfirm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM transacciones WHERE id = \\$1 FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(transactionLockRows(models.TransactionStateRegistrado, "i1"))
	mock.ExpectExec("UPDATE transacciones SET estado").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO movimientos_caja").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	confirmed, err := repo.Confirm(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStateConfirmado, confirmed.Estado)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryConfirmRejectsNonRegistered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(transactionLockRows(models.TransactionStateAnulado, nil))
	mock.ExpectRollback()

	_, err := repo.Confirm(context.Background(), "t1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryAnnulConfirmedPostsReversal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(transactionLockRows(models.TransactionStateConfirmado, "i1"))
	mock.ExpectExec("UPDATE transacciones SET estado").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO movimientos_caja").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	annulled, err := repo.Annul(context.Background(), "t1", "pago duplicado")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStateAnulado, annulled.Estado)
	require.NotNil(t, annulled.MotivoAnulacion)
	assert.Equal(t, "pago duplicado", *annulled.MotivoAnulacion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepositoryAnnulRegisteredSkipsReversal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTransactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("t1").
		WillReturnRows(transactionLockRows(models.TransactionStateRegistrado, nil))
	mock.ExpectExec("UPDATE transacciones SET estado").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := repo.Annul(context.Background(), "t1", "error de registro")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
