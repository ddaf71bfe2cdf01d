package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formagestpro/formagest-api/internal/models"
)

func TestReportRepositoryStudentBalancesBucketsStanding(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := sqlmock.NewRows([]string{"inscripcion_id", "estudiante_id", "estudiante_nombre",
		"programa_id", "programa_nombre", "costo_total", "total_pagado", "saldo_pendiente"}).
		AddRow("i1", "s1", "Maria Flores", "p1", "Diplomado", 1000.0, 400.0, 600.0).
		AddRow("i2", "s2", "Jorge Mamani", "p1", "Diplomado", 1000.0, 0.0, 1000.0)
	mock.ExpectQuery("FROM inscripciones i").WillReturnRows(rows)

	balances, err := repo.StudentBalances(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, models.StandingInicial, balances[0].EstadoFinanciero)
	assert.Equal(t, models.StandingSinPagos, balances[1].EstadoFinanciero)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDelinquents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	lastPayment := time.Now().AddDate(0, 0, -45)
	rows := sqlmock.NewRows([]string{"inscripcion_id", "estudiante_id", "estudiante_nombre", "telefono", "email",
		"programa_nombre", "saldo_pendiente", "ultimo_pago", "dias_sin_pago"}).
		AddRow("i1", "s1", "Maria Flores", "777", "m@f.bo", "Diplomado", 600.0, lastPayment, 45)
	mock.ExpectQuery("FROM inscripciones i").
		WithArgs(30).
		WillReturnRows(rows)

	delinquents, err := repo.Delinquents(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, delinquents, 1)
	assert.Equal(t, 45, delinquents[0].DiasSinPago)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryJobLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("INSERT INTO reporte_jobs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE reporte_jobs SET estado").
		WithArgs("j1", models.ReportJobRunning).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE reporte_jobs SET estado").
		WithArgs("j1", models.ReportJobCompleted, "reportes/j1.pdf", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{ID: "j1", TipoReporte: "saldos", Formato: "pdf"}
	require.NoError(t, repo.CreateJob(context.Background(), job))
	assert.Equal(t, models.ReportJobPending, job.Estado)
	require.NoError(t, repo.MarkJobRunning(context.Background(), "j1"))
	require.NoError(t, repo.MarkJobCompleted(context.Background(), "j1", "reportes/j1.pdf"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
