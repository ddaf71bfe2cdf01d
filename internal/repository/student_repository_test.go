package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formagestpro/formagest-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "ci_numero", "ci_expedicion", "nombres", "apellido_paterno", "apellido_materno",
		"fecha_nacimiento", "telefono", "email", "direccion", "profesion", "universidad", "fotografia_url",
		"activo", "fecha_registro", "updated_at"}).
		AddRow("1", "1234567", "LP", "Maria", "Flores", "Quispe", time.Now(), "777", "m@f.bo", "Calle 1", "Abogada", "UMSA", nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT e.id, e.ci_numero").WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM estudiantes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListFiltersBySearch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("LOWER\\(e.nombres\\) LIKE \\$1").
		WithArgs("%flores%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ci_numero", "ci_expedicion", "nombres", "apellido_paterno", "apellido_materno",
			"fecha_nacimiento", "telefono", "email", "direccion", "profesion", "universidad", "fotografia_url",
			"activo", "fecha_registro", "updated_at"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("%flores%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "Flores"})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO estudiantes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		CINumero:        "1234567",
		CIExpedicion:    models.CIExpedicionLaPaz,
		Nombres:         "Maria",
		ApellidoPaterno: "Flores",
		Activo:          true,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.FechaRegistro.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByCI(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM estudiantes WHERE ci_numero").
		WithArgs("1234567", models.CIExpedicionLaPaz).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCI(context.Background(), "1234567", models.CIExpedicionLaPaz, "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryProgramSummariesComputesStanding(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"inscripcion_id", "programa_id", "programa_codigo", "programa_nombre",
		"estado_academico", "costo_total", "total_pagado", "saldo_pendiente"}).
		AddRow("i1", "p1", "DIP-01", "Diplomado", "INSCRITO", 1000.0, 1000.0, 0.0).
		AddRow("i2", "p2", "MAE-01", "Maestria", "INSCRITO", 2000.0, 1000.0, 1000.0).
		AddRow("i3", "p3", "ESP-01", "Especialidad", "PREINSCRITO", 2000.0, 0.0, 2000.0)
	mock.ExpectQuery("FROM inscripciones i").
		WithArgs("s1", models.TransactionStateConfirmado).
		WillReturnRows(rows)

	summaries, err := repo.ProgramSummaries(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, models.StandingCompleto, summaries[0].EstadoFin)
	assert.Equal(t, models.StandingParcial, summaries[1].EstadoFin)
	assert.Equal(t, models.StandingSinPagos, summaries[2].EstadoFin)
	assert.NoError(t, mock.ExpectationsWereMet())
}
