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

func programLockRows(estado models.ProgramState, maximos interface{}, inscritos int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "codigo", "nombre", "descripcion", "duracion_meses", "horas_totales",
		"costo_total", "costo_matricula", "costo_inscripcion", "costo_mensualidad", "numero_cuotas",
		"cupos_maximos", "cupos_inscritos", "estado", "fecha_inicio", "fecha_fin", "docente_coordinador_id",
		"promocion_descuento", "promocion_descripcion", "promocion_valido_hasta", "created_at", "updated_at"}).
		AddRow("p1", "DIP-01", "Diplomado", "", 6, 200, 3000.0, 500.0, 200.0, 400.0, 6,
			maximos, inscritos, estado, time.Now(), time.Now(), nil, 0.0, "", nil, time.Now(), time.Now())
}

func TestEnrollmentRepositoryEnrollReservesSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery("FROM programas WHERE id = \\$1 FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(programLockRows(models.ProgramStateInscripciones, 30, 10))
	mock.ExpectExec("INSERT INTO inscripciones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE programas SET cupos_inscritos = cupos_inscritos \\+ \\$2").
		WithArgs("p1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Enroll(context.Background(), &models.Enrollment{
		EstudianteID: "s1",
		ProgramaID:   "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, 19, result.CuposRestantes)
	assert.Equal(t, models.EnrollmentStatePreinscrito, result.Enrollment.EstadoAcademico)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollRejectsFullProgram(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(programLockRows(models.ProgramStateInscripciones, 10, 10))
	mock.ExpectRollback()

	_, err := repo.Enroll(context.Background(), &models.Enrollment{EstudianteID: "s1", ProgramaID: "p1"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNoCapacity.Code, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollRejectsTerminalProgram(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	for _, estado := range []models.ProgramState{models.ProgramStateCancelado, models.ProgramStateConcluido} {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("p1").
			WillReturnRows(programLockRows(estado, 30, 10))
		mock.ExpectRollback()

		_, err := repo.Enroll(context.Background(), &models.Enrollment{EstudianteID: "s1", ProgramaID: "p1"})
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollAllowsPlannedAndRunningPrograms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	for _, estado := range []models.ProgramState{models.ProgramStatePlanificado, models.ProgramStateEnCurso} {
		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs("p1").
			WillReturnRows(programLockRows(estado, 30, 10))
		mock.ExpectExec("INSERT INTO inscripciones").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE programas SET cupos_inscritos").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := repo.Enroll(context.Background(), &models.Enrollment{EstudianteID: "s1", ProgramaID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, 19, result.CuposRestantes)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollUnlimitedSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(programLockRows(models.ProgramStateInscripciones, nil, 500))
	mock.ExpectExec("INSERT INTO inscripciones").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE programas SET cupos_inscritos").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Enroll(context.Background(), &models.Enrollment{EstudianteID: "s1", ProgramaID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, models.UnlimitedSlots, result.CuposRestantes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdrawReleasesSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, NewProgramRepository(db))

	enrollmentRows := sqlmock.NewRows([]string{"id", "estudiante_id", "programa_id", "fecha_inscripcion",
		"estado_academico", "valor_final", "observaciones", "created_at", "updated_at"}).
		AddRow("i1", "s1", "p1", time.Now(), "INSCRITO", nil, "", time.Now(), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery("FROM inscripciones WHERE id = \\$1 FOR UPDATE").
		WithArgs("i1").
		WillReturnRows(enrollmentRows)
	mock.ExpectExec("UPDATE inscripciones SET estado_academico").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM programas WHERE id = \\$1 FOR UPDATE").
		WithArgs("p1").
		WillReturnRows(programLockRows(models.ProgramStateEnCurso, 30, 10))
	mock.ExpectExec("UPDATE programas SET cupos_inscritos").
		WithArgs("p1", -1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Withdraw(context.Background(), "i1", "retiro voluntario")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
