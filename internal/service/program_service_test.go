package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type mockProgramRepo struct {
	detail       *models.ProgramDetail
	codigoExists bool
	created      *models.Program
	updatedState models.ProgramState
}

func (m *mockProgramRepo) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	return nil, 0, nil
}

func (m *mockProgramRepo) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockProgramRepo) ExistsByCodigo(ctx context.Context, codigo, excludeID string) (bool, error) {
	return m.codigoExists, nil
}

func (m *mockProgramRepo) Create(ctx context.Context, program *models.Program) error {
	m.created = program
	return nil
}

func (m *mockProgramRepo) Update(ctx context.Context, program *models.Program) error {
	return nil
}

func (m *mockProgramRepo) UpdateState(ctx context.Context, id string, state models.ProgramState) error {
	m.updatedState = state
	return nil
}

func (m *mockProgramRepo) Stats(ctx context.Context) (*models.ProgramStats, error) {
	return &models.ProgramStats{}, nil
}

type mockProgramTeacherRepo struct {
	teacher *models.Teacher
}

func (m *mockProgramTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if m.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func programDetailFixture(state models.ProgramState) *models.ProgramDetail {
	maximos := 30
	detail := &models.ProgramDetail{}
	detail.Program = models.Program{
		ID:            "p1",
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado en Tributacion",
		DuracionMeses: 6,
		CuposMaximos:  &maximos,
		Estado:        state,
	}
	return detail
}

func newProgramServiceForTest(repo *mockProgramRepo, teachers *mockProgramTeacherRepo) *ProgramService {
	return NewProgramService(repo, teachers, validator.New(), zap.NewNop())
}

func TestProgramCreateDerivesEndDate(t *testing.T) {
	repo := &mockProgramRepo{}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	created, err := svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado en Tributacion",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  6,
		FechaInicio:   &start,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatePlanificado, created.Estado)
	require.NotNil(t, created.FechaFin)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *created.FechaFin)
}

func TestProgramCreateKeepsExplicitEndDate(t *testing.T) {
	repo := &mockProgramRepo{}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 15, 0, 0, 0, 0, time.UTC)

	created, err := svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado en Tributacion",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  6,
		FechaInicio:   &start,
		FechaFin:      &end,
	})
	require.NoError(t, err)
	require.NotNil(t, created.FechaFin)
	assert.Equal(t, end, *created.FechaFin)
}

func TestProgramCreateRejectsEndBeforeStart(t *testing.T) {
	repo := &mockProgramRepo{}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  6,
		FechaInicio:   &start,
		FechaFin:      &end,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestProgramCreateRejectsZeroHoursAndQuotas(t *testing.T) {
	repo := &mockProgramRepo{}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	_, err := svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado",
		DuracionMeses: 6,
		HorasTotales:  0,
		NumeroCuotas:  6,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  0,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestProgramCreateRejectsInactiveCoordinator(t *testing.T) {
	coordinator := "d1"
	teachers := &mockProgramTeacherRepo{teacher: &models.Teacher{ID: "d1", Activo: false}}
	svc := newProgramServiceForTest(&mockProgramRepo{}, teachers)

	_, err := svc.Create(context.Background(), CreateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  6,
		CoordinadorID: &coordinator,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProgramAdvanceFollowsLifecycle(t *testing.T) {
	repo := &mockProgramRepo{detail: programDetailFixture(models.ProgramStatePlanificado)}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	program, err := svc.Advance(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStateInscripciones, program.Estado)
	assert.Equal(t, models.ProgramStateInscripciones, repo.updatedState)
}

func TestProgramAdvanceRejectsTerminalState(t *testing.T) {
	repo := &mockProgramRepo{detail: programDetailFixture(models.ProgramStateConcluido)}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	_, err := svc.Advance(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestProgramCancelRejectsWithEnrollees(t *testing.T) {
	detail := programDetailFixture(models.ProgramStateInscripciones)
	detail.CuposInscritos = 5
	repo := &mockProgramRepo{detail: detail}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	_, err := svc.Cancel(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestProgramReactivateOnlyFromCancelled(t *testing.T) {
	repo := &mockProgramRepo{detail: programDetailFixture(models.ProgramStateCancelado)}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	program, err := svc.Reactivate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgramStatePlanificado, program.Estado)

	repo.detail = programDetailFixture(models.ProgramStateEnCurso)
	_, err = svc.Reactivate(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestProgramUpdateRejectsShrinkingBelowEnrollment(t *testing.T) {
	detail := programDetailFixture(models.ProgramStateInscripciones)
	detail.CuposInscritos = 12
	repo := &mockProgramRepo{detail: detail}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})
	smaller := 10

	_, err := svc.Update(context.Background(), "p1", UpdateProgramRequest{
		Codigo:        "DIP-TRI-01",
		Nombre:        "Diplomado",
		DuracionMeses: 6,
		HorasTotales:  200,
		NumeroCuotas:  6,
		CuposMaximos:  &smaller,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProgramAvailability(t *testing.T) {
	detail := programDetailFixture(models.ProgramStateInscripciones)
	detail.CuposInscritos = 28
	repo := &mockProgramRepo{detail: detail}
	svc := newProgramServiceForTest(repo, &mockProgramTeacherRepo{})

	availability, err := svc.Availability(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, availability.Disponible)
	assert.Equal(t, 2, availability.CuposDisponibles)

	detail.CuposInscritos = 30
	availability, err = svc.Availability(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, availability.Disponible)

	detail.CuposMaximos = nil
	availability, err = svc.Availability(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, availability.Disponible)
	assert.Equal(t, models.UnlimitedSlots, availability.CuposDisponibles)
}
