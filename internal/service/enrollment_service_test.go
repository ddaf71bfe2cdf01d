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

type mockEnrollmentRepo struct {
	enrollment *models.Enrollment
	exists     bool
	enrollErr  error
	result     *models.EnrollmentResult
	withdrawn  string
	newState   models.EnrollmentState
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, studentID, programID string) (bool, error) {
	return m.exists, nil
}

func (m *mockEnrollmentRepo) Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.EnrollmentResult, error) {
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return m.result, nil
}

func (m *mockEnrollmentRepo) UpdateTerms(ctx context.Context, id string, valorFinal *float64, observaciones string) error {
	if m.enrollment != nil {
		m.enrollment.ValorFinal = valorFinal
		m.enrollment.Observaciones = observaciones
	}
	return nil
}

func (m *mockEnrollmentRepo) UpdateState(ctx context.Context, id string, state models.EnrollmentState) error {
	m.newState = state
	return nil
}

func (m *mockEnrollmentRepo) Withdraw(ctx context.Context, id, reason string) error {
	m.withdrawn = id
	return nil
}

type mockEnrollmentStudentRepo struct {
	student *models.Student
}

func (m *mockEnrollmentStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.student == nil {
		return nil, sql.ErrNoRows
	}
	return m.student, nil
}

func newEnrollmentServiceForTest(repo *mockEnrollmentRepo, students *mockEnrollmentStudentRepo) *EnrollmentService {
	return NewEnrollmentService(repo, students, validator.New(), zap.NewNop())
}

func TestEnrollRejectsInactiveStudent(t *testing.T) {
	students := &mockEnrollmentStudentRepo{student: &models.Student{ID: "e1", Activo: false}}
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, students)

	_, err := svc.Enroll(context.Background(), EnrollRequest{EstudianteID: "e1", ProgramaID: "p1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{exists: true}
	students := &mockEnrollmentStudentRepo{student: &models.Student{ID: "e1", Activo: true}}
	svc := newEnrollmentServiceForTest(repo, students)

	_, err := svc.Enroll(context.Background(), EnrollRequest{EstudianteID: "e1", ProgramaID: "p1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollSurfacesCapacityError(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollErr: appErrors.Clone(appErrors.ErrNoCapacity, "")}
	students := &mockEnrollmentStudentRepo{student: &models.Student{ID: "e1", Activo: true}}
	svc := newEnrollmentServiceForTest(repo, students)

	_, err := svc.Enroll(context.Background(), EnrollRequest{EstudianteID: "e1", ProgramaID: "p1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoCapacity.Code, appErrors.FromError(err).Code)
}

func TestEnrollReturnsRemainingSlots(t *testing.T) {
	result := &models.EnrollmentResult{CuposRestantes: 7}
	repo := &mockEnrollmentRepo{result: result}
	students := &mockEnrollmentStudentRepo{student: &models.Student{ID: "e1", Activo: true}}
	svc := newEnrollmentServiceForTest(repo, students)

	got, err := svc.Enroll(context.Background(), EnrollRequest{EstudianteID: "e1", ProgramaID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.CuposRestantes)
}

func TestUpdateStateRejectsRetiradoShortcut(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockEnrollmentStudentRepo{})

	_, err := svc.UpdateState(context.Background(), "i1", models.EnrollmentStateRetirado)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateStateRejectsWithdrawnEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "i1", EstadoAcademico: models.EnrollmentStateRetirado}}
	svc := newEnrollmentServiceForTest(repo, &mockEnrollmentStudentRepo{})

	_, err := svc.UpdateState(context.Background(), "i1", models.EnrollmentStateEnCurso)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestWithdrawRequiresReason(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentServiceForTest(repo, &mockEnrollmentStudentRepo{})

	err := svc.Withdraw(context.Background(), "i1", WithdrawRequest{})
	require.Error(t, err)
	assert.Empty(t, repo.withdrawn)

	err = svc.Withdraw(context.Background(), "i1", WithdrawRequest{Motivo: "cambio de ciudad"})
	require.NoError(t, err)
	assert.Equal(t, "i1", repo.withdrawn)
}
