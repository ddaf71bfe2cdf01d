package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentID, programID string) (bool, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.EnrollmentResult, error)
	UpdateTerms(ctx context.Context, id string, valorFinal *float64, observaciones string) error
	UpdateState(ctx context.Context, id string, state models.EnrollmentState) error
	Withdraw(ctx context.Context, id, reason string) error
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollRequest holds payload for registering a student into a program.
type EnrollRequest struct {
	EstudianteID  string   `json:"estudiante_id" validate:"required"`
	ProgramaID    string   `json:"programa_id" validate:"required"`
	ValorFinal    *float64 `json:"valor_final" validate:"omitempty,gte=0"`
	Observaciones string   `json:"observaciones"`
}

// WithdrawRequest holds payload for withdrawing an enrollment.
type WithdrawRequest struct {
	Motivo string `json:"motivo" validate:"required"`
}

// EnrollmentService handles program enrollments.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns enrollments and pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, &pagination, nil
}

// Get returns an enrollment with student and program context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Enroll registers the student into the program reserving a slot. The
// student must be active and not already enrolled in the same program.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.students.FindByID(ctx, req.EstudianteID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Activo {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is inactive")
	}
	exists, err := s.repo.Exists(ctx, req.EstudianteID, req.ProgramaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in program")
	}

	enrollment := &models.Enrollment{
		EstudianteID:  req.EstudianteID,
		ProgramaID:    req.ProgramaID,
		ValorFinal:    req.ValorFinal,
		Observaciones: req.Observaciones,
	}
	result, err := s.repo.Enroll(ctx, enrollment)
	if err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return nil, appErr
		}
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in program")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return result, nil
}

// UpdateState changes the academic state of an enrollment. RETIRADO goes
// through Withdraw so the program slot is released.
func (s *EnrollmentService) UpdateState(ctx context.Context, id string, state models.EnrollmentState) (*models.Enrollment, error) {
	switch state {
	case models.EnrollmentStatePreinscrito, models.EnrollmentStateInscrito,
		models.EnrollmentStateEnCurso, models.EnrollmentStateConcluido:
	case models.EnrollmentStateRetirado:
		return nil, appErrors.Clone(appErrors.ErrValidation, "use the withdraw operation to release the slot")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid academic state")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.EstadoAcademico == models.EnrollmentStateRetirado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment was withdrawn")
	}
	if err := s.repo.UpdateState(ctx, id, state); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment state")
	}
	enrollment.EstadoAcademico = state
	return enrollment, nil
}

// UpdateTermsRequest holds the negotiable fields of an enrollment.
type UpdateTermsRequest struct {
	ValorFinal    *float64 `json:"valor_final" validate:"omitempty,gte=0"`
	Observaciones string   `json:"observaciones"`
}

// UpdateTerms changes the agreed price and notes of an active enrollment.
func (s *EnrollmentService) UpdateTerms(ctx context.Context, id string, req UpdateTermsRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.EstadoAcademico == models.EnrollmentStateRetirado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment was withdrawn")
	}
	if err := s.repo.UpdateTerms(ctx, id, req.ValorFinal, req.Observaciones); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	enrollment.ValorFinal = req.ValorFinal
	enrollment.Observaciones = req.Observaciones
	return enrollment, nil
}

// Withdraw marks the enrollment RETIRADO and releases its slot.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string, req WithdrawRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdraw payload")
	}
	if err := s.repo.Withdraw(ctx, id, req.Motivo); err != nil {
		var appErr *appErrors.Error
		if asAppError(err, &appErr) {
			return appErr
		}
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	return nil
}
