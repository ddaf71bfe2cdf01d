package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByCI(ctx context.Context, ciNumero string, ciExpedicion models.CIExpedicion, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
	CoordinatesPrograms(ctx context.Context, id string) (bool, error)
}

// CreateTeacherRequest holds payload for registering teachers.
type CreateTeacherRequest struct {
	CINumero          string     `json:"ci_numero" validate:"required"`
	CIExpedicion      string     `json:"ci_expedicion" validate:"required"`
	Nombres           string     `json:"nombres" validate:"required"`
	ApellidoPaterno   string     `json:"apellido_paterno" validate:"required"`
	ApellidoMaterno   string     `json:"apellido_materno"`
	FechaNacimiento   *time.Time `json:"fecha_nacimiento"`
	GradoAcademico    string     `json:"grado_academico" validate:"required"`
	TituloProfesional string     `json:"titulo_profesional"`
	Especialidad      string     `json:"especialidad"`
	TarifaHora        float64    `json:"tarifa_hora" validate:"gte=0"`
	Telefono          string     `json:"telefono"`
	Email             string     `json:"email" validate:"omitempty,email"`
}

// UpdateTeacherRequest holds payload for updating teachers.
type UpdateTeacherRequest struct {
	CINumero          string     `json:"ci_numero" validate:"required"`
	CIExpedicion      string     `json:"ci_expedicion" validate:"required"`
	Nombres           string     `json:"nombres" validate:"required"`
	ApellidoPaterno   string     `json:"apellido_paterno" validate:"required"`
	ApellidoMaterno   string     `json:"apellido_materno"`
	FechaNacimiento   *time.Time `json:"fecha_nacimiento"`
	GradoAcademico    string     `json:"grado_academico" validate:"required"`
	TituloProfesional string     `json:"titulo_profesional"`
	Especialidad      string     `json:"especialidad"`
	TarifaHora        float64    `json:"tarifa_hora" validate:"gte=0"`
	Telefono          string     `json:"telefono"`
	Email             string     `json:"email" validate:"omitempty,email"`
	Activo            bool       `json:"activo"`
}

// TeacherService handles the teacher registry use-cases.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers and pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
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
	return teachers, &pagination, nil
}

// Get returns a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher. The academic grade must belong to the
// closed set.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if !models.ValidCIExpedicion(req.CIExpedicion) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ci_expedicion is not a valid department code")
	}
	if !models.ValidGradoAcademico(req.GradoAcademico) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grado_academico is not a valid grade")
	}
	exists, err := s.repo.ExistsByCI(ctx, req.CINumero, models.CIExpedicion(req.CIExpedicion), "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate ci")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
	}

	teacher := &models.Teacher{
		CINumero:          req.CINumero,
		CIExpedicion:      models.CIExpedicion(req.CIExpedicion),
		Nombres:           req.Nombres,
		ApellidoPaterno:   req.ApellidoPaterno,
		ApellidoMaterno:   req.ApellidoMaterno,
		FechaNacimiento:   req.FechaNacimiento,
		GradoAcademico:    models.GradoAcademico(req.GradoAcademico),
		TituloProfesional: req.TituloProfesional,
		Especialidad:      req.Especialidad,
		TarifaHora:        req.TarifaHora,
		Telefono:          req.Telefono,
		Email:             req.Email,
		Activo:            true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies an existing teacher record.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if !models.ValidCIExpedicion(req.CIExpedicion) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ci_expedicion is not a valid department code")
	}
	if !models.ValidGradoAcademico(req.GradoAcademico) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grado_academico is not a valid grade")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	exists, err := s.repo.ExistsByCI(ctx, req.CINumero, models.CIExpedicion(req.CIExpedicion), id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate ci")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
	}

	teacher.CINumero = req.CINumero
	teacher.CIExpedicion = models.CIExpedicion(req.CIExpedicion)
	teacher.Nombres = req.Nombres
	teacher.ApellidoPaterno = req.ApellidoPaterno
	teacher.ApellidoMaterno = req.ApellidoMaterno
	teacher.FechaNacimiento = req.FechaNacimiento
	teacher.GradoAcademico = models.GradoAcademico(req.GradoAcademico)
	teacher.TituloProfesional = req.TituloProfesional
	teacher.Especialidad = req.Especialidad
	teacher.TarifaHora = req.TarifaHora
	teacher.Telefono = req.Telefono
	teacher.Email = req.Email
	teacher.Activo = req.Activo
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Deactivate marks a teacher inactive. A teacher still coordinating a live
// program cannot be deactivated.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	coordinates, err := s.repo.CoordinatesPrograms(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check coordinated programs")
	}
	if coordinates {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher coordinates an active program")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}
