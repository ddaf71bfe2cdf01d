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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByCI(ctx context.Context, ciNumero string, ciExpedicion models.CIExpedicion, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.StudentStats, error)
	ProgramSummaries(ctx context.Context, studentID string) ([]models.StudentProgramSummary, error)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	CINumero        string     `json:"ci_numero" validate:"required"`
	CIExpedicion    string     `json:"ci_expedicion" validate:"required"`
	Nombres         string     `json:"nombres" validate:"required"`
	ApellidoPaterno string     `json:"apellido_paterno" validate:"required"`
	ApellidoMaterno string     `json:"apellido_materno"`
	FechaNacimiento *time.Time `json:"fecha_nacimiento"`
	Telefono        string     `json:"telefono"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Direccion       string     `json:"direccion"`
	Profesion       string     `json:"profesion"`
	Universidad     string     `json:"universidad"`
	FotografiaURL   *string    `json:"fotografia_url"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	CINumero        string     `json:"ci_numero" validate:"required"`
	CIExpedicion    string     `json:"ci_expedicion" validate:"required"`
	Nombres         string     `json:"nombres" validate:"required"`
	ApellidoPaterno string     `json:"apellido_paterno" validate:"required"`
	ApellidoMaterno string     `json:"apellido_materno"`
	FechaNacimiento *time.Time `json:"fecha_nacimiento"`
	Telefono        string     `json:"telefono"`
	Email           string     `json:"email" validate:"omitempty,email"`
	Direccion       string     `json:"direccion"`
	Profesion       string     `json:"profesion"`
	Universidad     string     `json:"universidad"`
	FotografiaURL   *string    `json:"fotografia_url"`
	Activo          bool       `json:"activo"`
}

// StudentService handles the student registry use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, &pagination, nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student. The (ci_numero, ci_expedicion) pair must
// be unique and the expedition code must belong to the closed set.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidCIExpedicion(req.CIExpedicion) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ci_expedicion is not a valid department code")
	}
	exists, err := s.repo.ExistsByCI(ctx, req.CINumero, models.CIExpedicion(req.CIExpedicion), "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate ci")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
	}

	student := &models.Student{
		CINumero:        req.CINumero,
		CIExpedicion:    models.CIExpedicion(req.CIExpedicion),
		Nombres:         req.Nombres,
		ApellidoPaterno: req.ApellidoPaterno,
		ApellidoMaterno: req.ApellidoMaterno,
		FechaNacimiento: req.FechaNacimiento,
		Telefono:        req.Telefono,
		Email:           req.Email,
		Direccion:       req.Direccion,
		Profesion:       req.Profesion,
		Universidad:     req.Universidad,
		FotografiaURL:   req.FotografiaURL,
		Activo:          true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !models.ValidCIExpedicion(req.CIExpedicion) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ci_expedicion is not a valid department code")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByCI(ctx, req.CINumero, models.CIExpedicion(req.CIExpedicion), id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate ci")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "ci already registered")
	}

	student.CINumero = req.CINumero
	student.CIExpedicion = models.CIExpedicion(req.CIExpedicion)
	student.Nombres = req.Nombres
	student.ApellidoPaterno = req.ApellidoPaterno
	student.ApellidoMaterno = req.ApellidoMaterno
	student.FechaNacimiento = req.FechaNacimiento
	student.Telefono = req.Telefono
	student.Email = req.Email
	student.Direccion = req.Direccion
	student.Profesion = req.Profesion
	student.Universidad = req.Universidad
	student.FotografiaURL = req.FotografiaURL
	student.Activo = req.Activo
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate marks a student inactive, preserving history.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// Stats returns registry counters.
func (s *StudentService) Stats(ctx context.Context) (*models.StudentStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student stats")
	}
	return stats, nil
}

// Programs returns the student's enrollments with financial standing.
func (s *StudentService) Programs(ctx context.Context, id string) ([]models.StudentProgramSummary, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	summaries, err := s.repo.ProgramSummaries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student programs")
	}
	return summaries, nil
}
