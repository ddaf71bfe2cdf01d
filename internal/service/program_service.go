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

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ProgramDetail, error)
	ExistsByCodigo(ctx context.Context, codigo, excludeID string) (bool, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	UpdateState(ctx context.Context, id string, state models.ProgramState) error
	Stats(ctx context.Context) (*models.ProgramStats, error)
}

type programTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateProgramRequest holds payload for creating academic programs.
type CreateProgramRequest struct {
	Codigo               string     `json:"codigo" validate:"required"`
	Nombre               string     `json:"nombre" validate:"required"`
	Descripcion          string     `json:"descripcion"`
	DuracionMeses        int        `json:"duracion_meses" validate:"required,gt=0"`
	HorasTotales         int        `json:"horas_totales" validate:"required,gt=0"`
	CostoTotal           float64    `json:"costo_total" validate:"gte=0"`
	CostoMatricula       float64    `json:"costo_matricula" validate:"gte=0"`
	CostoInscripcion     float64    `json:"costo_inscripcion" validate:"gte=0"`
	CostoMensualidad     float64    `json:"costo_mensualidad" validate:"gte=0"`
	NumeroCuotas         int        `json:"numero_cuotas" validate:"required,gt=0"`
	CuposMaximos         *int       `json:"cupos_maximos" validate:"omitempty,gt=0"`
	FechaInicio          *time.Time `json:"fecha_inicio"`
	FechaFin             *time.Time `json:"fecha_fin"`
	CoordinadorID        *string    `json:"docente_coordinador_id"`
	PromocionDescuento   float64    `json:"promocion_descuento" validate:"gte=0,lte=100"`
	PromocionDescripcion string     `json:"promocion_descripcion"`
	PromocionValidoHasta *time.Time `json:"promocion_valido_hasta"`
}

// UpdateProgramRequest holds payload for updating academic programs.
type UpdateProgramRequest struct {
	Codigo               string     `json:"codigo" validate:"required"`
	Nombre               string     `json:"nombre" validate:"required"`
	Descripcion          string     `json:"descripcion"`
	DuracionMeses        int        `json:"duracion_meses" validate:"required,gt=0"`
	HorasTotales         int        `json:"horas_totales" validate:"required,gt=0"`
	CostoTotal           float64    `json:"costo_total" validate:"gte=0"`
	CostoMatricula       float64    `json:"costo_matricula" validate:"gte=0"`
	CostoInscripcion     float64    `json:"costo_inscripcion" validate:"gte=0"`
	CostoMensualidad     float64    `json:"costo_mensualidad" validate:"gte=0"`
	NumeroCuotas         int        `json:"numero_cuotas" validate:"required,gt=0"`
	CuposMaximos         *int       `json:"cupos_maximos" validate:"omitempty,gt=0"`
	FechaInicio          *time.Time `json:"fecha_inicio"`
	FechaFin             *time.Time `json:"fecha_fin"`
	CoordinadorID        *string    `json:"docente_coordinador_id"`
	PromocionDescuento   float64    `json:"promocion_descuento" validate:"gte=0,lte=100"`
	PromocionDescripcion string     `json:"promocion_descripcion"`
	PromocionValidoHasta *time.Time `json:"promocion_valido_hasta"`
}

// ProgramService handles the academic program lifecycle.
type ProgramService struct {
	repo      programRepository
	teachers  programTeacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs the program service.
func NewProgramService(repo programRepository, teachers programTeacherRepository, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramService{repo: repo, teachers: teachers, validator: validate, logger: logger}
}

// List returns programs and pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
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
	return programs, &pagination, nil
}

// Get returns a program with coordinator context.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.ProgramDetail, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// Create registers a new program in PLANIFICADO state. When fecha_fin is
// omitted the end date is derived from the start date plus the duration in
// months.
func (s *ProgramService) Create(ctx context.Context, req CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	fin, err := resolveEndDate(req.FechaInicio, req.FechaFin, req.DuracionMeses)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCodigo(ctx, req.Codigo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate program code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "program code already used")
	}
	if err := s.validateCoordinator(ctx, req.CoordinadorID); err != nil {
		return nil, err
	}

	program := &models.Program{
		Codigo:               req.Codigo,
		Nombre:               req.Nombre,
		Descripcion:          req.Descripcion,
		DuracionMeses:        req.DuracionMeses,
		HorasTotales:         req.HorasTotales,
		CostoTotal:           req.CostoTotal,
		CostoMatricula:       req.CostoMatricula,
		CostoInscripcion:     req.CostoInscripcion,
		CostoMensualidad:     req.CostoMensualidad,
		NumeroCuotas:         req.NumeroCuotas,
		CuposMaximos:         req.CuposMaximos,
		Estado:               models.ProgramStatePlanificado,
		FechaInicio:          req.FechaInicio,
		FechaFin:             fin,
		CoordinadorID:        req.CoordinadorID,
		PromocionDescuento:   req.PromocionDescuento,
		PromocionDescripcion: req.PromocionDescripcion,
		PromocionValidoHasta: req.PromocionValidoHasta,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		if appErrors.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "program code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Update modifies a program. Programs in terminal states are immutable.
func (s *ProgramService) Update(ctx context.Context, id string, req UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	fin, err := resolveEndDate(req.FechaInicio, req.FechaFin, req.DuracionMeses)
	if err != nil {
		return nil, err
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if detail.Estado.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program is in a terminal state")
	}
	exists, err := s.repo.ExistsByCodigo(ctx, req.Codigo, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate program code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "program code already used")
	}
	if req.CuposMaximos != nil && *req.CuposMaximos < detail.CuposInscritos {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cupos_maximos cannot go below current enrollment")
	}
	if err := s.validateCoordinator(ctx, req.CoordinadorID); err != nil {
		return nil, err
	}

	program := detail.Program
	program.Codigo = req.Codigo
	program.Nombre = req.Nombre
	program.Descripcion = req.Descripcion
	program.DuracionMeses = req.DuracionMeses
	program.HorasTotales = req.HorasTotales
	program.CostoTotal = req.CostoTotal
	program.CostoMatricula = req.CostoMatricula
	program.CostoInscripcion = req.CostoInscripcion
	program.CostoMensualidad = req.CostoMensualidad
	program.NumeroCuotas = req.NumeroCuotas
	program.CuposMaximos = req.CuposMaximos
	program.FechaInicio = req.FechaInicio
	program.FechaFin = fin
	program.CoordinadorID = req.CoordinadorID
	program.PromocionDescuento = req.PromocionDescuento
	program.PromocionDescripcion = req.PromocionDescripcion
	program.PromocionValidoHasta = req.PromocionValidoHasta
	if err := s.repo.Update(ctx, &program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	return &program, nil
}

// Advance moves the program to the next lifecycle state
// (PLANIFICADO, INSCRIPCIONES, EN_CURSO, CONCLUIDO in that order).
func (s *ProgramService) Advance(ctx context.Context, id string) (*models.Program, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	next, ok := detail.Estado.NextState()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program has no forward transition")
	}
	if err := s.repo.UpdateState(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance program")
	}
	program := detail.Program
	program.Estado = next
	return &program, nil
}

// Cancel moves the program to CANCELADO. Only programs without enrolled
// students can be cancelled.
func (s *ProgramService) Cancel(ctx context.Context, id string) (*models.Program, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if detail.Estado.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program is in a terminal state")
	}
	if detail.CuposInscritos > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "program has enrolled students")
	}
	if err := s.repo.UpdateState(ctx, id, models.ProgramStateCancelado); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel program")
	}
	program := detail.Program
	program.Estado = models.ProgramStateCancelado
	return &program, nil
}

// Reactivate returns a cancelled program to PLANIFICADO.
func (s *ProgramService) Reactivate(ctx context.Context, id string) (*models.Program, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	if detail.Estado != models.ProgramStateCancelado {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only cancelled programs can be reactivated")
	}
	if err := s.repo.UpdateState(ctx, id, models.ProgramStatePlanificado); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate program")
	}
	program := detail.Program
	program.Estado = models.ProgramStatePlanificado
	return &program, nil
}

// Availability reports whether the program currently accepts enrollments
// and how many slots remain.
func (s *ProgramService) Availability(ctx context.Context, id string) (*models.ProgramAvailability, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	availability := &models.ProgramAvailability{Estado: detail.Estado}
	if detail.Estado == models.ProgramStateCancelado || detail.Estado == models.ProgramStateConcluido {
		availability.Mensaje = "el programa no admite inscripciones"
		return availability, nil
	}
	if detail.CuposMaximos == nil {
		availability.Disponible = true
		availability.CuposDisponibles = models.UnlimitedSlots
		availability.Mensaje = "cupos ilimitados"
		return availability, nil
	}
	remaining := *detail.CuposMaximos - detail.CuposInscritos
	if remaining <= 0 {
		availability.Mensaje = "no hay cupos disponibles"
		return availability, nil
	}
	availability.Disponible = true
	availability.CuposDisponibles = remaining
	availability.Mensaje = "cupos disponibles"
	return availability, nil
}

// Stats returns program counters per state plus occupancy.
func (s *ProgramService) Stats(ctx context.Context) (*models.ProgramStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program stats")
	}
	return stats, nil
}

func (s *ProgramService) validateCoordinator(ctx context.Context, coordinatorID *string) error {
	if coordinatorID == nil || *coordinatorID == "" {
		return nil
	}
	teacher, err := s.teachers.FindByID(ctx, *coordinatorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "coordinator does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate coordinator")
	}
	if !teacher.Activo {
		return appErrors.Clone(appErrors.ErrValidation, "coordinator is inactive")
	}
	return nil
}

// resolveEndDate keeps an explicit end date after checking it does not
// precede the start; otherwise it derives the end from the start plus the
// duration in months.
func resolveEndDate(start, end *time.Time, months int) (*time.Time, error) {
	if end != nil {
		if start != nil && end.Before(*start) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fecha_fin cannot precede fecha_inicio")
		}
		return end, nil
	}
	if start == nil {
		return nil, nil
	}
	derived := start.AddDate(0, months, 0)
	return &derived, nil
}
