package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
	appErrors "github.com/formagestpro/formagest-api/pkg/errors"
)

// EnrollmentRepository handles persistence of program enrollments.
type EnrollmentRepository struct {
	db       *sqlx.DB
	programs *ProgramRepository
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB, programs *ProgramRepository) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, programs: programs}
}

const enrollmentDetailColumns = `i.id, i.estudiante_id, i.programa_id, i.fecha_inscripcion, i.estado_academico,
        i.valor_final, i.observaciones, i.created_at, i.updated_at,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        e.ci_numero || ' ' || e.ci_expedicion AS estudiante_ci,
        p.codigo AS programa_codigo, p.nombre AS programa_nombre,
        p.costo_total, p.costo_matricula, p.costo_inscripcion`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM inscripciones i
JOIN estudiantes e ON e.id = i.estudiante_id
JOIN programas p ON p.id = i.programa_id`
	var conditions []string
	var args []interface{}

	if filter.EstudianteID != "" {
		conditions = append(conditions, fmt.Sprintf("i.estudiante_id = $%d", len(args)+1))
		args = append(args, filter.EstudianteID)
	}
	if filter.ProgramaID != "" {
		conditions = append(conditions, fmt.Sprintf("i.programa_id = $%d", len(args)+1))
		args = append(args, filter.ProgramaID)
	}
	if filter.Estado != "" {
		conditions = append(conditions, fmt.Sprintf("i.estado_academico = $%d", len(args)+1))
		args = append(args, filter.Estado)
	}
	if filter.Desde != nil {
		conditions = append(conditions, fmt.Sprintf("i.fecha_inscripcion >= $%d", len(args)+1))
		args = append(args, *filter.Desde)
	}
	if filter.Hasta != nil {
		conditions = append(conditions, fmt.Sprintf("i.fecha_inscripcion <= $%d", len(args)+1))
		args = append(args, *filter.Hasta)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"fecha_inscripcion": "i.fecha_inscripcion",
		"estudiante_nombre": "e.apellido_paterno",
		"programa_nombre":   "p.nombre",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "fecha_inscripcion"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "i.fecha_inscripcion"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, estudiante_id, programa_id, fecha_inscripcion, estado_academico, valor_final, observaciones, created_at, updated_at
        FROM inscripciones WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and program context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM inscripciones i
        JOIN estudiantes e ON e.id = i.estudiante_id
        JOIN programas p ON p.id = i.programa_id
        WHERE i.id = $1`, enrollmentDetailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Exists checks whether the student is already enrolled in the program.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, programID string) (bool, error) {
	const query = `SELECT 1 FROM inscripciones WHERE estudiante_id = $1 AND programa_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, programID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Enroll registers the student reserving a program slot atomically. The
// program row is locked for the duration of the transaction so two
// concurrent enrollments cannot both take the last slot.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.EnrollmentResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	program, err := r.programs.LockByID(ctx, tx, enrollment.ProgramaID)
	if err != nil {
		return nil, err
	}
	if program.Estado == models.ProgramStateCancelado || program.Estado == models.ProgramStateConcluido {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "el programa no admite inscripciones")
	}
	remaining := models.UnlimitedSlots
	if program.CuposMaximos != nil {
		remaining = *program.CuposMaximos - program.CuposInscritos
		if remaining <= 0 {
			return nil, appErrors.ErrNoCapacity
		}
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.FechaInscripcion.IsZero() {
		enrollment.FechaInscripcion = now
	}
	if enrollment.EstadoAcademico == "" {
		enrollment.EstadoAcademico = models.EnrollmentStatePreinscrito
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const insert = `INSERT INTO inscripciones (id, estudiante_id, programa_id, fecha_inscripcion, estado_academico, valor_final, observaciones, created_at, updated_at)
        VALUES (:id, :estudiante_id, :programa_id, :fecha_inscripcion, :estado_academico, :valor_final, :observaciones, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	if err := r.programs.AdjustSlots(ctx, tx, program.ID, 1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}

	if remaining != models.UnlimitedSlots {
		remaining--
	}
	return &models.EnrollmentResult{Enrollment: *enrollment, CuposRestantes: remaining}, nil
}

// UpdateState changes the academic state of an enrollment.
// UpdateTerms rewrites the negotiable fields of an enrollment.
func (r *EnrollmentRepository) UpdateTerms(ctx context.Context, id string, valorFinal *float64, observaciones string) error {
	const query = `UPDATE inscripciones SET valor_final = $2, observaciones = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, valorFinal, observaciones, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment terms: %w", err)
	}
	return nil
}

func (r *EnrollmentRepository) UpdateState(ctx context.Context, id string, state models.EnrollmentState) error {
	const query = `UPDATE inscripciones SET estado_academico = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment state: %w", err)
	}
	return nil
}

// Withdraw marks the enrollment RETIRADO and releases its program slot in
// one transaction.
func (r *EnrollmentRepository) Withdraw(ctx context.Context, id, reason string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin withdraw tx: %w", err)
	}
	defer tx.Rollback()

	var enrollment models.Enrollment
	const load = `SELECT id, estudiante_id, programa_id, fecha_inscripcion, estado_academico, valor_final, observaciones, created_at, updated_at
        FROM inscripciones WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &enrollment, load, id); err != nil {
		return err
	}
	if enrollment.EstadoAcademico == models.EnrollmentStateRetirado {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "la inscripcion ya fue retirada")
	}

	const update = `UPDATE inscripciones SET estado_academico = $2, observaciones = TRIM(observaciones || ' ' || $3), updated_at = $4 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, id, models.EnrollmentStateRetirado, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("withdraw enrollment: %w", err)
	}
	if _, err := r.programs.LockByID(ctx, tx, enrollment.ProgramaID); err != nil {
		return err
	}
	if err := r.programs.AdjustSlots(ctx, tx, enrollment.ProgramaID, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit withdraw: %w", err)
	}
	return nil
}
