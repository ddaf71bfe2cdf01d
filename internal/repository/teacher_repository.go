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
)

// TeacherRepository manages persistence for teaching staff.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = `d.id, d.ci_numero, d.ci_expedicion, d.nombres, d.apellido_paterno, d.apellido_materno,
        d.fecha_nacimiento, d.grado_academico, d.titulo_profesional, d.especialidad, d.tarifa_hora,
        d.telefono, d.email, d.activo, d.fecha_registro, d.updated_at`

// List returns teachers matching the provided filters.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM docentes d"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Activo != nil {
		conditions = append(conditions, fmt.Sprintf("d.activo = $%d", len(args)+1))
		args = append(args, *filter.Activo)
	}
	if filter.Grado != "" {
		conditions = append(conditions, fmt.Sprintf("d.grado_academico = $%d", len(args)+1))
		args = append(args, filter.Grado)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(d.nombres) LIKE $%d OR LOWER(d.apellido_paterno) LIKE $%d OR LOWER(d.especialidad) LIKE $%d OR d.ci_numero LIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"apellido_paterno": "d.apellido_paterno",
		"nombres":          "d.nombres",
		"grado_academico":  "d.grado_academico",
		"fecha_registro":   "d.fecha_registro",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "apellido_paterno"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "d.apellido_paterno"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`, teacherColumns, base, column, order, size, offset)

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM docentes d WHERE d.id = $1`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByCI checks whether the (ci_numero, ci_expedicion) pair is taken,
// optionally excluding an ID.
func (r *TeacherRepository) ExistsByCI(ctx context.Context, ciNumero string, ciExpedicion models.CIExpedicion, excludeID string) (bool, error) {
	query := "SELECT 1 FROM docentes WHERE ci_numero = $1 AND ci_expedicion = $2"
	args := []interface{}{ciNumero, ciExpedicion}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher ci: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.FechaRegistro.IsZero() {
		teacher.FechaRegistro = now
	}
	teacher.UpdatedAt = now
	const query = `INSERT INTO docentes (id, ci_numero, ci_expedicion, nombres, apellido_paterno, apellido_materno,
        fecha_nacimiento, grado_academico, titulo_profesional, especialidad, tarifa_hora, telefono, email, activo, fecha_registro, updated_at)
        VALUES (:id, :ci_numero, :ci_expedicion, :nombres, :apellido_paterno, :apellido_materno,
        :fecha_nacimiento, :grado_academico, :titulo_profesional, :especialidad, :tarifa_hora, :telefono, :email, :activo, :fecha_registro, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE docentes SET ci_numero = :ci_numero, ci_expedicion = :ci_expedicion, nombres = :nombres,
        apellido_paterno = :apellido_paterno, apellido_materno = :apellido_materno, fecha_nacimiento = :fecha_nacimiento,
        grado_academico = :grado_academico, titulo_profesional = :titulo_profesional, especialidad = :especialidad,
        tarifa_hora = :tarifa_hora, telefono = :telefono, email = :email, activo = :activo, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Deactivate marks a teacher as inactive.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE docentes SET activo = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}

// CoordinatesPrograms reports whether the teacher coordinates any program
// that has not reached a terminal state.
func (r *TeacherRepository) CoordinatesPrograms(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM programas WHERE docente_coordinador_id = $1 AND estado NOT IN ($2, $3) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id, models.ProgramStateConcluido, models.ProgramStateCancelado); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check coordinated programs: %w", err)
	}
	return true, nil
}
