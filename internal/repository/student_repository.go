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

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM estudiantes e"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Activo != nil {
		conditions = append(conditions, fmt.Sprintf("e.activo = $%d", len(args)+1))
		args = append(args, *filter.Activo)
	}
	if filter.CINumero != "" {
		conditions = append(conditions, fmt.Sprintf("e.ci_numero = $%d", len(args)+1))
		args = append(args, filter.CINumero)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(
			"(LOWER(e.nombres) LIKE $%d OR LOWER(e.apellido_paterno) LIKE $%d OR LOWER(e.apellido_materno) LIKE $%d OR e.ci_numero LIKE $%d)",
			idx, idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"apellido_paterno": "e.apellido_paterno",
		"nombres":          "e.nombres",
		"ci_numero":        "e.ci_numero",
		"fecha_registro":   "e.fecha_registro",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "fecha_registro"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "e.fecha_registro"
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

	query := fmt.Sprintf(`SELECT e.id, e.ci_numero, e.ci_expedicion, e.nombres, e.apellido_paterno, e.apellido_materno,
        e.fecha_nacimiento, e.telefono, e.email, e.direccion, e.profesion, e.universidad, e.fotografia_url,
        e.activo, e.fecha_registro, e.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, ci_numero, ci_expedicion, nombres, apellido_paterno, apellido_materno,
        fecha_nacimiento, telefono, email, direccion, profesion, universidad, fotografia_url,
        activo, fecha_registro, updated_at
        FROM estudiantes WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByCI checks whether the (ci_numero, ci_expedicion) pair is already
// registered, optionally excluding an ID.
func (r *StudentRepository) ExistsByCI(ctx context.Context, ciNumero string, ciExpedicion models.CIExpedicion, excludeID string) (bool, error) {
	query := "SELECT 1 FROM estudiantes WHERE ci_numero = $1 AND ci_expedicion = $2"
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
		return false, fmt.Errorf("check student ci: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.FechaRegistro.IsZero() {
		student.FechaRegistro = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO estudiantes (id, ci_numero, ci_expedicion, nombres, apellido_paterno, apellido_materno,
        fecha_nacimiento, telefono, email, direccion, profesion, universidad, fotografia_url, activo, fecha_registro, updated_at)
        VALUES (:id, :ci_numero, :ci_expedicion, :nombres, :apellido_paterno, :apellido_materno,
        :fecha_nacimiento, :telefono, :email, :direccion, :profesion, :universidad, :fotografia_url, :activo, :fecha_registro, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE estudiantes SET ci_numero = :ci_numero, ci_expedicion = :ci_expedicion, nombres = :nombres,
        apellido_paterno = :apellido_paterno, apellido_materno = :apellido_materno, fecha_nacimiento = :fecha_nacimiento,
        telefono = :telefono, email = :email, direccion = :direccion, profesion = :profesion, universidad = :universidad,
        fotografia_url = :fotografia_url, activo = :activo, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE estudiantes SET activo = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// Stats returns registry counters for the student statistics view.
func (r *StudentRepository) Stats(ctx context.Context) (*models.StudentStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE activo) AS activos,
        COUNT(*) FILTER (WHERE NOT activo) AS inactivos,
        COUNT(*) FILTER (WHERE date_trunc('month', fecha_registro) = date_trunc('month', CURRENT_DATE)) AS registrados_mes
        FROM estudiantes`
	var stats models.StudentStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("student stats: %w", err)
	}
	return &stats, nil
}

// ProgramSummaries returns the student's enrollments with the financial
// position of each one. Confirmed transactions are the only ones counted
// toward total_pagado, and the balance never goes below zero.
func (r *StudentRepository) ProgramSummaries(ctx context.Context, studentID string) ([]models.StudentProgramSummary, error) {
	const query = `SELECT i.id AS inscripcion_id, p.id AS programa_id, p.codigo AS programa_codigo, p.nombre AS programa_nombre,
        i.estado_academico,
        COALESCE(i.valor_final, p.costo_total) AS costo_total,
        COALESCE(t.total_pagado, 0) AS total_pagado,
        GREATEST(COALESCE(i.valor_final, p.costo_total) - COALESCE(t.total_pagado, 0), 0) AS saldo_pendiente
        FROM inscripciones i
        JOIN programas p ON p.id = i.programa_id
        LEFT JOIN (
            SELECT inscripcion_id, SUM(monto_final) AS total_pagado
            FROM transacciones WHERE estado = $2 GROUP BY inscripcion_id
        ) t ON t.inscripcion_id = i.id
        WHERE i.estudiante_id = $1
        ORDER BY i.fecha_inscripcion DESC`
	var rows []models.StudentProgramSummary
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.TransactionStateConfirmado); err != nil {
		return nil, fmt.Errorf("student program summaries: %w", err)
	}
	for i := range rows {
		rows[i].EstadoFin = models.StandingFor(rows[i].CostoTotal, rows[i].TotalPagado)
	}
	return rows, nil
}
