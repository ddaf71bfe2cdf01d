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

// ProgramRepository manages persistence for academic programs.
type ProgramRepository struct {
	db *sqlx.DB
}

// NewProgramRepository constructs a ProgramRepository.
func NewProgramRepository(db *sqlx.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

const programColumns = `p.id, p.codigo, p.nombre, p.descripcion, p.duracion_meses, p.horas_totales,
        p.costo_total, p.costo_matricula, p.costo_inscripcion, p.costo_mensualidad, p.numero_cuotas,
        p.cupos_maximos, p.cupos_inscritos, p.estado, p.fecha_inicio, p.fecha_fin, p.docente_coordinador_id,
        p.promocion_descuento, p.promocion_descripcion, p.promocion_valido_hasta, p.created_at, p.updated_at`

// List returns programs matching the provided filters.
func (r *ProgramRepository) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error) {
	base := "FROM programas p LEFT JOIN docentes d ON d.id = p.docente_coordinador_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Estado != "" {
		conditions = append(conditions, fmt.Sprintf("p.estado = $%d", len(args)+1))
		args = append(args, filter.Estado)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.nombre) LIKE $%d OR LOWER(p.codigo) LIKE $%d)", idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"nombre":       "p.nombre",
		"codigo":       "p.codigo",
		"fecha_inicio": "p.fecha_inicio",
		"created_at":   "p.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "p.created_at"
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

	query := fmt.Sprintf(`SELECT %s,
        CASE WHEN d.id IS NULL THEN NULL ELSE d.nombres || ' ' || d.apellido_paterno END AS coordinador_nombre
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, programColumns, base, column, order, size, offset)

	var programs []models.ProgramDetail
	if err := r.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list programs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count programs: %w", err)
	}
	return programs, total, nil
}

// FindByID fetches a program with coordinator context.
func (r *ProgramRepository) FindByID(ctx context.Context, id string) (*models.ProgramDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        CASE WHEN d.id IS NULL THEN NULL ELSE d.nombres || ' ' || d.apellido_paterno END AS coordinador_nombre
        FROM programas p LEFT JOIN docentes d ON d.id = p.docente_coordinador_id
        WHERE p.id = $1`, programColumns)
	var detail models.ProgramDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCodigo checks whether the program code is taken, optionally
// excluding an ID.
func (r *ProgramRepository) ExistsByCodigo(ctx context.Context, codigo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM programas WHERE codigo = $1"
	args := []interface{}{codigo}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check program code: %w", err)
	}
	return true, nil
}

// Create inserts a new program record.
func (r *ProgramRepository) Create(ctx context.Context, program *models.Program) error {
	if program.ID == "" {
		program.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if program.CreatedAt.IsZero() {
		program.CreatedAt = now
	}
	program.UpdatedAt = now
	const query = `INSERT INTO programas (id, codigo, nombre, descripcion, duracion_meses, horas_totales,
        costo_total, costo_matricula, costo_inscripcion, costo_mensualidad, numero_cuotas,
        cupos_maximos, cupos_inscritos, estado, fecha_inicio, fecha_fin, docente_coordinador_id,
        promocion_descuento, promocion_descripcion, promocion_valido_hasta, created_at, updated_at)
        VALUES (:id, :codigo, :nombre, :descripcion, :duracion_meses, :horas_totales,
        :costo_total, :costo_matricula, :costo_inscripcion, :costo_mensualidad, :numero_cuotas,
        :cupos_maximos, :cupos_inscritos, :estado, :fecha_inicio, :fecha_fin, :docente_coordinador_id,
        :promocion_descuento, :promocion_descripcion, :promocion_valido_hasta, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("create program: %w", err)
	}
	return nil
}

// Update modifies an existing program. Slot counters and lifecycle state are
// managed through their dedicated operations.
func (r *ProgramRepository) Update(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now().UTC()
	const query = `UPDATE programas SET codigo = :codigo, nombre = :nombre, descripcion = :descripcion,
        duracion_meses = :duracion_meses, horas_totales = :horas_totales, costo_total = :costo_total,
        costo_matricula = :costo_matricula, costo_inscripcion = :costo_inscripcion, costo_mensualidad = :costo_mensualidad,
        numero_cuotas = :numero_cuotas, cupos_maximos = :cupos_maximos, fecha_inicio = :fecha_inicio, fecha_fin = :fecha_fin,
        docente_coordinador_id = :docente_coordinador_id, promocion_descuento = :promocion_descuento,
        promocion_descripcion = :promocion_descripcion, promocion_valido_hasta = :promocion_valido_hasta,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, program); err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	return nil
}

// UpdateState persists a lifecycle transition.
func (r *ProgramRepository) UpdateState(ctx context.Context, id string, state models.ProgramState) error {
	const query = `UPDATE programas SET estado = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update program state: %w", err)
	}
	return nil
}

// LockByID loads a program inside the given transaction taking a row lock,
// so concurrent enrollments serialize on the slot counter.
func (r *ProgramRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id string) (*models.Program, error) {
	const query = `SELECT id, codigo, nombre, descripcion, duracion_meses, horas_totales,
        costo_total, costo_matricula, costo_inscripcion, costo_mensualidad, numero_cuotas,
        cupos_maximos, cupos_inscritos, estado, fecha_inicio, fecha_fin, docente_coordinador_id,
        promocion_descuento, promocion_descripcion, promocion_valido_hasta, created_at, updated_at
        FROM programas WHERE id = $1 FOR UPDATE`
	var program models.Program
	if err := tx.GetContext(ctx, &program, query, id); err != nil {
		return nil, err
	}
	return &program, nil
}

// AdjustSlots moves the occupied-slot counter by delta inside a transaction.
func (r *ProgramRepository) AdjustSlots(ctx context.Context, tx *sqlx.Tx, id string, delta int) error {
	const query = `UPDATE programas SET cupos_inscritos = cupos_inscritos + $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("adjust program slots: %w", err)
	}
	return nil
}

// Stats aggregates program counters per lifecycle state plus occupancy.
func (r *ProgramRepository) Stats(ctx context.Context) (*models.ProgramStats, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE estado = 'PLANIFICADO') AS planificados,
        COUNT(*) FILTER (WHERE estado = 'INSCRIPCIONES') AS en_inscripcion,
        COUNT(*) FILTER (WHERE estado = 'EN_CURSO') AS en_curso,
        COUNT(*) FILTER (WHERE estado = 'CONCLUIDO') AS concluidos,
        COUNT(*) FILTER (WHERE estado = 'CANCELADO') AS cancelados,
        COALESCE(SUM(cupos_maximos) FILTER (WHERE cupos_maximos IS NOT NULL), 0) AS cupos_ofertados,
        COALESCE(SUM(cupos_inscritos) FILTER (WHERE cupos_maximos IS NOT NULL), 0) AS cupos_ocupados,
        CASE WHEN COALESCE(SUM(cupos_maximos) FILTER (WHERE cupos_maximos IS NOT NULL), 0) = 0 THEN 0
             ELSE SUM(cupos_inscritos) FILTER (WHERE cupos_maximos IS NOT NULL)::float / SUM(cupos_maximos) FILTER (WHERE cupos_maximos IS NOT NULL)
        END AS ocupacion
        FROM programas`
	var stats models.ProgramStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("program stats: %w", err)
	}
	return &stats, nil
}
