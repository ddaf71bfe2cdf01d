package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/models"
)

// ReportRepository runs the financial aggregation queries behind reports and
// tracks asynchronous export jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// balanceBase joins enrollments to their confirmed-payment totals. Annulled
// and merely registered transactions never count toward total_pagado.
const balanceBase = `FROM inscripciones i
JOIN estudiantes e ON e.id = i.estudiante_id
JOIN programas p ON p.id = i.programa_id
LEFT JOIN (
    SELECT inscripcion_id, SUM(monto_final) AS total_pagado, MAX(fecha_pago) AS ultimo_pago
    FROM transacciones WHERE estado = 'CONFIRMADO' GROUP BY inscripcion_id
) t ON t.inscripcion_id = i.id`

// StudentBalances returns the per-enrollment balance rows, optionally
// limited to one program.
func (r *ReportRepository) StudentBalances(ctx context.Context, programID string) ([]models.StudentBalance, error) {
	query := fmt.Sprintf(`SELECT i.id AS inscripcion_id, e.id AS estudiante_id,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        p.id AS programa_id, p.nombre AS programa_nombre,
        COALESCE(i.valor_final, p.costo_total) AS costo_total,
        COALESCE(t.total_pagado, 0) AS total_pagado,
        GREATEST(COALESCE(i.valor_final, p.costo_total) - COALESCE(t.total_pagado, 0), 0) AS saldo_pendiente
        %s
        WHERE i.estado_academico NOT IN ('RETIRADO')`, balanceBase)
	args := []interface{}{}
	if programID != "" {
		query += " AND p.id = $1"
		args = append(args, programID)
	}
	query += " ORDER BY e.apellido_paterno, e.nombres"

	var rows []models.StudentBalance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student balances: %w", err)
	}
	for i := range rows {
		rows[i].EstadoFinanciero = models.StandingFor(rows[i].CostoTotal, rows[i].TotalPagado)
	}
	return rows, nil
}

// Delinquents returns enrollments carrying a balance whose last confirmed
// payment (or program start, when none exists) is older than toleranceDays.
func (r *ReportRepository) Delinquents(ctx context.Context, toleranceDays int) ([]models.DelinquentStudent, error) {
	query := fmt.Sprintf(`SELECT i.id AS inscripcion_id, e.id AS estudiante_id,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        e.telefono, e.email, p.nombre AS programa_nombre,
        GREATEST(COALESCE(i.valor_final, p.costo_total) - COALESCE(t.total_pagado, 0), 0) AS saldo_pendiente,
        t.ultimo_pago,
        EXTRACT(DAY FROM now() - COALESCE(t.ultimo_pago, p.fecha_inicio, i.fecha_inscripcion))::int AS dias_sin_pago
        %s
        WHERE i.estado_academico IN ('INSCRITO', 'EN_CURSO')
          AND p.estado = 'EN_CURSO'
          AND GREATEST(COALESCE(i.valor_final, p.costo_total) - COALESCE(t.total_pagado, 0), 0) > 0
          AND COALESCE(t.ultimo_pago, p.fecha_inicio, i.fecha_inscripcion) < now() - ($1 * INTERVAL '1 day')
        ORDER BY dias_sin_pago DESC`, balanceBase)

	var rows []models.DelinquentStudent
	if err := r.db.SelectContext(ctx, &rows, query, toleranceDays); err != nil {
		return nil, fmt.Errorf("delinquent students: %w", err)
	}
	return rows, nil
}

// TopPayers ranks students by confirmed payment volume.
func (r *ReportRepository) TopPayers(ctx context.Context, limit int) ([]models.TopPayer, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT e.id AS estudiante_id,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        SUM(t.monto_final) AS total_pagado, COUNT(*) AS transacciones
        FROM transacciones t
        JOIN estudiantes e ON e.id = t.estudiante_id
        WHERE t.estado = 'CONFIRMADO'
        GROUP BY e.id, e.nombres, e.apellido_paterno
        ORDER BY total_pagado DESC LIMIT %d`, limit)

	var rows []models.TopPayer
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("top payers: %w", err)
	}
	return rows, nil
}

// MonthlyIncome returns the confirmed-income series for the last n months.
func (r *ReportRepository) MonthlyIncome(ctx context.Context, months int) ([]models.MonthlyIncome, error) {
	if months <= 0 || months > 60 {
		months = 12
	}
	const query = `SELECT EXTRACT(YEAR FROM fecha_pago)::int AS anio, EXTRACT(MONTH FROM fecha_pago)::int AS mes,
        COALESCE(SUM(monto_final), 0) AS total, COUNT(*) AS cuenta
        FROM transacciones
        WHERE estado = 'CONFIRMADO' AND fecha_pago >= date_trunc('month', now()) - ($1 * INTERVAL '1 month')
        GROUP BY 1, 2 ORDER BY 1, 2`

	var rows []models.MonthlyIncome
	if err := r.db.SelectContext(ctx, &rows, query, months); err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	return rows, nil
}

// PaymentsOfDay lists the confirmed payments of one calendar day.
func (r *ReportRepository) PaymentsOfDay(ctx context.Context, day time.Time) ([]models.DailyPayment, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)
	const query = `SELECT t.id AS transaccion_id, t.numero_transaccion,
        e.nombres || ' ' || e.apellido_paterno AS estudiante_nombre,
        p.nombre AS programa_nombre, t.forma_pago, t.monto_final, t.fecha_pago
        FROM transacciones t
        JOIN estudiantes e ON e.id = t.estudiante_id
        LEFT JOIN programas p ON p.id = t.programa_id
        WHERE t.estado = 'CONFIRMADO' AND t.fecha_pago >= $1 AND t.fecha_pago < $2
        ORDER BY t.fecha_pago`

	var rows []models.DailyPayment
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("payments of day: %w", err)
	}
	return rows, nil
}

// CreateJob records a new export job.
func (r *ReportRepository) CreateJob(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Estado == "" {
		job.Estado = models.ReportJobPending
	}
	job.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO reporte_jobs (id, tipo_reporte, formato, estado, parametros, ruta_archivo, error, solicitado_por, created_at, completed_at)
        VALUES (:id, :tipo_reporte, :formato, :estado, :parametros, :ruta_archivo, :error, :solicitado_por, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindJob returns an export job by ID.
func (r *ReportRepository) FindJob(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, tipo_reporte, formato, estado, parametros, ruta_archivo, error, solicitado_por, created_at, completed_at
        FROM reporte_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkJobRunning flips a pending job to RUNNING.
func (r *ReportRepository) MarkJobRunning(ctx context.Context, id string) error {
	const query = `UPDATE reporte_jobs SET estado = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobRunning); err != nil {
		return fmt.Errorf("mark report job running: %w", err)
	}
	return nil
}

// MarkJobCompleted records the artifact path of a finished job.
func (r *ReportRepository) MarkJobCompleted(ctx context.Context, id, path string) error {
	const query = `UPDATE reporte_jobs SET estado = $2, ruta_archivo = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobCompleted, path, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report job completed: %w", err)
	}
	return nil
}

// MarkJobFailed records the failure reason of a job.
func (r *ReportRepository) MarkJobFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE reporte_jobs SET estado = $2, error = $3, completed_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReportJobFailed, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}
