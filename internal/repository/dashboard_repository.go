package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/formagestpro/formagest-api/internal/dto"
)

// DashboardRepository runs the aggregate queries behind the landing page.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Counters fills the scalar metrics of the dashboard payload.
func (r *DashboardRepository) Counters(ctx context.Context) (*dto.DashboardMetrics, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM estudiantes WHERE activo) AS total_estudiantes,
        (SELECT COUNT(*) FROM docentes WHERE activo) AS total_docentes,
        (SELECT COUNT(*) FROM programas WHERE estado IN ('INSCRIPCIONES', 'EN_CURSO')) AS programas_activos,
        (SELECT COUNT(*) FROM programas WHERE EXTRACT(YEAR FROM fecha_inicio) = EXTRACT(YEAR FROM CURRENT_DATE)) AS programas_anio_actual,
        (SELECT COALESCE(SUM(monto_final), 0) FROM transacciones
            WHERE estado = 'CONFIRMADO' AND date_trunc('month', fecha_pago) = date_trunc('month', CURRENT_DATE)) AS ingresos_mes,
        (SELECT COUNT(*) FROM inscripciones
            WHERE date_trunc('month', fecha_inscripcion) = date_trunc('month', CURRENT_DATE)) AS inscripciones_mes`

	var row struct {
		TotalEstudiantes    int     `db:"total_estudiantes"`
		TotalDocentes       int     `db:"total_docentes"`
		ProgramasActivos    int     `db:"programas_activos"`
		ProgramasAnioActual int     `db:"programas_anio_actual"`
		IngresosMes         float64 `db:"ingresos_mes"`
		InscripcionesMes    int     `db:"inscripciones_mes"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("dashboard counters: %w", err)
	}
	return &dto.DashboardMetrics{
		TotalEstudiantes:    row.TotalEstudiantes,
		TotalDocentes:       row.TotalDocentes,
		ProgramasActivos:    row.ProgramasActivos,
		ProgramasAnioActual: row.ProgramasAnioActual,
		IngresosMes:         row.IngresosMes,
		InscripcionesMes:    row.InscripcionesMes,
	}, nil
}

// StateDistribution counts programs per lifecycle state.
func (r *DashboardRepository) StateDistribution(ctx context.Context) ([]dto.ProgramStateCount, error) {
	const query = `SELECT estado, COUNT(*) AS total FROM programas GROUP BY estado ORDER BY estado`
	var rows []dto.ProgramStateCount
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("program state distribution: %w", err)
	}
	return rows, nil
}

// Occupancy reports slot usage for programs currently accepting students.
func (r *DashboardRepository) Occupancy(ctx context.Context) ([]dto.ProgramOccupancyEntry, error) {
	const query = `SELECT id AS programa_id, nombre AS programa_nombre, cupos_maximos, cupos_inscritos
        FROM programas WHERE estado IN ('INSCRIPCIONES', 'EN_CURSO') ORDER BY nombre`
	var rows []dto.ProgramOccupancyEntry
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("program occupancy: %w", err)
	}
	for i := range rows {
		if rows[i].CuposMaximos != nil && *rows[i].CuposMaximos > 0 {
			rows[i].Porcentaje = float64(rows[i].CuposInscritos) / float64(*rows[i].CuposMaximos) * 100
		}
	}
	return rows, nil
}
