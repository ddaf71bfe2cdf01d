package dto

// DashboardMetrics is the aggregated landing-page payload.
type DashboardMetrics struct {
	TotalEstudiantes    int                     `json:"total_estudiantes"`
	TotalDocentes       int                     `json:"total_docentes"`
	ProgramasActivos    int                     `json:"programas_activos"`
	ProgramasAnioActual int                     `json:"programas_anio_actual"`
	IngresosMes         float64                 `json:"ingresos_mes"`
	InscripcionesMes    int                     `json:"inscripciones_mes"`
	Distribucion        []ProgramStateCount     `json:"distribucion_programas"`
	Ocupacion           []ProgramOccupancyEntry `json:"ocupacion"`
}

// ProgramStateCount counts programs per lifecycle state.
type ProgramStateCount struct {
	Estado string `db:"estado" json:"estado"`
	Total  int    `db:"total" json:"total"`
}

// ProgramOccupancyEntry reports slot usage for one open program. Porcentaje
// is zero for unlimited-capacity programs.
type ProgramOccupancyEntry struct {
	ProgramaID     string  `db:"programa_id" json:"programa_id"`
	ProgramaNombre string  `db:"programa_nombre" json:"programa_nombre"`
	CuposMaximos   *int    `db:"cupos_maximos" json:"cupos_maximos,omitempty"`
	CuposInscritos int     `db:"cupos_inscritos" json:"cupos_inscritos"`
	Porcentaje     float64 `db:"-" json:"porcentaje"`
}
