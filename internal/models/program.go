package models

import "time"

// ProgramState is the lifecycle state of an academic program.
type ProgramState string

// Program lifecycle states. CONCLUIDO and CANCELADO are terminal.
const (
	ProgramStatePlanificado   ProgramState = "PLANIFICADO"
	ProgramStateInscripciones ProgramState = "INSCRIPCIONES"
	ProgramStateEnCurso       ProgramState = "EN_CURSO"
	ProgramStateConcluido     ProgramState = "CONCLUIDO"
	ProgramStateCancelado     ProgramState = "CANCELADO"
)

// Terminal reports whether no further transitions are allowed from the state.
func (s ProgramState) Terminal() bool {
	return s == ProgramStateConcluido || s == ProgramStateCancelado
}

// NextState returns the forward transition target, if any.
func (s ProgramState) NextState() (ProgramState, bool) {
	switch s {
	case ProgramStatePlanificado:
		return ProgramStateInscripciones, true
	case ProgramStateInscripciones:
		return ProgramStateEnCurso, true
	case ProgramStateEnCurso:
		return ProgramStateConcluido, true
	}
	return "", false
}

// Program is an academic program offered by the institution.
type Program struct {
	ID                   string       `db:"id" json:"id"`
	Codigo               string       `db:"codigo" json:"codigo"`
	Nombre               string       `db:"nombre" json:"nombre"`
	Descripcion          string       `db:"descripcion" json:"descripcion"`
	DuracionMeses        int          `db:"duracion_meses" json:"duracion_meses"`
	HorasTotales         int          `db:"horas_totales" json:"horas_totales"`
	CostoTotal           float64      `db:"costo_total" json:"costo_total"`
	CostoMatricula       float64      `db:"costo_matricula" json:"costo_matricula"`
	CostoInscripcion     float64      `db:"costo_inscripcion" json:"costo_inscripcion"`
	CostoMensualidad     float64      `db:"costo_mensualidad" json:"costo_mensualidad"`
	NumeroCuotas         int          `db:"numero_cuotas" json:"numero_cuotas"`
	CuposMaximos         *int         `db:"cupos_maximos" json:"cupos_maximos,omitempty"`
	CuposInscritos       int          `db:"cupos_inscritos" json:"cupos_inscritos"`
	Estado               ProgramState `db:"estado" json:"estado"`
	FechaInicio          *time.Time   `db:"fecha_inicio" json:"fecha_inicio,omitempty"`
	FechaFin             *time.Time   `db:"fecha_fin" json:"fecha_fin,omitempty"`
	CoordinadorID        *string      `db:"docente_coordinador_id" json:"docente_coordinador_id,omitempty"`
	PromocionDescuento   float64      `db:"promocion_descuento" json:"promocion_descuento"`
	PromocionDescripcion string       `db:"promocion_descripcion" json:"promocion_descripcion"`
	PromocionValidoHasta *time.Time   `db:"promocion_valido_hasta" json:"promocion_valido_hasta,omitempty"`
	CreatedAt            time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at" json:"updated_at"`
}

// ProgramDetail enriches Program with coordinator context.
type ProgramDetail struct {
	Program
	CoordinadorNombre *string `db:"coordinador_nombre" json:"coordinador_nombre,omitempty"`
}

// ProgramFilter captures filtering criteria for listing programs.
type ProgramFilter struct {
	Search    string
	Estado    ProgramState
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ProgramAvailability is the result of a slot availability check.
type ProgramAvailability struct {
	Disponible       bool         `json:"disponible"`
	CuposDisponibles int          `json:"cupos_disponibles"`
	Estado           ProgramState `json:"estado_programa"`
	Mensaje          string       `json:"mensaje"`
}

// ProgramStats aggregates counters per lifecycle state plus occupancy.
type ProgramStats struct {
	Total          int     `db:"total" json:"total"`
	Planificados   int     `db:"planificados" json:"planificados"`
	EnInscripcion  int     `db:"en_inscripcion" json:"en_inscripcion"`
	EnCurso        int     `db:"en_curso" json:"en_curso"`
	Concluidos     int     `db:"concluidos" json:"concluidos"`
	Cancelados     int     `db:"cancelados" json:"cancelados"`
	CuposOfertados int     `db:"cupos_ofertados" json:"cupos_ofertados"`
	CuposOcupados  int     `db:"cupos_ocupados" json:"cupos_ocupados"`
	Ocupacion      float64 `db:"ocupacion" json:"ocupacion"`
}
