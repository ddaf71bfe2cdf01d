package models

import "time"

// EnrollmentState is the academic state of an enrollment.
type EnrollmentState string

// Enrollment academic states.
const (
	EnrollmentStatePreinscrito EnrollmentState = "PREINSCRITO"
	EnrollmentStateInscrito    EnrollmentState = "INSCRITO"
	EnrollmentStateEnCurso     EnrollmentState = "EN_CURSO"
	EnrollmentStateConcluido   EnrollmentState = "CONCLUIDO"
	EnrollmentStateRetirado    EnrollmentState = "RETIRADO"
)

// UnlimitedSlots is returned as the remaining-slot count when a program has
// no cupos_maximos configured.
const UnlimitedSlots = -1

// Enrollment captures a student's registration to a program. The pair
// (estudiante, programa) is unique. ValorFinal is the agreed final price for
// the whole program; when nil the program's published cost applies.
type Enrollment struct {
	ID               string          `db:"id" json:"id"`
	EstudianteID     string          `db:"estudiante_id" json:"estudiante_id"`
	ProgramaID       string          `db:"programa_id" json:"programa_id"`
	FechaInscripcion time.Time       `db:"fecha_inscripcion" json:"fecha_inscripcion"`
	EstadoAcademico  EnrollmentState `db:"estado_academico" json:"estado_academico"`
	ValorFinal       *float64        `db:"valor_final" json:"valor_final,omitempty"`
	Observaciones    string          `db:"observaciones" json:"observaciones"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and program context.
type EnrollmentDetail struct {
	Enrollment
	EstudianteNombre string  `db:"estudiante_nombre" json:"estudiante_nombre"`
	EstudianteCI     string  `db:"estudiante_ci" json:"estudiante_ci"`
	ProgramaCodigo   string  `db:"programa_codigo" json:"programa_codigo"`
	ProgramaNombre   string  `db:"programa_nombre" json:"programa_nombre"`
	CostoTotal       float64 `db:"costo_total" json:"costo_total"`
	CostoMatricula   float64 `db:"costo_matricula" json:"costo_matricula"`
	CostoInscripcion float64 `db:"costo_inscripcion" json:"costo_inscripcion"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	EstudianteID string
	ProgramaID   string
	Estado       EnrollmentState
	Desde        *time.Time
	Hasta        *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// EnrollmentResult is returned by the slot-reserving enroll operation.
type EnrollmentResult struct {
	Enrollment      Enrollment `json:"inscripcion"`
	CuposRestantes  int        `json:"cupos_restantes"`
}
