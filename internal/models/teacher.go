package models

import "time"

// GradoAcademico is the academic grade held by a teacher.
type GradoAcademico string

// Closed set of academic grades.
const (
	GradoLicenciatura GradoAcademico = "LIC."
	GradoIngenieria   GradoAcademico = "ING."
	GradoMasterSc     GradoAcademico = "M.Sc."
	GradoMagister     GradoAcademico = "Mg."
	GradoMBA          GradoAcademico = "MBA"
	GradoDoctoradoPhD GradoAcademico = "Ph.D."
	GradoDoctor       GradoAcademico = "Dr."
)

// ValidGradoAcademico reports whether the value belongs to the closed set.
func ValidGradoAcademico(value string) bool {
	switch GradoAcademico(value) {
	case GradoLicenciatura, GradoIngenieria, GradoMasterSc, GradoMagister,
		GradoMBA, GradoDoctoradoPhD, GradoDoctor:
		return true
	}
	return false
}

// Teacher represents a docente who may coordinate academic programs.
type Teacher struct {
	ID                 string         `db:"id" json:"id"`
	CINumero           string         `db:"ci_numero" json:"ci_numero"`
	CIExpedicion       CIExpedicion   `db:"ci_expedicion" json:"ci_expedicion"`
	Nombres            string         `db:"nombres" json:"nombres"`
	ApellidoPaterno    string         `db:"apellido_paterno" json:"apellido_paterno"`
	ApellidoMaterno    string         `db:"apellido_materno" json:"apellido_materno"`
	FechaNacimiento    *time.Time     `db:"fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	GradoAcademico     GradoAcademico `db:"grado_academico" json:"grado_academico"`
	TituloProfesional  string         `db:"titulo_profesional" json:"titulo_profesional"`
	Especialidad       string         `db:"especialidad" json:"especialidad"`
	TarifaHora         float64        `db:"tarifa_hora" json:"tarifa_hora"`
	Telefono           string         `db:"telefono" json:"telefono"`
	Email              string         `db:"email" json:"email"`
	Activo             bool           `db:"activo" json:"activo"`
	FechaRegistro      time.Time      `db:"fecha_registro" json:"fecha_registro"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	Search    string
	Activo    *bool
	Grado     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
