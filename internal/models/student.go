package models

import "time"

// CIExpedicion is the issuing department of a Bolivian identity card.
type CIExpedicion string

// Closed set of CI issuing departments.
const (
	CIExpedicionBeni       CIExpedicion = "BE"
	CIExpedicionChuquisaca CIExpedicion = "CH"
	CIExpedicionCochabamba CIExpedicion = "CB"
	CIExpedicionLaPaz      CIExpedicion = "LP"
	CIExpedicionOruro      CIExpedicion = "OR"
	CIExpedicionPando      CIExpedicion = "PD"
	CIExpedicionPotosi     CIExpedicion = "PT"
	CIExpedicionSantaCruz  CIExpedicion = "SC"
	CIExpedicionTarija     CIExpedicion = "TJ"
	CIExpedicionExtranjero CIExpedicion = "EX"
)

// ValidCIExpedicion reports whether the value belongs to the closed set.
func ValidCIExpedicion(value string) bool {
	switch CIExpedicion(value) {
	case CIExpedicionBeni, CIExpedicionChuquisaca, CIExpedicionCochabamba,
		CIExpedicionLaPaz, CIExpedicionOruro, CIExpedicionPando,
		CIExpedicionPotosi, CIExpedicionSantaCruz, CIExpedicionTarija,
		CIExpedicionExtranjero:
		return true
	}
	return false
}

// Student represents a learner registered in the institution.
type Student struct {
	ID              string       `db:"id" json:"id"`
	CINumero        string       `db:"ci_numero" json:"ci_numero"`
	CIExpedicion    CIExpedicion `db:"ci_expedicion" json:"ci_expedicion"`
	Nombres         string       `db:"nombres" json:"nombres"`
	ApellidoPaterno string       `db:"apellido_paterno" json:"apellido_paterno"`
	ApellidoMaterno string       `db:"apellido_materno" json:"apellido_materno"`
	FechaNacimiento *time.Time   `db:"fecha_nacimiento" json:"fecha_nacimiento,omitempty"`
	Telefono        string       `db:"telefono" json:"telefono"`
	Email           string       `db:"email" json:"email"`
	Direccion       string       `db:"direccion" json:"direccion"`
	Profesion       string       `db:"profesion" json:"profesion"`
	Universidad     string       `db:"universidad" json:"universidad"`
	FotografiaURL   *string      `db:"fotografia_url" json:"fotografia_url,omitempty"`
	Activo          bool         `db:"activo" json:"activo"`
	FechaRegistro   time.Time    `db:"fecha_registro" json:"fecha_registro"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CINumero  string
	Activo    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentStats aggregates registry counters for the student statistics view.
type StudentStats struct {
	Total           int `db:"total" json:"total"`
	Activos         int `db:"activos" json:"activos"`
	Inactivos       int `db:"inactivos" json:"inactivos"`
	RegistradosMes  int `db:"registrados_mes" json:"registrados_mes"`
}

// StudentProgramSummary lists one program a student is enrolled in, with the
// financial standing for that enrollment.
type StudentProgramSummary struct {
	InscripcionID   string           `db:"inscripcion_id" json:"inscripcion_id"`
	ProgramaID      string           `db:"programa_id" json:"programa_id"`
	ProgramaCodigo  string           `db:"programa_codigo" json:"programa_codigo"`
	ProgramaNombre  string           `db:"programa_nombre" json:"programa_nombre"`
	EstadoAcademico EnrollmentState  `db:"estado_academico" json:"estado_academico"`
	CostoTotal      float64          `db:"costo_total" json:"costo_total"`
	TotalPagado     float64          `db:"total_pagado" json:"total_pagado"`
	SaldoPendiente  float64          `db:"saldo_pendiente" json:"saldo_pendiente"`
	EstadoFin       FinancialStanding `db:"estado_financiero" json:"estado_financiero"`
}
