package models

import "time"

// FinancialStanding classifies how much of an enrollment's cost has been
// covered by confirmed payments.
type FinancialStanding string

// Financial standings, from fully paid down to no payments at all.
const (
	StandingCompleto FinancialStanding = "COMPLETO"
	StandingParcial  FinancialStanding = "PARCIAL"
	StandingInicial  FinancialStanding = "INICIAL"
	StandingSinPagos FinancialStanding = "SIN_PAGOS"
)

// StandingFor buckets a paid fraction: >=100% COMPLETO, >=50% PARCIAL,
// >0% INICIAL, otherwise SIN_PAGOS. A zero-cost enrollment counts as paid.
func StandingFor(costo, pagado float64) FinancialStanding {
	if costo <= 0 {
		return StandingCompleto
	}
	ratio := pagado / costo
	switch {
	case ratio >= 1:
		return StandingCompleto
	case ratio >= 0.5:
		return StandingParcial
	case ratio > 0:
		return StandingInicial
	default:
		return StandingSinPagos
	}
}

// StudentBalance is one row of the per-enrollment balance report.
type StudentBalance struct {
	InscripcionID    string            `db:"inscripcion_id" json:"inscripcion_id"`
	EstudianteID     string            `db:"estudiante_id" json:"estudiante_id"`
	EstudianteNombre string            `db:"estudiante_nombre" json:"estudiante_nombre"`
	ProgramaID       string            `db:"programa_id" json:"programa_id"`
	ProgramaNombre   string            `db:"programa_nombre" json:"programa_nombre"`
	CostoTotal       float64           `db:"costo_total" json:"costo_total"`
	TotalPagado      float64           `db:"total_pagado" json:"total_pagado"`
	SaldoPendiente   float64           `db:"saldo_pendiente" json:"saldo_pendiente"`
	EstadoFinanciero FinancialStanding `db:"-" json:"estado_financiero"`
}

// DelinquentStudent is one row of the delinquency report. DiasSinPago counts
// from the last confirmed payment, or from the program start when the
// student never paid.
type DelinquentStudent struct {
	InscripcionID    string     `db:"inscripcion_id" json:"inscripcion_id"`
	EstudianteID     string     `db:"estudiante_id" json:"estudiante_id"`
	EstudianteNombre string     `db:"estudiante_nombre" json:"estudiante_nombre"`
	Telefono         string     `db:"telefono" json:"telefono"`
	Email            string     `db:"email" json:"email"`
	ProgramaNombre   string     `db:"programa_nombre" json:"programa_nombre"`
	SaldoPendiente   float64    `db:"saldo_pendiente" json:"saldo_pendiente"`
	UltimoPago       *time.Time `db:"ultimo_pago" json:"ultimo_pago,omitempty"`
	DiasSinPago      int        `db:"dias_sin_pago" json:"dias_sin_pago"`
}

// TopPayer is one row of the best-payers ranking.
type TopPayer struct {
	EstudianteID     string  `db:"estudiante_id" json:"estudiante_id"`
	EstudianteNombre string  `db:"estudiante_nombre" json:"estudiante_nombre"`
	TotalPagado      float64 `db:"total_pagado" json:"total_pagado"`
	Transacciones    int     `db:"transacciones" json:"transacciones"`
}

// DailyPayment is one confirmed payment of the daily listing.
type DailyPayment struct {
	TransaccionID     string    `db:"transaccion_id" json:"transaccion_id"`
	NumeroTransaccion string    `db:"numero_transaccion" json:"numero_transaccion"`
	EstudianteNombre  string    `db:"estudiante_nombre" json:"estudiante_nombre"`
	ProgramaNombre    *string   `db:"programa_nombre" json:"programa_nombre,omitempty"`
	FormaPago         string    `db:"forma_pago" json:"forma_pago"`
	MontoFinal        float64   `db:"monto_final" json:"monto_final"`
	FechaPago         time.Time `db:"fecha_pago" json:"fecha_pago"`
}

// MonthlyIncome is one bucket of the confirmed-income history.
type MonthlyIncome struct {
	Anio    int     `db:"anio" json:"anio"`
	Mes     int     `db:"mes" json:"mes"`
	Total   float64 `db:"total" json:"total"`
	Cuenta  int     `db:"cuenta" json:"cuenta"`
}

// ReportJobStatus is the lifecycle of an asynchronous report export.
type ReportJobStatus string

// Report job states.
const (
	ReportJobPending   ReportJobStatus = "PENDING"
	ReportJobRunning   ReportJobStatus = "RUNNING"
	ReportJobCompleted ReportJobStatus = "COMPLETED"
	ReportJobFailed    ReportJobStatus = "FAILED"
)

// ReportJob tracks an export request through the background queue. The
// finished artifact is served through a signed URL, never a raw path.
type ReportJob struct {
	ID           string          `db:"id" json:"id"`
	TipoReporte  string          `db:"tipo_reporte" json:"tipo_reporte"`
	Formato      string          `db:"formato" json:"formato"`
	Estado       ReportJobStatus `db:"estado" json:"estado"`
	Parametros   string          `db:"parametros" json:"parametros"`
	RutaArchivo  *string         `db:"ruta_archivo" json:"-"`
	Error        *string         `db:"error" json:"error,omitempty"`
	SolicitadoPor *string        `db:"solicitado_por" json:"solicitado_por,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}
