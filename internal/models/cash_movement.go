package models

import "time"

// CashMovementType distinguishes ledger inflows from outflows.
type CashMovementType string

// Cash movement types.
const (
	CashMovementIngreso CashMovementType = "INGRESO"
	CashMovementEgreso  CashMovementType = "EGRESO"
)

// CashMovement is one cash-ledger entry. Entries tied to a transaction are
// written by the transaction confirm/annul paths; manual entries carry a nil
// TransaccionID.
type CashMovement struct {
	ID            string           `db:"id" json:"id"`
	Tipo          CashMovementType `db:"tipo" json:"tipo"`
	Monto         float64          `db:"monto" json:"monto"`
	FormaPago     PaymentMethod    `db:"forma_pago" json:"forma_pago"`
	Concepto      string           `db:"concepto" json:"concepto"`
	TransaccionID *string          `db:"transaccion_id" json:"transaccion_id,omitempty"`
	Fecha         time.Time        `db:"fecha" json:"fecha"`
	RegistradoPor *string          `db:"registrado_por" json:"registrado_por,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// CashMovementFilter captures search parameters for the cash ledger.
type CashMovementFilter struct {
	Tipo      CashMovementType
	FormaPago PaymentMethod
	Desde     *time.Time
	Hasta     *time.Time
	Page      int
	PageSize  int
}

// CashPeriodTotals aggregates ledger inflows and outflows over a period.
type CashPeriodTotals struct {
	Ingresos float64 `db:"ingresos" json:"ingresos"`
	Egresos  float64 `db:"egresos" json:"egresos"`
	Saldo    float64 `db:"saldo" json:"saldo"`
}
