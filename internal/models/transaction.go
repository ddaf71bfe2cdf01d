package models

import "time"

// TransactionState is the lifecycle state of a payment transaction.
type TransactionState string

// Transaction states. Confirming posts a cash movement; annulled
// transactions are excluded from every financial aggregate.
const (
	TransactionStateRegistrado TransactionState = "REGISTRADO"
	TransactionStateConfirmado TransactionState = "CONFIRMADO"
	TransactionStateAnulado    TransactionState = "ANULADO"
)

// PaymentMethod is the closed set of accepted payment channels.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentMethodEfectivo      PaymentMethod = "EFECTIVO"
	PaymentMethodTransferencia PaymentMethod = "TRANSFERENCIA"
	PaymentMethodTarjeta       PaymentMethod = "TARJETA"
	PaymentMethodDeposito      PaymentMethod = "DEPOSITO"
	PaymentMethodQR            PaymentMethod = "QR"
)

// ValidPaymentMethod reports whether the value belongs to the closed set.
func ValidPaymentMethod(value string) bool {
	switch PaymentMethod(value) {
	case PaymentMethodEfectivo, PaymentMethodTransferencia,
		PaymentMethodTarjeta, PaymentMethodDeposito, PaymentMethodQR:
		return true
	}
	return false
}

// Transaction is a single payment event. Invariant:
// monto_total = monto_final + descuento_total, all non-negative.
type Transaction struct {
	ID                 string           `db:"id" json:"id"`
	NumeroTransaccion  string           `db:"numero_transaccion" json:"numero_transaccion"`
	EstudianteID       string           `db:"estudiante_id" json:"estudiante_id"`
	ProgramaID         *string          `db:"programa_id" json:"programa_id,omitempty"`
	InscripcionID      *string          `db:"inscripcion_id" json:"inscripcion_id,omitempty"`
	FechaPago          time.Time        `db:"fecha_pago" json:"fecha_pago"`
	MontoTotal         float64          `db:"monto_total" json:"monto_total"`
	DescuentoTotal     float64          `db:"descuento_total" json:"descuento_total"`
	MontoFinal         float64          `db:"monto_final" json:"monto_final"`
	FormaPago          PaymentMethod    `db:"forma_pago" json:"forma_pago"`
	Estado             TransactionState `db:"estado" json:"estado"`
	NumeroComprobante  *string          `db:"numero_comprobante" json:"numero_comprobante,omitempty"`
	BancoOrigen        *string          `db:"banco_origen" json:"banco_origen,omitempty"`
	CuentaOrigen       *string          `db:"cuenta_origen" json:"cuenta_origen,omitempty"`
	Observaciones      string           `db:"observaciones" json:"observaciones"`
	MotivoAnulacion    *string          `db:"motivo_anulacion" json:"motivo_anulacion,omitempty"`
	RegistradoPor      *string          `db:"registrado_por" json:"registrado_por,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// TransactionDetail is one concept line of a transaction. Invariant:
// subtotal = cantidad * precio_unitario.
type TransactionDetail struct {
	ID             string  `db:"id" json:"id"`
	TransaccionID  string  `db:"transaccion_id" json:"transaccion_id"`
	ConceptoPagoID string  `db:"concepto_pago_id" json:"concepto_pago_id"`
	Descripcion    string  `db:"descripcion" json:"descripcion"`
	Cantidad       int     `db:"cantidad" json:"cantidad"`
	PrecioUnitario float64 `db:"precio_unitario" json:"precio_unitario"`
	Subtotal       float64 `db:"subtotal" json:"subtotal"`
	Orden          int     `db:"orden" json:"orden"`
}

// TransactionWithDetails bundles a transaction with its concept lines and
// the student's display name.
type TransactionWithDetails struct {
	Transaction
	EstudianteNombre string              `db:"estudiante_nombre" json:"estudiante_nombre"`
	ProgramaNombre   *string             `db:"programa_nombre" json:"programa_nombre,omitempty"`
	Detalles         []TransactionDetail `json:"detalles"`
}

// TransactionFilter captures search parameters for listing transactions.
type TransactionFilter struct {
	EstudianteID string
	ProgramaID   string
	Estado       TransactionState
	FormaPago    PaymentMethod
	Desde        *time.Time
	Hasta        *time.Time
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// TransactionStats aggregates yearly totals per state.
type TransactionStats struct {
	Anio             int     `db:"anio" json:"anio"`
	Total            int     `db:"total" json:"total"`
	Confirmadas      int     `db:"confirmadas" json:"confirmadas"`
	Registradas      int     `db:"registradas" json:"registradas"`
	Anuladas         int     `db:"anuladas" json:"anuladas"`
	MontoConfirmado  float64 `db:"monto_confirmado" json:"monto_confirmado"`
	DescuentoOtorgado float64 `db:"descuento_otorgado" json:"descuento_otorgado"`
}
