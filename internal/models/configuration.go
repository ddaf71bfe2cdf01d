package models

import "time"

// Configuration keys consumed by business rules.
const (
	ConfigKeyDelinquencyDays = "dias_tolerancia_morosidad"
	ConfigKeyReceiptFooter   = "pie_comprobante"
	ConfigKeyCurrencySymbol  = "simbolo_moneda"
)

// Configuration is a typed key/value setting. Rows with Editable=false are
// system-owned and reject updates through the API.
type Configuration struct {
	ID          string    `db:"id" json:"id"`
	Clave       string    `db:"clave" json:"clave"`
	Valor       string    `db:"valor" json:"valor"`
	TipoDato    string    `db:"tipo_dato" json:"tipo_dato"`
	Descripcion string    `db:"descripcion" json:"descripcion"`
	Editable    bool      `db:"editable" json:"editable"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
