package models

import "time"

// Invoice is an optional fiscal document tied one-to-one to a confirmed
// transaction. Invariant: total = subtotal + iva + it.
type Invoice struct {
	ID            string    `db:"id" json:"id"`
	NumeroFactura string    `db:"numero_factura" json:"numero_factura"`
	TransaccionID string    `db:"transaccion_id" json:"transaccion_id"`
	NITCliente    string    `db:"nit_cliente" json:"nit_cliente"`
	RazonSocial   string    `db:"razon_social" json:"razon_social"`
	Subtotal      float64   `db:"subtotal" json:"subtotal"`
	IVA           float64   `db:"iva" json:"iva"`
	IT            float64   `db:"it" json:"it"`
	Total         float64   `db:"total" json:"total"`
	FechaEmision  time.Time `db:"fecha_emision" json:"fecha_emision"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// InvoiceFilter captures search parameters for listing invoices.
type InvoiceFilter struct {
	NITCliente string
	Desde      *time.Time
	Hasta      *time.Time
	Page       int
	PageSize   int
}
