package models

import "time"

// Company holds the issuing institution's identity, printed on receipts and
// invoices. The table keeps a single row.
type Company struct {
	ID           string    `db:"id" json:"id"`
	RazonSocial  string    `db:"razon_social" json:"razon_social"`
	NombreCorto  string    `db:"nombre_corto" json:"nombre_corto"`
	NIT          string    `db:"nit" json:"nit"`
	Direccion    string    `db:"direccion" json:"direccion"`
	Telefono     string    `db:"telefono" json:"telefono"`
	Email        string    `db:"email" json:"email"`
	SitioWeb     string    `db:"sitio_web" json:"sitio_web"`
	LogoURL      *string   `db:"logo_url" json:"logo_url,omitempty"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
