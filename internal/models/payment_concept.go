package models

import "time"

// Well-known payment concept codes referenced by the payment workflow.
const (
	ConceptCodeMatricula    = "MATRICULA"
	ConceptCodeInscripcion  = "INSCRIPCION"
	ConceptCodeMensualidad  = "MENSUALIDAD"
	ConceptCodeDescuento    = "DESCUENTO"
)

// PaymentConcept is a catalog entry referenced by transaction details.
type PaymentConcept struct {
	ID          string    `db:"id" json:"id"`
	Codigo      string    `db:"codigo" json:"codigo"`
	Nombre      string    `db:"nombre" json:"nombre"`
	Descripcion string    `db:"descripcion" json:"descripcion"`
	Activo      bool      `db:"activo" json:"activo"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
