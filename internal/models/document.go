package models

import "time"

// Document is the metadata row for a supporting file (receipt scan,
// transfer voucher) attached to a transaction. The bytes live on disk under
// pkg/storage; only metadata is persisted here.
type Document struct {
	ID             string    `db:"id" json:"id"`
	TransaccionID  string    `db:"transaccion_id" json:"transaccion_id"`
	TipoDocumento  string    `db:"tipo_documento" json:"tipo_documento"`
	NombreOriginal string    `db:"nombre_original" json:"nombre_original"`
	NombreArchivo  string    `db:"nombre_archivo" json:"nombre_archivo"`
	Extension      string    `db:"extension" json:"extension"`
	RutaArchivo    string    `db:"ruta_archivo" json:"ruta_archivo"`
	TamanoBytes    int64     `db:"tamano_bytes" json:"tamano_bytes"`
	Observaciones  string    `db:"observaciones" json:"observaciones"`
	SubidoPor      *string   `db:"subido_por" json:"subido_por,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MaxDocumentSizeBytes is the upper bound accepted for uploaded files.
const MaxDocumentSizeBytes = 10 * 1024 * 1024
