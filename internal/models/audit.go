package models

import "time"

// Audited actions.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionCreate         = "CREATE"
	AuditActionUpdate         = "UPDATE"
	AuditActionConfirm        = "CONFIRM"
	AuditActionAnnul          = "ANNUL"
	AuditActionDeactivate     = "DEACTIVATE"
)

// AuditLog records who did what to which entity.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Accion    string    `db:"accion" json:"accion"`
	Entidad   string    `db:"entidad" json:"entidad"`
	EntidadID string    `db:"entidad_id" json:"entidad_id"`
	Detalle   string    `db:"detalle" json:"detalle"`
	IP        string    `db:"ip" json:"ip"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
