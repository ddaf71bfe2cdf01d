package models

import "time"

// UserRole is the closed set of application roles.
type UserRole string

// Application roles, ordered from widest to narrowest privilege.
const (
	RoleAdministrador UserRole = "ADMINISTRADOR"
	RoleCoordinador   UserRole = "COORDINADOR"
	RoleCajero        UserRole = "CAJERO"
	RoleConsulta      UserRole = "CONSULTA"
)

// ValidUserRole reports whether the value belongs to the closed set.
func ValidUserRole(value string) bool {
	switch UserRole(value) {
	case RoleAdministrador, RoleCoordinador, RoleCajero, RoleConsulta:
		return true
	}
	return false
}

// User is an application account. PasswordHash never leaves the server.
type User struct {
	ID             string     `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	NombreCompleto string     `db:"nombre_completo" json:"nombre_completo"`
	Email          string     `db:"email" json:"email"`
	Rol            UserRole   `db:"rol" json:"rol"`
	Activo         bool       `db:"activo" json:"activo"`
	UltimoAcceso   *time.Time `db:"ultimo_acceso" json:"ultimo_acceso,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures search parameters for listing users.
type UserFilter struct {
	Search   string
	Rol      UserRole
	Activo   *bool
	Page     int
	PageSize int
}

// RefreshToken is a persisted refresh credential. Revoking or rotating a
// token marks it revoked rather than deleting the row.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Pagination is the page metadata returned with every list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, pageSize, totalItems int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
