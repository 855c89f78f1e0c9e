package staff

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles. Admins additionally pass every role guard.
const (
	RoleNurse     = "nurse"
	RolePhysician = "physician"
	RoleAdmin     = "admin"
)

// Staff maps to the staff table. The password hash never leaves the API.
type Staff struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
