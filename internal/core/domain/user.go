package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies an authenticated principal's role.
type Role string

const (
	RoleGuardian Role = "GUARDIAN"
	RoleVendor   Role = "VENDOR"
	RoleAdmin    Role = "ADMIN"
	RoleStudent  Role = "STUDENT" // mobile session for a Student, not a User row
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuardian, RoleVendor, RoleAdmin, RoleStudent:
		return true
	}
	return false
}

// User is an authenticating account: guardian, vendor, or admin.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Vendor is the store profile attached to a VENDOR user. Vendors may not
// charge students until an admin flips Approved.
type Vendor struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	StoreName string    `json:"store_name"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}
