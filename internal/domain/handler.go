package domain

import "time"

// HandlerRole enumerates operator roles for alert delivery and resolve checks.
type HandlerRole string

const (
	HandlerRoleAgent      HandlerRole = "AGENT"
	HandlerRoleSupervisor HandlerRole = "SUPERVISOR"
	HandlerRoleAdmin      HandlerRole = "ADMIN"
)

// Handler models a roster entry. The engine reads ID, Name and Department;
// the remaining fields serve the login surface around it.
type Handler struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Department   string      `json:"department"`
	Role         HandlerRole `json:"role"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
