package entities

import (
	"time"
)

// UserRole controls what a user may change
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleTech  UserRole = "tech"
)

// User is a person allowed to edit the shared database
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  string
	Role         UserRole
	CreatedAt    time.Time
}
