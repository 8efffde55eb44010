package model

import "time"

// Roles carried in the access token's "role" claim.
const (
	RoleEmployee  = "EMPLOYEE"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// User mirrors the users table. Only staff accounts exist in this service.
type User struct {
	ID           uint64
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated caller of a workflow operation. It is passed
// explicitly into every service call; nothing reads identity from ambient
// request state.
type Actor struct {
	UserID uint64
	Role   string
}

// System is the actor used by background jobs and tests.
var System = Actor{Role: "SYSTEM"}
