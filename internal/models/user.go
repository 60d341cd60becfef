package models

import (
	"time"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	// RoleAdmin is the operator role: it reviews any course regardless of ownership
	RoleAdmin UserRole = "admin"
)

// IsOperator reports whether the role carries cross-course authority
func (r UserRole) IsOperator() bool {
	return r == RoleAdmin
}

// User mirrors the identity held in Casdoor; this service never persists it
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL     *string `json:"avatar_url"`
	EmailVerified bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
