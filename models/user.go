package models

import (
	"strings"
	"time"
)

const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
	RoleStaff   = "Staff"
)

// MinPasswordLength is enforced on every password set through the API.
const MinPasswordLength = 8

// User is a back-office account.
type User struct {
	ID           int        `json:"id"`
	Username     string     `json:"username"`
	Email        *string    `json:"email"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// UserInput is used for creating/updating users. Password is required on
// create and ignored on update.
type UserInput struct {
	Username string  `json:"username"`
	Email    *string `json:"email"`
	FullName string  `json:"full_name"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (u *UserInput) Validate(creating bool) string {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return "username is required"
	}
	if strings.ContainsAny(u.Username, " \t") {
		return "username must not contain whitespace"
	}
	if u.FullName == "" {
		u.FullName = u.Username
	}
	if !ValidRole(u.Role) {
		return "role must be one of: Admin, Manager, Staff"
	}
	if creating && len(u.Password) < MinPasswordLength {
		return "password must be at least 8 characters"
	}
	if u.IsActive == nil {
		active := true
		u.IsActive = &active
	}
	return ""
}

// LoginInput carries credentials for POST /auth/login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (l *LoginInput) Validate() string {
	if l.Username == "" || l.Password == "" {
		return "username and password are required"
	}
	return ""
}

// PasswordInput is used for password changes and admin resets.
type PasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (p *PasswordInput) Validate(requireCurrent bool) string {
	if requireCurrent && p.CurrentPassword == "" {
		return "current_password is required"
	}
	if len(p.NewPassword) < MinPasswordLength {
		return "new_password must be at least 8 characters"
	}
	return ""
}
