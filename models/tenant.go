package models

import (
	"strings"
	"time"
)

const (
	TenantActive   = "Active"
	TenantMovedOut = "MovedOut"
)

// Tenant represents a person renting a room.
type Tenant struct {
	ID          int        `json:"id"`
	FullName    string     `json:"full_name"`
	Phone       *string    `json:"phone"`
	Email       *string    `json:"email"`
	IDNumber    *string    `json:"id_number"`
	RoomID      *int       `json:"room_id"`
	MoveInDate  *time.Time `json:"move_in_date"`
	MoveOutDate *time.Time `json:"move_out_date"`
	Deposit     Money      `json:"deposit"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// Computed
	RoomNumber  *string `json:"room_number,omitempty"`
	Outstanding Money   `json:"outstanding"`
}

// TenantInput is used for creating/updating tenants.
type TenantInput struct {
	FullName   string  `json:"full_name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	IDNumber   *string `json:"id_number"`
	RoomID     *int    `json:"room_id"`
	MoveInDate *string `json:"move_in_date"`
	Deposit    Money   `json:"deposit"`
	Notes      *string `json:"notes"`

	MoveIn *time.Time `json:"-"`
}

func (t *TenantInput) Validate() string {
	t.FullName = strings.TrimSpace(t.FullName)
	if t.FullName == "" {
		return "full_name is required"
	}
	if t.Email != nil && *t.Email != "" && !strings.Contains(*t.Email, "@") {
		return "email is not valid"
	}
	if t.RoomID != nil && *t.RoomID <= 0 {
		return "room_id must be positive"
	}
	if t.Deposit < 0 {
		return "deposit must be non-negative"
	}
	d, err := ParseDate(t.MoveInDate)
	if err != nil {
		return "move_in_date: " + err.Error()
	}
	t.MoveIn = d
	return ""
}

// MoveOutInput records a tenant leaving their room.
type MoveOutInput struct {
	MoveOutDate *string `json:"move_out_date"`

	Date time.Time `json:"-"`
}

func (m *MoveOutInput) Validate(now time.Time) string {
	d, err := ParseDate(m.MoveOutDate)
	if err != nil {
		return "move_out_date: " + err.Error()
	}
	if d == nil {
		m.Date = DateOnly(now)
	} else {
		m.Date = *d
	}
	return ""
}
