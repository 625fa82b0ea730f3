package models

import (
	"strings"
	"time"
)

const (
	RoomAvailable   = "Available"
	RoomOccupied    = "Occupied"
	RoomMaintenance = "Maintenance"
)

// Room represents a rentable room.
type Room struct {
	ID          int       `json:"id"`
	RoomNumber  string    `json:"room_number"`
	Floor       int       `json:"floor"`
	RoomType    string    `json:"room_type"`
	MonthlyRent Money     `json:"monthly_rent"`
	Capacity    int       `json:"capacity"`
	Status      string    `json:"status"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// Computed
	ActiveTenants int `json:"active_tenants"`
}

// RoomInput is used for creating/updating rooms.
type RoomInput struct {
	RoomNumber  string  `json:"room_number"`
	Floor       int     `json:"floor"`
	RoomType    string  `json:"room_type"`
	MonthlyRent Money   `json:"monthly_rent"`
	Capacity    int     `json:"capacity"`
	Status      string  `json:"status"`
	Description *string `json:"description"`
}

func (r *RoomInput) Validate() string {
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	if r.RoomNumber == "" {
		return "room_number is required"
	}
	if r.MonthlyRent < 0 {
		return "monthly_rent must be non-negative"
	}
	if r.Capacity == 0 {
		r.Capacity = 1
	}
	if r.Capacity < 0 {
		return "capacity must be positive"
	}
	switch r.Status {
	case "":
		r.Status = RoomAvailable
	case RoomAvailable, RoomOccupied, RoomMaintenance:
	default:
		return "status must be one of: Available, Occupied, Maintenance"
	}
	return ""
}
