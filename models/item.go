package models

import (
	"strings"
	"time"
)

// Item is a chargeable catalog entry (utilities, services) that can be billed
// as an invoice line.
type Item struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	UnitPrice   Money     `json:"unit_price"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemInput is used for creating/updating items.
type ItemInput struct {
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	UnitPrice   Money   `json:"unit_price"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (i *ItemInput) Validate() string {
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		return "name is required"
	}
	if i.UnitPrice < 0 {
		return "unit_price must be non-negative"
	}
	if i.Unit == "" {
		i.Unit = "unit"
	}
	if i.IsActive == nil {
		active := true
		i.IsActive = &active
	}
	return ""
}
