package models

import (
	"time"
)

const (
	InvoiceIssued        = "Issued"
	InvoicePartiallyPaid = "PartiallyPaid"
	InvoicePaid          = "Paid"
	InvoiceOverdue       = "Overdue"
	InvoiceUnpaid        = "Unpaid"
	InvoiceCancelled     = "Cancelled"
)

// Invoice represents one tenant's monthly rent bill plus adjustments.
type Invoice struct {
	ID                int        `json:"id"`
	InvoiceNumber     string     `json:"invoice_number"`
	TenantID          int        `json:"tenant_id"`
	RoomID            *int       `json:"room_id"`
	BillingYear       int        `json:"billing_year"`
	BillingMonth      int        `json:"billing_month"`
	RentAmount        Money      `json:"rent_amount"`
	AdditionalCharges Money      `json:"additional_charges"`
	Discount          Money      `json:"discount"`
	TotalAmount       Money      `json:"total_amount"`
	PaidAmount        Money      `json:"paid_amount"`
	RemainingBalance  Money      `json:"remaining_balance"`
	Status            string     `json:"status"`
	IssueDate         time.Time  `json:"issue_date"`
	DueDate           time.Time  `json:"due_date"`
	PaidDate          *time.Time `json:"paid_date"`
	Generated         bool       `json:"generated"`
	Notes             *string    `json:"notes"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	// Computed fields
	TenantName *string       `json:"tenant_name,omitempty"`
	RoomNumber *string       `json:"room_number,omitempty"`
	Items      []InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem is a billed line on an invoice. Line amounts are folded into
// the invoice's additional charges.
type InvoiceItem struct {
	ID          int    `json:"id"`
	InvoiceID   int    `json:"invoice_id"`
	ItemID      *int   `json:"item_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	Amount      Money  `json:"amount"`
}

// InvoiceItemInput describes a line. UnitPrice and Description default to the
// catalog item's values when ItemID is set.
type InvoiceItemInput struct {
	ItemID      *int   `json:"item_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   *Money `json:"unit_price"`
}

// InvoiceInput is used for creating/updating invoices.
type InvoiceInput struct {
	TenantID          int                `json:"tenant_id"`
	RoomID            *int               `json:"room_id"`
	BillingYear       int                `json:"billing_year"`
	BillingMonth      int                `json:"billing_month"`
	RentAmount        Money              `json:"rent_amount"`
	AdditionalCharges Money              `json:"additional_charges"`
	Discount          Money              `json:"discount"`
	IssueDate         *string            `json:"issue_date"`
	DueDate           *string            `json:"due_date"`
	Notes             *string            `json:"notes"`
	Items             []InvoiceItemInput `json:"items"`

	Issue *time.Time `json:"-"`
	Due   *time.Time `json:"-"`
}

func (i *InvoiceInput) Validate() string {
	if i.TenantID <= 0 {
		return "tenant_id is required"
	}
	if i.BillingMonth < 1 || i.BillingMonth > 12 {
		return "billing_month must be between 1 and 12"
	}
	if i.BillingYear < 2000 || i.BillingYear > 9999 {
		return "billing_year is out of range"
	}
	if i.RentAmount < 0 || i.AdditionalCharges < 0 || i.Discount < 0 {
		return "amounts must be non-negative"
	}
	issue, err := ParseDate(i.IssueDate)
	if err != nil {
		return "issue_date: " + err.Error()
	}
	due, err := ParseDate(i.DueDate)
	if err != nil {
		return "due_date: " + err.Error()
	}
	if issue != nil && due != nil && due.Before(*issue) {
		return "due_date must not be before issue_date"
	}
	i.Issue, i.Due = issue, due
	for _, it := range i.Items {
		if it.Quantity <= 0 {
			return "items: quantity must be positive"
		}
		if it.ItemID == nil && it.Description == "" {
			return "items: description is required without item_id"
		}
		if it.ItemID == nil && it.UnitPrice == nil {
			return "items: unit_price is required without item_id"
		}
		if it.UnitPrice != nil && *it.UnitPrice < 0 {
			return "items: unit_price must be non-negative"
		}
	}
	return ""
}

// GenerateMonthlyInput selects the billing period for bulk generation.
type GenerateMonthlyInput struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

func (g *GenerateMonthlyInput) Validate(now time.Time) string {
	if g.Year == 0 && g.Month == 0 {
		g.Year, g.Month = now.Year(), int(now.Month())
	}
	if g.Month < 1 || g.Month > 12 {
		return "month must be between 1 and 12"
	}
	if g.Year < 2000 || g.Year > 9999 {
		return "year is out of range"
	}
	return ""
}
