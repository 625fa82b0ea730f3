package models

import "time"

var PaymentMethods = []string{"Cash", "BankTransfer", "Card", "MobileMoney", "Other"}

// Payment is a recorded transaction reducing an invoice's outstanding balance.
// Verified payments are immutable.
type Payment struct {
	ID          int        `json:"id"`
	InvoiceID   int        `json:"invoice_id"`
	Amount      Money      `json:"amount"`
	Method      string     `json:"method"`
	Reference   *string    `json:"reference"`
	PaymentDate time.Time  `json:"payment_date"`
	IsVerified  bool       `json:"is_verified"`
	VerifiedAt  *time.Time `json:"verified_at"`
	VerifiedBy  *int       `json:"verified_by"`
	Notes       *string    `json:"notes"`
	CreatedBy   *int       `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	// Computed fields
	InvoiceNumber *string `json:"invoice_number,omitempty"`
	TenantName    *string `json:"tenant_name,omitempty"`
}

// PaymentInput is used for creating/updating payments. InvoiceID is ignored on update.
type PaymentInput struct {
	InvoiceID   int     `json:"invoice_id"`
	Amount      Money   `json:"amount"`
	Method      string  `json:"method"`
	Reference   *string `json:"reference"`
	PaymentDate *string `json:"payment_date"`
	Notes       *string `json:"notes"`

	Date time.Time `json:"-"`
}

// Validate checks the input. requireInvoice is false for updates.
func (p *PaymentInput) Validate(requireInvoice bool, now time.Time) string {
	if requireInvoice && p.InvoiceID <= 0 {
		return "invoice_id is required"
	}
	if p.Amount <= 0 {
		return "amount must be positive"
	}
	if p.Method == "" {
		p.Method = "Cash"
	}
	valid := false
	for _, m := range PaymentMethods {
		if p.Method == m {
			valid = true
			break
		}
	}
	if !valid {
		return "method must be one of: Cash, BankTransfer, Card, MobileMoney, Other"
	}
	d, err := ParseDate(p.PaymentDate)
	if err != nil {
		return "payment_date: " + err.Error()
	}
	if d == nil {
		p.Date = DateOnly(now)
	} else {
		p.Date = *d
	}
	return ""
}

// VerifyInput toggles a payment's verified flag.
type VerifyInput struct {
	IsVerified *bool `json:"is_verified"`
}

func (v *VerifyInput) Validate() string {
	if v.IsVerified == nil {
		t := true
		v.IsVerified = &t
	}
	return ""
}
