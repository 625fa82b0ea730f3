package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{120050})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"amount":1200.50}` {
		t.Errorf("marshal = %s", b)
	}

	tests := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{`1200`, 120000, false},
		{`1200.5`, 120050, false},
		{`"99.99"`, 9999, false},
		{`0`, 0, false},
		{`null`, 0, false},
		{`"-5.00"`, -500, false},
		{`10.001`, 0, true},
		{`"ten"`, 0, true},
	}
	for _, tt := range tests {
		var m Money
		err := json.Unmarshal([]byte(tt.in), &m)
		if (err != nil) != tt.wantErr {
			t.Errorf("unmarshal %s: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && m != tt.want {
			t.Errorf("unmarshal %s = %d, want %d", tt.in, m, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	if d, err := ParseDate(nil); d != nil || err != nil {
		t.Errorf("ParseDate(nil) = %v, %v", d, err)
	}
	empty := ""
	if d, err := ParseDate(&empty); d != nil || err != nil {
		t.Errorf("ParseDate(\"\") = %v, %v", d, err)
	}
	s := "2026-02-28"
	d, err := ParseDate(&s)
	if err != nil || !d.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate(%q) = %v, %v", s, d, err)
	}
	bad := "2026-02-30"
	if _, err := ParseDate(&bad); err == nil {
		t.Errorf("ParseDate(%q) accepted", bad)
	}
}

func TestInvoiceInputValidate(t *testing.T) {
	issue, due := "2026-03-10", "2026-03-01"
	neg := Money(-1)
	itemID := 3
	tests := []struct {
		name string
		in   InvoiceInput
		want string
	}{
		{"ok", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, RentAmount: 100}, ""},
		{"no tenant", InvoiceInput{BillingYear: 2026, BillingMonth: 3}, "tenant_id is required"},
		{"bad month", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 0}, "billing_month must be between 1 and 12"},
		{"negative discount", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, Discount: -1}, "amounts must be non-negative"},
		{"due before issue", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, IssueDate: &issue, DueDate: &due}, "due_date must not be before issue_date"},
		{"zero quantity", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, Items: []InvoiceItemInput{{ItemID: &itemID}}}, "items: quantity must be positive"},
		{"free line without price", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, Items: []InvoiceItemInput{{Description: "Water", Quantity: 1}}}, "items: unit_price is required without item_id"},
		{"negative price", InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, Items: []InvoiceItemInput{{ItemID: &itemID, Quantity: 1, UnitPrice: &neg}}}, "items: unit_price must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Validate(); got != tt.want {
				t.Errorf("Validate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaymentInputValidate(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	p := PaymentInput{InvoiceID: 1, Amount: 500}
	if msg := p.Validate(true, now); msg != "" {
		t.Fatalf("Validate() = %q", msg)
	}
	if p.Method != "Cash" {
		t.Errorf("method defaulted to %q, want Cash", p.Method)
	}
	if !p.Date.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date defaulted to %v", p.Date)
	}

	tests := []struct {
		name string
		in   PaymentInput
		want string
	}{
		{"zero amount", PaymentInput{InvoiceID: 1}, "amount must be positive"},
		{"no invoice", PaymentInput{Amount: 1}, "invoice_id is required"},
		{"bad method", PaymentInput{InvoiceID: 1, Amount: 1, Method: "Cheque"}, "method must be one of: Cash, BankTransfer, Card, MobileMoney, Other"},
	}
	for _, tt := range tests {
		if got := tt.in.Validate(true, now); got != tt.want {
			t.Errorf("%s: Validate() = %q, want %q", tt.name, got, tt.want)
		}
	}

	upd := PaymentInput{Amount: 1}
	if msg := upd.Validate(false, now); msg != "" {
		t.Errorf("update without invoice_id rejected: %q", msg)
	}
}

func TestRoomInputDefaults(t *testing.T) {
	r := RoomInput{RoomNumber: "  101 ", MonthlyRent: 120000}
	if msg := r.Validate(); msg != "" {
		t.Fatalf("Validate() = %q", msg)
	}
	if r.RoomNumber != "101" || r.Capacity != 1 || r.Status != RoomAvailable {
		t.Errorf("defaults not applied: %+v", r)
	}
	r = RoomInput{RoomNumber: "102", Status: "Closed"}
	if msg := r.Validate(); msg == "" {
		t.Error("unknown status accepted")
	}
}

func TestUserInputValidate(t *testing.T) {
	u := UserInput{Username: " sam ", Password: "long-enough", Role: RoleStaff}
	if msg := u.Validate(true); msg != "" {
		t.Fatalf("Validate() = %q", msg)
	}
	if u.Username != "sam" || u.FullName != "sam" || u.IsActive == nil || !*u.IsActive {
		t.Errorf("defaults not applied: %+v", u)
	}

	short := UserInput{Username: "sam", Password: "short", Role: RoleStaff}
	if msg := short.Validate(true); msg == "" {
		t.Error("short password accepted on create")
	}
	if msg := short.Validate(false); msg != "" {
		t.Errorf("password checked on update: %q", msg)
	}
	if msg := (&UserInput{Username: "a b", Role: RoleAdmin}).Validate(false); msg == "" {
		t.Error("username with whitespace accepted")
	}
}

func TestSettingAndLanguageValidate(t *testing.T) {
	s := SettingInput{Key: "billing.due_days", Value: "7"}
	if msg := s.Validate(); msg != "" || s.Category != "general" {
		t.Errorf("Validate() = %q, category %q", msg, s.Category)
	}
	if msg := (&SettingInput{Key: "Billing Due"}).Validate(); msg == "" {
		t.Error("malformed key accepted")
	}

	l := LanguageInput{Code: "pt-BR", Name: "Português"}
	if msg := l.Validate(); msg != "" || l.IsActive == nil || !*l.IsActive {
		t.Errorf("Validate() = %q, active %v", msg, l.IsActive)
	}
	inactive := false
	if msg := (&LanguageInput{Code: "fr", Name: "Français", IsDefault: true, IsActive: &inactive}).Validate(); msg == "" {
		t.Error("inactive default accepted")
	}
}

func TestGenerateMonthlyInputDefaults(t *testing.T) {
	g := GenerateMonthlyInput{}
	if msg := g.Validate(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)); msg != "" {
		t.Fatal(msg)
	}
	if g.Year != 2026 || g.Month != 7 {
		t.Errorf("defaulted to %d-%d", g.Year, g.Month)
	}
}
