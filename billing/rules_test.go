package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/satheeshds/roomrent/models"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newInvoice(rent, charges, discount models.Money) *models.Invoice {
	inv := &models.Invoice{
		ID:                1,
		RentAmount:        rent,
		AdditionalCharges: charges,
		Discount:          discount,
		Status:            models.InvoiceIssued,
		IssueDate:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:           time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
	}
	Recalculate(inv)
	return inv
}

func assertBalance(t *testing.T, inv *models.Invoice, paid, remaining models.Money, status string) {
	t.Helper()
	if inv.PaidAmount != paid || inv.RemainingBalance != remaining || inv.Status != status {
		t.Fatalf("got paid=%d remaining=%d status=%s, want paid=%d remaining=%d status=%s",
			inv.PaidAmount, inv.RemainingBalance, inv.Status, paid, remaining, status)
	}
	if inv.RemainingBalance != inv.TotalAmount-inv.PaidAmount {
		t.Fatalf("remaining %d != total %d - paid %d", inv.RemainingBalance, inv.TotalAmount, inv.PaidAmount)
	}
}

func TestRecalculate(t *testing.T) {
	inv := newInvoice(100000, 25000, 5000)
	if inv.TotalAmount != 120000 {
		t.Fatalf("total = %d, want 120000", inv.TotalAmount)
	}
	if inv.RemainingBalance != 120000 {
		t.Fatalf("remaining = %d, want 120000", inv.RemainingBalance)
	}
}

func TestApplyPaymentTwoInstallments(t *testing.T) {
	inv := newInvoice(120000, 0, 0)

	if err := ApplyPayment(inv, 50000, day); err != nil {
		t.Fatal(err)
	}
	assertBalance(t, inv, 50000, 70000, models.InvoicePartiallyPaid)
	if inv.PaidDate != nil {
		t.Fatalf("paid date set on partial payment: %v", inv.PaidDate)
	}

	second := day.AddDate(0, 0, 3)
	if err := ApplyPayment(inv, 70000, second); err != nil {
		t.Fatal(err)
	}
	assertBalance(t, inv, 120000, 0, models.InvoicePaid)
	if inv.PaidDate == nil || !inv.PaidDate.Equal(second) {
		t.Fatalf("paid date = %v, want %v", inv.PaidDate, second)
	}
}

func TestApplyPaymentRejected(t *testing.T) {
	tests := []struct {
		name   string
		status string
		amount models.Money
		want   error
	}{
		{"exceeds balance", models.InvoiceIssued, 120001, ErrAmountExceedsBalance},
		{"zero", models.InvoiceIssued, 0, ErrInvalidAmount},
		{"negative", models.InvoiceIssued, -100, ErrInvalidAmount},
		{"cancelled", models.InvoiceCancelled, 100, ErrInvoiceCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvoice(120000, 0, 0)
			inv.Status = tt.status
			err := ApplyPayment(inv, tt.amount, day)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if inv.PaidAmount != 0 || inv.RemainingBalance != 120000 || inv.Status != tt.status || inv.PaidDate != nil {
				t.Fatalf("invoice changed on rejected payment: %+v", inv)
			}
		})
	}
}

func TestReplacePayment(t *testing.T) {
	tests := []struct {
		name       string
		oldAmount  models.Money
		newAmount  models.Money
		wantErr    error
		wantPaid   models.Money
		wantStatus string
	}{
		{"increase to full", 50000, 120000, nil, 120000, models.InvoicePaid},
		{"decrease", 50000, 20000, nil, 20000, models.InvoicePartiallyPaid},
		{"exceeds after reversal", 50000, 120001, ErrAmountExceedsBalance, 50000, models.InvoicePartiallyPaid},
		{"zero", 50000, 0, ErrInvalidAmount, 50000, models.InvoicePartiallyPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvoice(120000, 0, 0)
			if err := ApplyPayment(inv, tt.oldAmount, day); err != nil {
				t.Fatal(err)
			}
			err := ReplacePayment(inv, tt.oldAmount, tt.newAmount, day)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			assertBalance(t, inv, tt.wantPaid, inv.TotalAmount-tt.wantPaid, tt.wantStatus)
		})
	}
}

func TestReversePaymentBackToIssued(t *testing.T) {
	inv := newInvoice(120000, 0, 0)
	if err := ApplyPayment(inv, 120000, day); err != nil {
		t.Fatal(err)
	}
	ReversePayment(inv, 20000)
	assertBalance(t, inv, 100000, 20000, models.InvoicePartiallyPaid)
	if inv.PaidDate != nil {
		t.Fatal("paid date kept after reversal below total")
	}
	ReversePayment(inv, 100000)
	assertBalance(t, inv, 0, 120000, models.InvoiceIssued)
}

func TestSetCharges(t *testing.T) {
	inv := newInvoice(120000, 0, 0)
	if err := ApplyPayment(inv, 60000, day); err != nil {
		t.Fatal(err)
	}

	if err := SetCharges(inv, 50000, 0, 0, day); !errors.Is(err, ErrTotalBelowPaid) {
		t.Fatalf("err = %v, want ErrTotalBelowPaid", err)
	}
	if err := SetCharges(inv, 1000, 0, 2000, day); !errors.Is(err, ErrNegativeTotal) {
		t.Fatalf("err = %v, want ErrNegativeTotal", err)
	}
	assertBalance(t, inv, 60000, 60000, models.InvoicePartiallyPaid)

	if err := SetCharges(inv, 50000, 15000, 5000, day); err != nil {
		t.Fatal(err)
	}
	assertBalance(t, inv, 60000, 0, models.InvoicePaid)
	if inv.PaidDate == nil || !inv.PaidDate.Equal(day) {
		t.Fatalf("paid date = %v, want %v", inv.PaidDate, day)
	}
}

func TestSetChargesKeepsOverdue(t *testing.T) {
	inv := newInvoice(120000, 0, 0)
	inv.Status = models.InvoiceOverdue
	if err := SetCharges(inv, 130000, 0, 0, day); err != nil {
		t.Fatal(err)
	}
	if inv.Status != models.InvoiceOverdue {
		t.Fatalf("status = %s, want Overdue", inv.Status)
	}
}

func TestIsOverdue(t *testing.T) {
	inv := newInvoice(120000, 0, 0)
	if !IsOverdue(inv, day) {
		t.Fatal("open invoice past due date not overdue")
	}
	if IsOverdue(inv, inv.DueDate) {
		t.Fatal("invoice overdue on its due date")
	}
	if err := ApplyPayment(inv, 120000, day); err != nil {
		t.Fatal(err)
	}
	if IsOverdue(inv, day) {
		t.Fatal("paid invoice reported overdue")
	}
}
