package billing

import (
	"fmt"
	"time"

	"github.com/satheeshds/roomrent/models"
)

// Recalculate derives the total and remaining balance from the invoice's
// components. remaining = total - paid always holds afterwards.
func Recalculate(inv *models.Invoice) {
	inv.TotalAmount = inv.RentAmount + inv.AdditionalCharges - inv.Discount
	inv.RemainingBalance = inv.TotalAmount - inv.PaidAmount
}

// refreshStatus recomputes the payment status from the paid accumulator.
// paidOn stamps PaidDate when the invoice becomes fully covered; a nil paidOn
// keeps the existing date.
func refreshStatus(inv *models.Invoice, paidOn *time.Time) {
	if inv.Status == models.InvoiceCancelled {
		return
	}
	switch {
	case inv.PaidAmount <= 0:
		inv.Status = models.InvoiceIssued
		inv.PaidDate = nil
	case inv.RemainingBalance <= 0:
		inv.Status = models.InvoicePaid
		if paidOn != nil {
			d := *paidOn
			inv.PaidDate = &d
		}
	default:
		inv.Status = models.InvoicePartiallyPaid
		inv.PaidDate = nil
	}
}

// ApplyPayment adds a new payment to the invoice. The invoice is left
// untouched when an error is returned.
func ApplyPayment(inv *models.Invoice, amount models.Money, paidOn time.Time) error {
	if inv.Status == models.InvoiceCancelled {
		return ErrInvoiceCancelled
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > inv.RemainingBalance {
		return fmt.Errorf("%w: requested %s, remaining %s",
			ErrAmountExceedsBalance, amount.Decimal().StringFixed(2), inv.RemainingBalance.Decimal().StringFixed(2))
	}
	inv.PaidAmount += amount
	Recalculate(inv)
	refreshStatus(inv, &paidOn)
	return nil
}

// ReplacePayment swaps an existing payment amount for a new one. The check is
// against the balance as it would be with the old amount reversed.
func ReplacePayment(inv *models.Invoice, oldAmount, newAmount models.Money, paidOn time.Time) error {
	if inv.Status == models.InvoiceCancelled {
		return ErrInvoiceCancelled
	}
	if newAmount <= 0 {
		return ErrInvalidAmount
	}
	available := inv.RemainingBalance + oldAmount
	if newAmount > available {
		return fmt.Errorf("%w: requested %s, remaining after reversal %s",
			ErrAmountExceedsBalance, newAmount.Decimal().StringFixed(2), available.Decimal().StringFixed(2))
	}
	inv.PaidAmount += newAmount - oldAmount
	Recalculate(inv)
	refreshStatus(inv, &paidOn)
	return nil
}

// ReversePayment removes a payment's amount from the invoice.
func ReversePayment(inv *models.Invoice, amount models.Money) {
	inv.PaidAmount -= amount
	if inv.PaidAmount < 0 {
		inv.PaidAmount = 0
	}
	Recalculate(inv)
	refreshStatus(inv, nil)
}

// SetCharges replaces the billed components of an invoice. An overdue invoice
// that still has a balance stays overdue. today stamps PaidDate if the new
// total is already covered.
func SetCharges(inv *models.Invoice, rent, charges, discount models.Money, today time.Time) error {
	total := rent + charges - discount
	if total < 0 {
		return ErrNegativeTotal
	}
	if total < inv.PaidAmount {
		return fmt.Errorf("%w: total %s, paid %s",
			ErrTotalBelowPaid, total.Decimal().StringFixed(2), inv.PaidAmount.Decimal().StringFixed(2))
	}
	wasOverdue := inv.Status == models.InvoiceOverdue
	inv.RentAmount, inv.AdditionalCharges, inv.Discount = rent, charges, discount
	Recalculate(inv)
	var paidOn *time.Time
	if inv.PaidDate == nil {
		d := models.DateOnly(today)
		paidOn = &d
	}
	refreshStatus(inv, paidOn)
	if wasOverdue && inv.RemainingBalance > 0 {
		inv.Status = models.InvoiceOverdue
	}
	return nil
}

// IsOverdue reports whether an open invoice is past its due date.
func IsOverdue(inv *models.Invoice, today time.Time) bool {
	switch inv.Status {
	case models.InvoiceIssued, models.InvoicePartiallyPaid, models.InvoiceUnpaid:
	default:
		return false
	}
	return inv.RemainingBalance > 0 && inv.DueDate.Before(models.DateOnly(today))
}
