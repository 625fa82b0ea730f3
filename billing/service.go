package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/satheeshds/roomrent/models"
)

// DefaultDueDays applies when the billing.due_days setting is missing or invalid.
const DefaultDueDays = 5

// Service keeps invoices and payments consistent. Every mutation runs in one
// transaction that locks the affected payment and invoice rows, so concurrent
// payments against the same invoice are serialized.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "billing"), now: time.Now}
}

// PaymentResult is a payment together with its invoice after reconciliation.
type PaymentResult struct {
	Payment models.Payment `json:"payment"`
	Invoice models.Invoice `json:"invoice"`
}

// GenerationResult summarizes a monthly generation run.
type GenerationResult struct {
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Invoices []string `json:"invoices"`
}

// CreateInvoice issues a manual invoice. Room and rent default to the
// tenant's current room.
func (s *Service) CreateInvoice(ctx context.Context, in models.InvoiceInput) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.store.InTx(ctx, func(tx Tx) error {
		tenant, err := tx.Tenant(ctx, in.TenantID)
		if err != nil {
			return err
		}
		roomID := in.RoomID
		if roomID == nil {
			roomID = tenant.RoomID
		}
		rent := in.RentAmount
		if roomID != nil {
			room, err := tx.Room(ctx, *roomID)
			if err != nil {
				return err
			}
			if rent == 0 {
				rent = room.MonthlyRent
			}
		}
		lines, linesTotal, err := buildLines(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		issue := models.DateOnly(s.now())
		if in.Issue != nil {
			issue = *in.Issue
		}
		due := in.Due
		if due == nil {
			d := issue.AddDate(0, 0, s.dueDays(ctx, tx))
			due = &d
		}
		number, err := tx.NextInvoiceNumber(ctx, in.BillingYear, in.BillingMonth)
		if err != nil {
			return err
		}

		inv = models.Invoice{
			InvoiceNumber: number,
			TenantID:      tenant.ID,
			RoomID:        roomID,
			BillingYear:   in.BillingYear,
			BillingMonth:  in.BillingMonth,
			Status:        models.InvoiceIssued,
			IssueDate:     issue,
			DueDate:       *due,
			Notes:         in.Notes,
		}
		if err := SetCharges(&inv, rent, in.AdditionalCharges+linesTotal, in.Discount, s.now()); err != nil {
			return err
		}
		if err := tx.InsertInvoice(ctx, &inv); err != nil {
			return err
		}
		if err := tx.ReplaceInvoiceItems(ctx, inv.ID, lines); err != nil {
			return err
		}
		inv.Items = lines
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.logger.Info("invoice created", "invoice_id", inv.ID, "number", inv.InvoiceNumber, "total", inv.TotalAmount.Decimal())
	return &inv, nil
}

// UpdateInvoice replaces an invoice's editable fields. Paid amounts are kept
// and the balance is recomputed.
func (s *Service) UpdateInvoice(ctx context.Context, id int, in models.InvoiceInput) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		inv, err = tx.InvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == models.InvoiceCancelled {
			return ErrInvoiceCancelled
		}
		if in.TenantID != inv.TenantID {
			if _, err := tx.Tenant(ctx, in.TenantID); err != nil {
				return err
			}
		}
		if in.RoomID != nil {
			if _, err := tx.Room(ctx, *in.RoomID); err != nil {
				return err
			}
		}
		lines, linesTotal, err := buildLines(ctx, tx, in.Items)
		if err != nil {
			return err
		}
		// Incoming additional_charges is the invoice's stored figure, which
		// already includes the current lines.
		other := max(in.AdditionalCharges-itemizedTotal(inv.Items), 0)
		if err := SetCharges(inv, in.RentAmount, other+linesTotal, in.Discount, s.now()); err != nil {
			return err
		}
		inv.TenantID = in.TenantID
		inv.RoomID = in.RoomID
		inv.BillingYear, inv.BillingMonth = in.BillingYear, in.BillingMonth
		if in.Issue != nil {
			inv.IssueDate = *in.Issue
		}
		if in.Due != nil {
			inv.DueDate = *in.Due
		}
		if inv.DueDate.Before(inv.IssueDate) {
			return fmt.Errorf("%w: due date before issue date", ErrInvalidPeriod)
		}
		inv.Notes = in.Notes
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		if err := tx.ReplaceInvoiceItems(ctx, inv.ID, lines); err != nil {
			return err
		}
		inv.Items = lines
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice %d: %w", id, err)
	}
	return inv, nil
}

// CancelInvoice marks an invoice cancelled. Invoices with payments cannot be cancelled.
func (s *Service) CancelInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		inv, err = tx.InvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountPayments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w (%d)", ErrInvoiceHasPayments, n)
		}
		inv.Status = models.InvoiceCancelled
		return tx.UpdateInvoice(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("cancel invoice %d: %w", id, err)
	}
	s.logger.Info("invoice cancelled", "invoice_id", id)
	return inv, nil
}

// DeleteInvoice removes an invoice without payments.
func (s *Service) DeleteInvoice(ctx context.Context, id int) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.InvoiceForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountPayments(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w (%d)", ErrInvoiceHasPayments, n)
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	return nil
}

// CreatePayment records a payment and applies it to its invoice.
func (s *Service) CreatePayment(ctx context.Context, in models.PaymentInput, userID *int) (*PaymentResult, error) {
	var res PaymentResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		inv, err := tx.InvoiceForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if err := ApplyPayment(inv, in.Amount, in.Date); err != nil {
			return err
		}
		p := models.Payment{
			InvoiceID:     inv.ID,
			Amount:        in.Amount,
			Method:        in.Method,
			Reference:     in.Reference,
			PaymentDate:   in.Date,
			Notes:         in.Notes,
			CreatedBy:     userID,
			InvoiceNumber: &inv.InvoiceNumber,
			TenantName:    inv.TenantName,
		}
		if err := tx.InsertPayment(ctx, &p); err != nil {
			return err
		}
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		res = PaymentResult{Payment: p, Invoice: *inv}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	s.logger.Info("payment recorded",
		"payment_id", res.Payment.ID, "invoice_id", res.Invoice.ID,
		"amount", res.Payment.Amount.Decimal(), "status", res.Invoice.Status)
	return &res, nil
}

// UpdatePayment changes an unverified payment and re-applies it to its invoice.
func (s *Service) UpdatePayment(ctx context.Context, id int, in models.PaymentInput) (*PaymentResult, error) {
	var res PaymentResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.PaymentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.IsVerified {
			return ErrPaymentVerified
		}
		inv, err := tx.InvoiceForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		if err := ReplacePayment(inv, p.Amount, in.Amount, in.Date); err != nil {
			return err
		}
		p.Amount = in.Amount
		p.Method = in.Method
		p.Reference = in.Reference
		p.PaymentDate = in.Date
		p.Notes = in.Notes
		if err := tx.UpdatePayment(ctx, p); err != nil {
			return err
		}
		if err := tx.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		res = PaymentResult{Payment: *p, Invoice: *inv}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update payment %d: %w", id, err)
	}
	s.logger.Info("payment updated", "payment_id", id, "amount", res.Payment.Amount.Decimal(), "status", res.Invoice.Status)
	return &res, nil
}

// DeletePayment removes an unverified payment and reverses it on its invoice.
func (s *Service) DeletePayment(ctx context.Context, id int) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.PaymentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.IsVerified {
			return ErrPaymentVerified
		}
		inv, err = tx.InvoiceForUpdate(ctx, p.InvoiceID)
		if err != nil {
			return err
		}
		ReversePayment(inv, p.Amount)
		if err := tx.DeletePayment(ctx, id); err != nil {
			return err
		}
		return tx.UpdateInvoice(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("delete payment %d: %w", id, err)
	}
	s.logger.Info("payment deleted", "payment_id", id, "invoice_id", inv.ID, "status", inv.Status)
	return inv, nil
}

// VerifyPayment sets or clears the verified flag. While set, the payment
// cannot be updated or deleted.
func (s *Service) VerifyPayment(ctx context.Context, id int, verified bool, userID *int) (*models.Payment, error) {
	var p *models.Payment
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		p, err = tx.PaymentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		p.IsVerified = verified
		if verified {
			now := s.now()
			p.VerifiedAt = &now
			p.VerifiedBy = userID
		} else {
			p.VerifiedAt = nil
			p.VerifiedBy = nil
		}
		return tx.UpdatePayment(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("verify payment %d: %w", id, err)
	}
	s.logger.Info("payment verification changed", "payment_id", id, "verified", verified)
	return p, nil
}

// GenerateMonthly issues one invoice per active tenancy for the period.
// Tenancies that already have an invoice for the period are skipped, so the
// run is idempotent. Each tenancy is billed in its own transaction.
func (s *Service) GenerateMonthly(ctx context.Context, year, month int) (*GenerationResult, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, fmt.Errorf("generate invoices: %w: %04d-%02d", ErrInvalidPeriod, year, month)
	}
	var (
		tenancies []Tenancy
		dueDays   int
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		tenancies, err = tx.ActiveTenancies(ctx)
		dueDays = s.dueDays(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate invoices: %w", err)
	}

	res := &GenerationResult{Year: year, Month: month, Invoices: []string{}}
	issue := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	due := issue.AddDate(0, 0, dueDays)
	for _, tn := range tenancies {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var number string
		err := s.store.InTx(ctx, func(tx Tx) error {
			exists, err := tx.InvoiceExists(ctx, tn.TenantID, year, month)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateInvoice
			}
			number, err = tx.NextInvoiceNumber(ctx, year, month)
			if err != nil {
				return err
			}
			roomID := tn.RoomID
			inv := models.Invoice{
				InvoiceNumber: number,
				TenantID:      tn.TenantID,
				RoomID:        &roomID,
				BillingYear:   year,
				BillingMonth:  month,
				Status:        models.InvoiceIssued,
				IssueDate:     issue,
				DueDate:       due,
				Generated:     true,
			}
			if err := SetCharges(&inv, tn.MonthlyRent, 0, 0, s.now()); err != nil {
				return err
			}
			return tx.InsertInvoice(ctx, &inv)
		})
		switch {
		case errors.Is(err, ErrDuplicateInvoice):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("generate invoice for tenant %d: %w", tn.TenantID, err)
		default:
			res.Created++
			res.Invoices = append(res.Invoices, number)
		}
	}
	s.logger.Info("monthly invoices generated", "year", year, "month", month, "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

// MarkOverdue flags open invoices past their due date.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		n, err = tx.MarkOverdue(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if n > 0 {
		s.logger.Info("invoices marked overdue", "count", n)
	}
	return n, nil
}

func (s *Service) dueDays(ctx context.Context, tx Tx) int {
	v, ok, err := tx.Setting(ctx, models.SettingDueDays)
	if err != nil || !ok {
		return DefaultDueDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		s.logger.Warn("invalid due days setting, using default", "value", v)
		return DefaultDueDays
	}
	return n
}

// buildLines prices invoice lines, filling description and unit price from
// the item catalog when an item is referenced.
func itemizedTotal(items []models.InvoiceItem) models.Money {
	var total models.Money
	for _, it := range items {
		total += it.Amount
	}
	return total
}

func buildLines(ctx context.Context, tx Tx, in []models.InvoiceItemInput) ([]models.InvoiceItem, models.Money, error) {
	lines := make([]models.InvoiceItem, 0, len(in))
	var total models.Money
	for _, li := range in {
		line := models.InvoiceItem{
			ItemID:      li.ItemID,
			Description: li.Description,
			Quantity:    li.Quantity,
		}
		if li.ItemID != nil {
			item, err := tx.Item(ctx, *li.ItemID)
			if err != nil {
				return nil, 0, err
			}
			if line.Description == "" {
				line.Description = item.Name
			}
			line.UnitPrice = item.UnitPrice
		}
		if li.UnitPrice != nil {
			line.UnitPrice = *li.UnitPrice
		}
		line.Amount = line.UnitPrice * models.Money(line.Quantity)
		total += line.Amount
		lines = append(lines, line)
	}
	return lines, total, nil
}
