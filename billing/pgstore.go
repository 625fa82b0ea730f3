package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/satheeshds/roomrent/db"
	"github.com/satheeshds/roomrent/models"
)

// InvoiceSelectQuery selects invoices with tenant name and room number. Use
// ScanInvoice on its rows.
const InvoiceSelectQuery = `SELECT i.id, i.invoice_number, i.tenant_id, i.room_id, i.billing_year, i.billing_month,
		i.rent_amount, i.additional_charges, i.discount, i.total_amount, i.paid_amount, i.remaining_balance,
		i.status, i.issue_date, i.due_date, i.paid_date, i.generated, i.notes, i.created_at, i.updated_at,
		t.full_name, r.room_number
		FROM invoices i
		LEFT JOIN tenants t ON i.tenant_id = t.id
		LEFT JOIN rooms r ON i.room_id = r.id`

// PaymentSelectQuery selects payments with their invoice number and tenant name.
const PaymentSelectQuery = `SELECT p.id, p.invoice_id, p.amount, p.method, p.reference, p.payment_date,
		p.is_verified, p.verified_at, p.verified_by, p.notes, p.created_by, p.created_at, p.updated_at,
		i.invoice_number, t.full_name
		FROM payments p
		JOIN invoices i ON p.invoice_id = i.id
		LEFT JOIN tenants t ON i.tenant_id = t.id`

// ScanInvoice scans one row of InvoiceSelectQuery.
func ScanInvoice(scanner interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	err := scanner.Scan(&inv.ID, &inv.InvoiceNumber, &inv.TenantID, &inv.RoomID, &inv.BillingYear, &inv.BillingMonth,
		&inv.RentAmount, &inv.AdditionalCharges, &inv.Discount, &inv.TotalAmount, &inv.PaidAmount, &inv.RemainingBalance,
		&inv.Status, &inv.IssueDate, &inv.DueDate, &inv.PaidDate, &inv.Generated, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.TenantName, &inv.RoomNumber)
	return inv, err
}

// ScanPayment scans one row of PaymentSelectQuery.
func ScanPayment(scanner interface{ Scan(...any) error }) (models.Payment, error) {
	var p models.Payment
	err := scanner.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.Reference, &p.PaymentDate,
		&p.IsVerified, &p.VerifiedAt, &p.VerifiedBy, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.InvoiceNumber, &p.TenantName)
	return p, err
}

// PgStore is the PostgreSQL Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InvoiceForUpdate(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := ScanInvoice(t.tx.QueryRow(ctx, InvoiceSelectQuery+" WHERE i.id = $1 FOR UPDATE OF i", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
	}
	if err != nil {
		return nil, err
	}
	items, err := t.invoiceItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return &inv, nil
}

func (t *pgTx) invoiceItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, invoice_id, item_id, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.InvoiceItem
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (t *pgTx) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices (invoice_number, tenant_id, room_id, billing_year, billing_month,
		rent_amount, additional_charges, discount, total_amount, paid_amount, remaining_balance,
		status, issue_date, due_date, paid_date, generated, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at`,
		inv.InvoiceNumber, inv.TenantID, inv.RoomID, inv.BillingYear, inv.BillingMonth,
		inv.RentAmount, inv.AdditionalCharges, inv.Discount, inv.TotalAmount, inv.PaidAmount, inv.RemainingBalance,
		inv.Status, inv.IssueDate, inv.DueDate, inv.PaidDate, inv.Generated, inv.Notes).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("tenant %d %04d-%02d: %w", inv.TenantID, inv.BillingYear, inv.BillingMonth, ErrDuplicateInvoice)
	}
	return err
}

func (t *pgTx) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	return t.tx.QueryRow(ctx, `UPDATE invoices SET tenant_id = $1, room_id = $2, billing_year = $3, billing_month = $4,
		rent_amount = $5, additional_charges = $6, discount = $7, total_amount = $8, paid_amount = $9,
		remaining_balance = $10, status = $11, issue_date = $12, due_date = $13, paid_date = $14, notes = $15,
		updated_at = now()
		WHERE id = $16 RETURNING updated_at`,
		inv.TenantID, inv.RoomID, inv.BillingYear, inv.BillingMonth,
		inv.RentAmount, inv.AdditionalCharges, inv.Discount, inv.TotalAmount, inv.PaidAmount,
		inv.RemainingBalance, inv.Status, inv.IssueDate, inv.DueDate, inv.PaidDate, inv.Notes, inv.ID).
		Scan(&inv.UpdatedAt)
}

func (t *pgTx) DeleteInvoice(ctx context.Context, id int) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
	}
	return nil
}

func (t *pgTx) ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []models.InvoiceItem) error {
	if _, err := t.tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", invoiceID); err != nil {
		return err
	}
	for i := range items {
		it := &items[i]
		it.InvoiceID = invoiceID
		err := t.tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, item_id, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			invoiceID, it.ItemID, it.Description, it.Quantity, it.UnitPrice, it.Amount).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("inserting invoice item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) NextInvoiceNumber(ctx context.Context, year, month int) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('invoice_number_seq')").Scan(&seq); err != nil {
		return "", err
	}
	return FormatInvoiceNumber(year, month, seq), nil
}

// FormatInvoiceNumber renders INV-YYYYMM-NNNNN.
func FormatInvoiceNumber(year, month int, seq int64) string {
	return fmt.Sprintf("INV-%04d%02d-%05d", year, month, seq)
}

func (t *pgTx) InvoiceExists(ctx context.Context, tenantID, year, month int) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices
		WHERE tenant_id = $1 AND billing_year = $2 AND billing_month = $3 AND status <> 'Cancelled')`,
		tenantID, year, month).Scan(&exists)
	return exists, err
}

func (t *pgTx) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices SET status = 'Overdue', updated_at = now()
		WHERE due_date < $1 AND remaining_balance > 0 AND status IN ('Issued', 'PartiallyPaid', 'Unpaid')`,
		models.DateOnly(today))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) PaymentForUpdate(ctx context.Context, id int) (*models.Payment, error) {
	p, err := ScanPayment(t.tx.QueryRow(ctx, PaymentSelectQuery+" WHERE p.id = $1 FOR UPDATE OF p", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, ErrPaymentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) CountPayments(ctx context.Context, invoiceID int) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, "SELECT COUNT(*) FROM payments WHERE invoice_id = $1", invoiceID).Scan(&n)
	return n, err
}

func (t *pgTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	return t.tx.QueryRow(ctx, `INSERT INTO payments (invoice_id, amount, method, reference, payment_date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		p.InvoiceID, p.Amount, p.Method, p.Reference, p.PaymentDate, p.Notes, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return t.tx.QueryRow(ctx, `UPDATE payments SET amount = $1, method = $2, reference = $3, payment_date = $4,
		notes = $5, is_verified = $6, verified_at = $7, verified_by = $8, updated_at = now()
		WHERE id = $9 RETURNING updated_at`,
		p.Amount, p.Method, p.Reference, p.PaymentDate, p.Notes, p.IsVerified, p.VerifiedAt, p.VerifiedBy, p.ID).
		Scan(&p.UpdatedAt)
}

func (t *pgTx) DeletePayment(ctx context.Context, id int) error {
	_, err := t.tx.Exec(ctx, "DELETE FROM payments WHERE id = $1", id)
	return err
}

func (t *pgTx) Tenant(ctx context.Context, id int) (*models.Tenant, error) {
	var tn models.Tenant
	err := t.tx.QueryRow(ctx, `SELECT id, full_name, room_id, status FROM tenants WHERE id = $1`, id).
		Scan(&tn.ID, &tn.FullName, &tn.RoomID, &tn.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("tenant %d: %w", id, ErrTenantNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tn, nil
}

func (t *pgTx) Room(ctx context.Context, id int) (*models.Room, error) {
	var r models.Room
	err := t.tx.QueryRow(ctx, `SELECT id, room_number, monthly_rent, status FROM rooms WHERE id = $1`, id).
		Scan(&r.ID, &r.RoomNumber, &r.MonthlyRent, &r.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("room %d: %w", id, ErrRoomNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *pgTx) Item(ctx context.Context, id int) (*models.Item, error) {
	var it models.Item
	err := t.tx.QueryRow(ctx, `SELECT id, name, unit, unit_price, is_active FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Unit, &it.UnitPrice, &it.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *pgTx) ActiveTenancies(ctx context.Context) ([]Tenancy, error) {
	rows, err := t.tx.Query(ctx, `SELECT t.id, t.full_name, r.id, r.monthly_rent
		FROM tenants t JOIN rooms r ON t.room_id = r.id
		WHERE t.status = 'Active'
		ORDER BY t.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Tenancy
	for rows.Next() {
		var tn Tenancy
		if err := rows.Scan(&tn.TenantID, &tn.TenantName, &tn.RoomID, &tn.MonthlyRent); err != nil {
			return nil, err
		}
		out = append(out, tn)
	}
	return out, rows.Err()
}

func (t *pgTx) Setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := t.tx.QueryRow(ctx, "SELECT value FROM system_settings WHERE key = $1", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
