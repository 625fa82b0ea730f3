package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/satheeshds/roomrent/db"
	"github.com/satheeshds/roomrent/models"
)

// testPool connects to ROOMRENT_TEST_DATABASE_URL and migrates it. Tests
// using it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("ROOMRENT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("ROOMRENT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, url, 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return pool
}

// seedTenant inserts a room and an active tenant occupying it.
func seedTenant(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	ctx := context.Background()
	var roomID, tenantID int
	number := fmt.Sprintf("T%d", time.Now().UnixNano())
	err := pool.QueryRow(ctx, `INSERT INTO rooms (room_number, monthly_rent, capacity, status)
		VALUES ($1, 100000, 1, 'Occupied') RETURNING id`, number).Scan(&roomID)
	if err != nil {
		t.Fatal(err)
	}
	err = pool.QueryRow(ctx, `INSERT INTO tenants (full_name, room_id, status)
		VALUES ('Store Test', $1, 'Active') RETURNING id`, roomID).Scan(&tenantID)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		pool.Exec(ctx, `DELETE FROM payments WHERE invoice_id IN (SELECT id FROM invoices WHERE tenant_id = $1)`, tenantID)
		pool.Exec(ctx, `DELETE FROM invoices WHERE tenant_id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
		pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	})
	return tenantID
}

func TestPgStoreConcurrentPaymentsDoNotOverpay(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenantID := seedTenant(t, pool)
	svc := NewService(NewPgStore(pool), slog.New(slog.NewTextHandler(io.Discard, nil)))

	inv, err := svc.CreateInvoice(ctx, models.InvoiceInput{TenantID: tenantID, BillingYear: 2026, BillingMonth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if inv.TotalAmount != 100000 {
		t.Fatalf("total = %d, want room rent 100000", inv.TotalAmount)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 10 {
		wg.Go(func() {
			_, err := svc.CreatePayment(ctx, pay(15000, inv.ID), nil)
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case !errors.Is(err, ErrAmountExceedsBalance):
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	if accepted != 6 {
		t.Fatalf("accepted %d payments, want 6", accepted)
	}
	var paid, remaining, sum int64
	var status string
	err = pool.QueryRow(ctx, `SELECT paid_amount, remaining_balance, status FROM invoices WHERE id = $1`, inv.ID).
		Scan(&paid, &remaining, &status)
	if err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, inv.ID).Scan(&sum); err != nil {
		t.Fatal(err)
	}
	if paid != 90000 || remaining != 10000 || status != models.InvoicePartiallyPaid {
		t.Fatalf("paid=%d remaining=%d status=%s", paid, remaining, status)
	}
	if sum != paid {
		t.Fatalf("payments sum %d, invoice paid_amount %d", sum, paid)
	}
}

func TestPgStorePaymentLifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenantID := seedTenant(t, pool)
	svc := NewService(NewPgStore(pool), slog.New(slog.NewTextHandler(io.Discard, nil)))

	inv, err := svc.CreateInvoice(ctx, models.InvoiceInput{TenantID: tenantID, BillingYear: 2026, BillingMonth: 4, RentAmount: 50000})
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.CreatePayment(ctx, pay(50000, inv.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.Status != models.InvoicePaid || res.Invoice.PaidDate == nil {
		t.Fatalf("after full payment: status=%s paid_date=%v", res.Invoice.Status, res.Invoice.PaidDate)
	}

	res, err = svc.UpdatePayment(ctx, res.Payment.ID, pay(20000, inv.ID))
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.PaidAmount != 20000 || res.Invoice.RemainingBalance != 30000 || res.Invoice.Status != models.InvoicePartiallyPaid {
		t.Fatalf("after update: %+v", res.Invoice)
	}

	after, err := svc.DeletePayment(ctx, res.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.PaidAmount != 0 || after.RemainingBalance != 50000 || after.Status != models.InvoiceIssued {
		t.Fatalf("after delete: %+v", after)
	}
	if err := svc.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
}
