package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/satheeshds/roomrent/models"
)

// memStore is an in-memory Store. A transaction holds the store mutex for its
// whole duration and restores a snapshot on error.
type memStore struct {
	mu       sync.Mutex
	invoices map[int]models.Invoice
	payments map[int]models.Payment
	tenants  map[int]models.Tenant
	rooms    map[int]models.Room
	items    map[int]models.Item
	settings map[string]string
	nextID   int
	seq      int64
}

func newMemStore() *memStore {
	return &memStore{
		invoices: map[int]models.Invoice{},
		payments: map[int]models.Payment{},
		tenants:  map[int]models.Tenant{},
		rooms:    map[int]models.Room{},
		items:    map[int]models.Item{},
		settings: map[string]string{},
		nextID:   100,
	}
}

type memSnapshot struct {
	invoices map[int]models.Invoice
	payments map[int]models.Payment
	nextID   int
	seq      int64
}

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memSnapshot{invoices: map[int]models.Invoice{}, payments: map[int]models.Payment{}, nextID: m.nextID, seq: m.seq}
	for k, v := range m.invoices {
		snap.invoices[k] = v
	}
	for k, v := range m.payments {
		snap.payments[k] = v
	}
	if err := fn(&memTx{m}); err != nil {
		m.invoices, m.payments, m.nextID, m.seq = snap.invoices, snap.payments, snap.nextID, snap.seq
		return err
	}
	return nil
}

type memTx struct{ m *memStore }

func (t *memTx) id() int {
	t.m.nextID++
	return t.m.nextID
}

func (t *memTx) InvoiceForUpdate(ctx context.Context, id int) (*models.Invoice, error) {
	inv, ok := t.m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %d: %w", id, ErrInvoiceNotFound)
	}
	return &inv, nil
}

func (t *memTx) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.Generated {
		for _, other := range t.m.invoices {
			if other.Generated && other.TenantID == inv.TenantID && other.BillingYear == inv.BillingYear &&
				other.BillingMonth == inv.BillingMonth && other.Status != models.InvoiceCancelled {
				return ErrDuplicateInvoice
			}
		}
	}
	inv.ID = t.id()
	t.m.invoices[inv.ID] = *inv
	return nil
}

func (t *memTx) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	if _, ok := t.m.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	t.m.invoices[inv.ID] = *inv
	return nil
}

func (t *memTx) DeleteInvoice(ctx context.Context, id int) error {
	delete(t.m.invoices, id)
	return nil
}

func (t *memTx) ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []models.InvoiceItem) error {
	inv := t.m.invoices[invoiceID]
	inv.Items = append([]models.InvoiceItem(nil), items...)
	t.m.invoices[invoiceID] = inv
	return nil
}

func (t *memTx) NextInvoiceNumber(ctx context.Context, year, month int) (string, error) {
	t.m.seq++
	return FormatInvoiceNumber(year, month, t.m.seq), nil
}

func (t *memTx) InvoiceExists(ctx context.Context, tenantID, year, month int) (bool, error) {
	for _, inv := range t.m.invoices {
		if inv.TenantID == tenantID && inv.BillingYear == year && inv.BillingMonth == month && inv.Status != models.InvoiceCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	var n int64
	for id, inv := range t.m.invoices {
		if IsOverdue(&inv, today) {
			inv.Status = models.InvoiceOverdue
			t.m.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func (t *memTx) PaymentForUpdate(ctx context.Context, id int) (*models.Payment, error) {
	p, ok := t.m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %d: %w", id, ErrPaymentNotFound)
	}
	return &p, nil
}

func (t *memTx) CountPayments(ctx context.Context, invoiceID int) (int, error) {
	n := 0
	for _, p := range t.m.payments {
		if p.InvoiceID == invoiceID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *models.Payment) error {
	p.ID = t.id()
	t.m.payments[p.ID] = *p
	return nil
}

func (t *memTx) UpdatePayment(ctx context.Context, p *models.Payment) error {
	t.m.payments[p.ID] = *p
	return nil
}

func (t *memTx) DeletePayment(ctx context.Context, id int) error {
	delete(t.m.payments, id)
	return nil
}

func (t *memTx) Tenant(ctx context.Context, id int) (*models.Tenant, error) {
	tn, ok := t.m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &tn, nil
}

func (t *memTx) Room(ctx context.Context, id int) (*models.Room, error) {
	r, ok := t.m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &r, nil
}

func (t *memTx) Item(ctx context.Context, id int) (*models.Item, error) {
	it, ok := t.m.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &it, nil
}

func (t *memTx) ActiveTenancies(ctx context.Context) ([]Tenancy, error) {
	var out []Tenancy
	for id := 1; id <= len(t.m.tenants)+10; id++ {
		tn, ok := t.m.tenants[id]
		if !ok || tn.Status != models.TenantActive || tn.RoomID == nil {
			continue
		}
		out = append(out, Tenancy{TenantID: tn.ID, TenantName: tn.FullName, RoomID: *tn.RoomID, MonthlyRent: t.m.rooms[*tn.RoomID].MonthlyRent})
	}
	return out, nil
}

func (t *memTx) Setting(ctx context.Context, key string) (string, bool, error) {
	v, ok := t.m.settings[key]
	return v, ok, nil
}

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	roomID := 1
	store.rooms[1] = models.Room{ID: 1, RoomNumber: "101", MonthlyRent: 120000, Status: models.RoomOccupied}
	store.rooms[2] = models.Room{ID: 2, RoomNumber: "102", MonthlyRent: 90000, Status: models.RoomOccupied}
	store.tenants[1] = models.Tenant{ID: 1, FullName: "Asha", RoomID: &roomID, Status: models.TenantActive}
	store.items[1] = models.Item{ID: 1, Name: "Electricity", Unit: "kWh", UnitPrice: 800, IsActive: true}
	store.settings[models.SettingDueDays] = "7"

	svc := NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func createInvoice(t *testing.T, svc *Service) *models.Invoice {
	t.Helper()
	inv, err := svc.CreateInvoice(context.Background(), models.InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3})
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func pay(amount models.Money, invoiceID int) models.PaymentInput {
	return models.PaymentInput{InvoiceID: invoiceID, Amount: amount, Method: "Cash", Date: models.DateOnly(testNow)}
}

func TestCreateInvoiceDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	inv, err := svc.CreateInvoice(context.Background(), models.InvoiceInput{
		TenantID: 1, BillingYear: 2026, BillingMonth: 3, Discount: 10000,
		Items: []models.InvoiceItemInput{{ItemID: intPtr(1), Quantity: 25}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inv.RoomID == nil || *inv.RoomID != 1 {
		t.Fatalf("room = %v, want tenant's room 1", inv.RoomID)
	}
	if inv.RentAmount != 120000 || inv.AdditionalCharges != 20000 || inv.TotalAmount != 130000 {
		t.Fatalf("rent=%d charges=%d total=%d", inv.RentAmount, inv.AdditionalCharges, inv.TotalAmount)
	}
	if len(inv.Items) != 1 || inv.Items[0].Description != "Electricity" || inv.Items[0].Amount != 20000 {
		t.Fatalf("items = %+v", inv.Items)
	}
	wantDue := models.DateOnly(testNow).AddDate(0, 0, 7)
	if !inv.DueDate.Equal(wantDue) {
		t.Fatalf("due = %v, want %v", inv.DueDate, wantDue)
	}
	if inv.InvoiceNumber != "INV-202603-00001" {
		t.Fatalf("number = %s", inv.InvoiceNumber)
	}
}

func TestCreateInvoiceUnknownTenant(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateInvoice(context.Background(), models.InvoiceInput{TenantID: 9, BillingYear: 2026, BillingMonth: 3})
	if !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	inv := createInvoice(t, svc)

	first, err := svc.CreatePayment(ctx, pay(50000, inv.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, &first.Invoice, 50000, 70000, models.InvoicePartiallyPaid)

	second, err := svc.CreatePayment(ctx, pay(70000, inv.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, &second.Invoice, 120000, 0, models.InvoicePaid)
	if second.Invoice.PaidDate == nil {
		t.Fatal("paid date not set")
	}

	if _, err := svc.CreatePayment(ctx, pay(1, inv.ID), nil); !errors.Is(err, ErrAmountExceedsBalance) {
		t.Fatalf("err = %v, want ErrAmountExceedsBalance", err)
	}

	updated, err := svc.UpdatePayment(ctx, first.Payment.ID, pay(30000, 0))
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, &updated.Invoice, 100000, 20000, models.InvoicePartiallyPaid)

	after, err := svc.DeletePayment(ctx, second.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, after, 30000, 90000, models.InvoicePartiallyPaid)

	after, err = svc.DeletePayment(ctx, first.Payment.ID)
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, after, 0, 120000, models.InvoiceIssued)
	if len(store.payments) != 0 {
		t.Fatalf("payments left: %d", len(store.payments))
	}
}

func TestVerifiedPaymentIsImmutable(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	inv := createInvoice(t, svc)
	res, err := svc.CreatePayment(ctx, pay(50000, inv.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	admin := 7
	p, err := svc.VerifyPayment(ctx, res.Payment.ID, true, &admin)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsVerified || p.VerifiedAt == nil || p.VerifiedBy == nil || *p.VerifiedBy != admin {
		t.Fatalf("verification not stamped: %+v", p)
	}

	before := store.invoices[inv.ID]
	if _, err := svc.UpdatePayment(ctx, res.Payment.ID, pay(10000, 0)); !errors.Is(err, ErrPaymentVerified) {
		t.Fatalf("update err = %v, want ErrPaymentVerified", err)
	}
	if _, err := svc.DeletePayment(ctx, res.Payment.ID); !errors.Is(err, ErrPaymentVerified) {
		t.Fatalf("delete err = %v, want ErrPaymentVerified", err)
	}
	got := store.invoices[inv.ID]
	if got.PaidAmount != before.PaidAmount || got.RemainingBalance != before.RemainingBalance || got.Status != before.Status {
		t.Fatalf("invoice changed: %+v", got)
	}

	if _, err := svc.VerifyPayment(ctx, res.Payment.ID, false, &admin); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.DeletePayment(ctx, res.Payment.ID); err != nil {
		t.Fatalf("delete after unverify: %v", err)
	}
}

func TestPaymentNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreatePayment(context.Background(), pay(100, 404), nil); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("err = %v, want ErrInvoiceNotFound", err)
	}
	if _, err := svc.DeletePayment(context.Background(), 404); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
}

func TestRandomPaymentSequencesKeepBalance(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		svc, store := newTestService(t)
		inv := createInvoice(t, svc)
		var ids []int
		for step := 0; step < 40; step++ {
			switch op := rng.Intn(3); {
			case op == 0 || len(ids) == 0:
				res, err := svc.CreatePayment(ctx, pay(models.Money(rng.Intn(60000)+1), inv.ID), nil)
				if err == nil {
					ids = append(ids, res.Payment.ID)
				} else if !errors.Is(err, ErrAmountExceedsBalance) {
					t.Fatal(err)
				}
			case op == 1:
				id := ids[rng.Intn(len(ids))]
				if _, err := svc.UpdatePayment(ctx, id, pay(models.Money(rng.Intn(80000)+1), 0)); err != nil &&
					!errors.Is(err, ErrAmountExceedsBalance) {
					t.Fatal(err)
				}
			default:
				i := rng.Intn(len(ids))
				if _, err := svc.DeletePayment(ctx, ids[i]); err != nil {
					t.Fatal(err)
				}
				ids = append(ids[:i], ids[i+1:]...)
			}

			got := store.invoices[inv.ID]
			var sum models.Money
			for _, p := range store.payments {
				sum += p.Amount
			}
			if got.PaidAmount != sum {
				t.Fatalf("round %d step %d: paid %d != sum of payments %d", round, step, got.PaidAmount, sum)
			}
			if got.RemainingBalance != got.TotalAmount-got.PaidAmount || got.RemainingBalance < 0 {
				t.Fatalf("round %d step %d: balance broken: %+v", round, step, got)
			}
			switch {
			case got.PaidAmount == 0 && got.Status != models.InvoiceIssued,
				got.PaidAmount > 0 && got.PaidAmount < got.TotalAmount && got.Status != models.InvoicePartiallyPaid,
				got.PaidAmount >= got.TotalAmount && (got.Status != models.InvoicePaid || got.PaidDate == nil):
				t.Fatalf("round %d step %d: status %s with paid %d of %d", round, step, got.Status, got.PaidAmount, got.TotalAmount)
			}
		}
	}
}

func TestConcurrentPaymentsDoNotOverpay(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	inv := createInvoice(t, svc)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.CreatePayment(ctx, pay(50000, inv.ID), nil)
		}()
	}
	wg.Wait()

	got := store.invoices[inv.ID]
	if len(store.payments) != 2 {
		t.Fatalf("accepted %d payments, want 2", len(store.payments))
	}
	assertBalance(t, &got, 100000, 20000, models.InvoicePartiallyPaid)
}

func TestCancelAndDeleteInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv := createInvoice(t, svc)
	if _, err := svc.CreatePayment(ctx, pay(1000, inv.ID), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CancelInvoice(ctx, inv.ID); !errors.Is(err, ErrInvoiceHasPayments) {
		t.Fatalf("cancel err = %v, want ErrInvoiceHasPayments", err)
	}
	if err := svc.DeleteInvoice(ctx, inv.ID); !errors.Is(err, ErrInvoiceHasPayments) {
		t.Fatalf("delete err = %v, want ErrInvoiceHasPayments", err)
	}

	other := createInvoice(t, svc)
	cancelled, err := svc.CancelInvoice(ctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.InvoiceCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if _, err := svc.CreatePayment(ctx, pay(1000, other.ID), nil); !errors.Is(err, ErrInvoiceCancelled) {
		t.Fatalf("err = %v, want ErrInvoiceCancelled", err)
	}
}

func TestUpdateInvoiceBelowPaid(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	inv := createInvoice(t, svc)
	if _, err := svc.CreatePayment(ctx, pay(100000, inv.ID), nil); err != nil {
		t.Fatal(err)
	}
	_, err := svc.UpdateInvoice(ctx, inv.ID, models.InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, RentAmount: 90000})
	if !errors.Is(err, ErrTotalBelowPaid) {
		t.Fatalf("err = %v, want ErrTotalBelowPaid", err)
	}
	if got := store.invoices[inv.ID]; got.TotalAmount != 120000 {
		t.Fatalf("total changed to %d", got.TotalAmount)
	}

	updated, err := svc.UpdateInvoice(ctx, inv.ID, models.InvoiceInput{TenantID: 1, BillingYear: 2026, BillingMonth: 3, RentAmount: 100000})
	if err != nil {
		t.Fatal(err)
	}
	assertBalance(t, updated, 100000, 0, models.InvoicePaid)
}

// echoInput turns a stored invoice back into the body a client would PUT.
func echoInput(inv *models.Invoice) models.InvoiceInput {
	in := models.InvoiceInput{
		TenantID:          inv.TenantID,
		RoomID:            inv.RoomID,
		BillingYear:       inv.BillingYear,
		BillingMonth:      inv.BillingMonth,
		RentAmount:        inv.RentAmount,
		AdditionalCharges: inv.AdditionalCharges,
		Discount:          inv.Discount,
		Notes:             inv.Notes,
	}
	for _, it := range inv.Items {
		price := it.UnitPrice
		in.Items = append(in.Items, models.InvoiceItemInput{
			ItemID: it.ItemID, Description: it.Description, Quantity: it.Quantity, UnitPrice: &price,
		})
	}
	return in
}

func TestUpdateInvoiceUnchangedKeepsTotal(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	inv, err := svc.CreateInvoice(ctx, models.InvoiceInput{
		TenantID: 1, BillingYear: 2026, BillingMonth: 3, AdditionalCharges: 1500,
		Items: []models.InvoiceItemInput{{ItemID: intPtr(1), Quantity: 25}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if inv.AdditionalCharges != 21500 || inv.TotalAmount != 141500 {
		t.Fatalf("created: charges=%d total=%d", inv.AdditionalCharges, inv.TotalAmount)
	}

	for i := range 2 {
		inv, err = svc.UpdateInvoice(ctx, inv.ID, echoInput(inv))
		if err != nil {
			t.Fatal(err)
		}
		if inv.AdditionalCharges != 21500 || inv.TotalAmount != 141500 {
			t.Fatalf("after update %d: charges=%d total=%d", i+1, inv.AdditionalCharges, inv.TotalAmount)
		}
	}

	in := echoInput(inv)
	in.Items[0].Quantity = 10
	inv, err = svc.UpdateInvoice(ctx, inv.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if inv.AdditionalCharges != 9500 || inv.TotalAmount != 129500 {
		t.Fatalf("after quantity change: charges=%d total=%d", inv.AdditionalCharges, inv.TotalAmount)
	}

	in = echoInput(inv)
	in.Items = nil
	inv, err = svc.UpdateInvoice(ctx, inv.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if inv.AdditionalCharges != 1500 || len(inv.Items) != 0 {
		t.Fatalf("after removing lines: charges=%d items=%d", inv.AdditionalCharges, len(inv.Items))
	}
}

func TestGenerateMonthlyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	room2 := 2
	store.tenants[2] = models.Tenant{ID: 2, FullName: "Ben", RoomID: &room2, Status: models.TenantActive}
	store.tenants[3] = models.Tenant{ID: 3, FullName: "Cara", Status: models.TenantActive}
	store.tenants[4] = models.Tenant{ID: 4, FullName: "Dev", RoomID: &room2, Status: models.TenantMovedOut}

	res, err := svc.GenerateMonthly(ctx, 2026, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Skipped != 0 {
		t.Fatalf("first run created=%d skipped=%d", res.Created, res.Skipped)
	}
	for _, inv := range store.invoices {
		if inv.TenantID == 2 {
			if inv.TotalAmount != 90000 || !inv.DueDate.Equal(time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("generated invoice = %+v", inv)
			}
		}
	}

	res, err = svc.GenerateMonthly(ctx, 2026, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 0 || res.Skipped != 2 {
		t.Fatalf("second run created=%d skipped=%d", res.Created, res.Skipped)
	}

	if _, err := svc.GenerateMonthly(ctx, 2026, 13); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("err = %v, want ErrInvalidPeriod", err)
	}
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	inv := createInvoice(t, svc)

	svc.now = func() time.Time { return inv.DueDate.AddDate(0, 0, 1) }
	n, err := svc.MarkOverdue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || store.invoices[inv.ID].Status != models.InvoiceOverdue {
		t.Fatalf("n=%d status=%s", n, store.invoices[inv.ID].Status)
	}

	res, err := svc.CreatePayment(ctx, pay(120000, inv.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.Status != models.InvoicePaid {
		t.Fatalf("status after full payment = %s", res.Invoice.Status)
	}
}

func TestNotFoundCause(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.CreatePayment(ctx, pay(100, 999), nil)
	if got := NotFoundCause(err); got != ErrInvoiceNotFound {
		t.Fatalf("NotFoundCause(%v) = %v, want ErrInvoiceNotFound", err, got)
	}
	wrapped := fmt.Errorf("lookup: %w", ErrItemNotFound)
	if got := NotFoundCause(wrapped); got != ErrItemNotFound {
		t.Fatalf("NotFoundCause(wrapped) = %v", got)
	}
	if got := NotFoundCause(ErrTotalBelowPaid); got != nil {
		t.Fatalf("NotFoundCause(ErrTotalBelowPaid) = %v, want nil", got)
	}
}

func intPtr(v int) *int { return &v }
