package billing

import (
	"context"
	"time"

	"github.com/satheeshds/roomrent/models"
)

// Store opens transactions over billing data.
type Store interface {
	// InTx runs fn inside one database transaction. It commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of reads and writes available inside a billing transaction.
// The ForUpdate reads lock the row until the transaction ends.
type Tx interface {
	InvoiceForUpdate(ctx context.Context, id int) (*models.Invoice, error)
	InsertInvoice(ctx context.Context, inv *models.Invoice) error
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id int) error
	ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []models.InvoiceItem) error
	NextInvoiceNumber(ctx context.Context, year, month int) (string, error)
	InvoiceExists(ctx context.Context, tenantID, year, month int) (bool, error)
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)

	PaymentForUpdate(ctx context.Context, id int) (*models.Payment, error)
	CountPayments(ctx context.Context, invoiceID int) (int, error)
	InsertPayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error
	DeletePayment(ctx context.Context, id int) error

	Tenant(ctx context.Context, id int) (*models.Tenant, error)
	Room(ctx context.Context, id int) (*models.Room, error)
	Item(ctx context.Context, id int) (*models.Item, error)
	ActiveTenancies(ctx context.Context) ([]Tenancy, error)
	Setting(ctx context.Context, key string) (string, bool, error)
}

// Tenancy is an active tenant occupying a room, the unit of monthly billing.
type Tenancy struct {
	TenantID    int
	TenantName  string
	RoomID      int
	MonthlyRent models.Money
}
