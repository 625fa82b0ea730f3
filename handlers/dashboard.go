package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/models"
)

type dashboardData struct {
	TotalRooms     int `json:"total_rooms"`
	OccupiedRooms  int `json:"occupied_rooms"`
	AvailableRooms int `json:"available_rooms"`
	ActiveTenants  int `json:"active_tenants"`

	OccupancyRate float64 `json:"occupancy_rate"`

	MonthRevenue       models.Money `json:"month_revenue"`
	MonthInvoiced      models.Money `json:"month_invoiced"`
	TotalOutstanding   models.Money `json:"total_outstanding"`
	OverdueInvoices    int          `json:"overdue_invoices"`
	UnverifiedPayments int          `json:"unverified_payments"`

	RecentPayments []models.Payment `json:"recent_payments"`
}

// GetDashboard retrieves dashboard summary statistics
// @Summary      Get dashboard
// @Description  Get occupancy, this month's revenue, outstanding balances and recent payments.
// @Tags         reports
// @Produce      json
// @Success      200  {object}  Response{data=dashboardData}
// @Router       /reports/dashboard [get]
// @Security     BearerAuth
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var d dashboardData
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	err := DB.QueryRow(ctx, `SELECT COUNT(*)::INT,
		COUNT(*) FILTER (WHERE status = 'Occupied')::INT,
		COUNT(*) FILTER (WHERE status = 'Available')::INT
		FROM rooms`).Scan(&d.TotalRooms, &d.OccupiedRooms, &d.AvailableRooms)
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	if d.TotalRooms > 0 {
		d.OccupancyRate = float64(d.OccupiedRooms) / float64(d.TotalRooms) * 100
	}

	queries := []struct {
		sql  string
		args []any
		dest any
	}{
		{"SELECT COUNT(*)::INT FROM tenants WHERE status = 'Active'", nil, &d.ActiveTenants},
		{"SELECT COALESCE(SUM(amount), 0)::BIGINT FROM payments WHERE payment_date >= $1", []any{monthStart}, &d.MonthRevenue},
		{`SELECT COALESCE(SUM(total_amount), 0)::BIGINT FROM invoices
			WHERE billing_year = $1 AND billing_month = $2 AND status <> 'Cancelled'`,
			[]any{now.Year(), int(now.Month())}, &d.MonthInvoiced},
		{"SELECT COALESCE(SUM(remaining_balance), 0)::BIGINT FROM invoices WHERE status <> 'Cancelled'", nil, &d.TotalOutstanding},
		{"SELECT COUNT(*)::INT FROM invoices WHERE status = 'Overdue'", nil, &d.OverdueInvoices},
		{"SELECT COUNT(*)::INT FROM payments WHERE NOT is_verified", nil, &d.UnverifiedPayments},
	}
	for _, q := range queries {
		if err := DB.QueryRow(ctx, q.sql, q.args...).Scan(q.dest); err != nil {
			writeServiceError(w, r, "report", err)
			return
		}
	}

	// Recent 5 payments
	rows, err := DB.Query(ctx, billing.PaymentSelectQuery+" ORDER BY p.created_at DESC LIMIT 5")
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	defer rows.Close()
	d.RecentPayments = []models.Payment{}
	for rows.Next() {
		p, err := billing.ScanPayment(rows)
		if err != nil {
			writeServiceError(w, r, "report", err)
			return
		}
		d.RecentPayments = append(d.RecentPayments, p)
	}

	writeJSON(w, http.StatusOK, d)
}

type monthlyRevenue struct {
	Month     int          `json:"month"`
	Invoiced  models.Money `json:"invoiced"`
	Collected models.Money `json:"collected"`
	Invoices  int          `json:"invoices"`
	Payments  int          `json:"payments"`
}

// GetMonthlyRevenue reports invoiced and collected amounts per month
// @Summary      Monthly revenue
// @Description  Invoiced totals (by billing month) and collected payments (by payment date) for each month of a year.
// @Tags         reports
// @Produce      json
// @Param        year  query     int  false  "Year (default: current)"
// @Success      200   {object}  Response{data=[]monthlyRevenue}
// @Failure      400   {object}  Response
// @Router       /reports/monthly-revenue [get]
// @Security     BearerAuth
func GetMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if y := r.URL.Query().Get("year"); y != "" {
		v, err := strconv.Atoi(y)
		if err != nil || v < 2000 || v > 9999 {
			writeError(w, http.StatusBadRequest, "year is out of range")
			return
		}
		year = v
	}

	rows, err := DB.Query(r.Context(), `SELECT m,
		COALESCE((SELECT SUM(total_amount) FROM invoices
			WHERE billing_year = $1 AND billing_month = m AND status <> 'Cancelled'), 0)::BIGINT,
		COALESCE((SELECT SUM(amount) FROM payments
			WHERE EXTRACT(YEAR FROM payment_date) = $1 AND EXTRACT(MONTH FROM payment_date) = m), 0)::BIGINT,
		(SELECT COUNT(*) FROM invoices WHERE billing_year = $1 AND billing_month = m AND status <> 'Cancelled')::INT,
		(SELECT COUNT(*) FROM payments
			WHERE EXTRACT(YEAR FROM payment_date) = $1 AND EXTRACT(MONTH FROM payment_date) = m)::INT
		FROM generate_series(1, 12) AS m
		ORDER BY m`, year)
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	defer rows.Close()

	out := make([]monthlyRevenue, 0, 12)
	for rows.Next() {
		var m monthlyRevenue
		if err := rows.Scan(&m.Month, &m.Invoiced, &m.Collected, &m.Invoices, &m.Payments); err != nil {
			writeServiceError(w, r, "report", err)
			return
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, out)
}

type outstandingTenant struct {
	TenantID     int          `json:"tenant_id"`
	TenantName   string       `json:"tenant_name"`
	RoomNumber   *string      `json:"room_number"`
	OpenInvoices int          `json:"open_invoices"`
	Outstanding  models.Money `json:"outstanding"`
	OldestDue    time.Time    `json:"oldest_due"`
}

// GetOutstanding lists tenants with unpaid balances
// @Summary      Outstanding balances
// @Description  Tenants with open invoices, largest balance first.
// @Tags         reports
// @Produce      json
// @Success      200  {object}  Response{data=[]outstandingTenant}
// @Router       /reports/outstanding [get]
// @Security     BearerAuth
func GetOutstanding(w http.ResponseWriter, r *http.Request) {
	rows, err := DB.Query(r.Context(), `SELECT t.id, t.full_name, r.room_number,
		COUNT(i.id)::INT, SUM(i.remaining_balance)::BIGINT, MIN(i.due_date)
		FROM invoices i
		JOIN tenants t ON i.tenant_id = t.id
		LEFT JOIN rooms r ON t.room_id = r.id
		WHERE i.remaining_balance > 0 AND i.status <> 'Cancelled'
		GROUP BY t.id, t.full_name, r.room_number
		ORDER BY SUM(i.remaining_balance) DESC`)
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	defer rows.Close()

	out := []outstandingTenant{}
	for rows.Next() {
		var o outstandingTenant
		if err := rows.Scan(&o.TenantID, &o.TenantName, &o.RoomNumber, &o.OpenInvoices, &o.Outstanding, &o.OldestDue); err != nil {
			writeServiceError(w, r, "report", err)
			return
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}

type occupancyRow struct {
	RoomID        int          `json:"room_id"`
	RoomNumber    string       `json:"room_number"`
	Floor         int          `json:"floor"`
	Status        string       `json:"status"`
	Capacity      int          `json:"capacity"`
	ActiveTenants int          `json:"active_tenants"`
	MonthlyRent   models.Money `json:"monthly_rent"`
}

// GetOccupancy reports room occupancy
// @Summary      Occupancy
// @Tags         reports
// @Produce      json
// @Success      200  {object}  Response{data=[]occupancyRow}
// @Router       /reports/occupancy [get]
// @Security     BearerAuth
func GetOccupancy(w http.ResponseWriter, r *http.Request) {
	rows, err := DB.Query(r.Context(), `SELECT r.id, r.room_number, r.floor, r.status, r.capacity,
		(SELECT COUNT(*) FROM tenants t WHERE t.room_id = r.id AND t.status = 'Active')::INT, r.monthly_rent
		FROM rooms r ORDER BY r.floor, r.room_number`)
	if err != nil {
		writeServiceError(w, r, "report", err)
		return
	}
	defer rows.Close()

	out := []occupancyRow{}
	for rows.Next() {
		var o occupancyRow
		if err := rows.Scan(&o.RoomID, &o.RoomNumber, &o.Floor, &o.Status, &o.Capacity, &o.ActiveTenants, &o.MonthlyRent); err != nil {
			writeServiceError(w, r, "report", err)
			return
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}

// ExportPaymentsCSV streams payments as CSV
// @Summary      Export payments
// @Description  Download payments as CSV. Accepts the same filters as the payment list.
// @Tags         reports
// @Produce      text/csv
// @Param        from  query     string  false  "Payment date from (YYYY-MM-DD)"
// @Param        to    query     string  false  "Payment date to (YYYY-MM-DD)"
// @Success      200   {file}    file
// @Router       /reports/payments/export [get]
// @Security     BearerAuth
func ExportPaymentsCSV(w http.ResponseWriter, r *http.Request) {
	f, ok := paymentFilter(w, r)
	if !ok {
		return
	}
	payments, err := listPayments(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payments-%s.csv"`, time.Now().Format("20060102")))
	if err := writePaymentsCSV(w, payments); err != nil {
		slog.Error("writing payments csv", "error", err)
	}
}

func writePaymentsCSV(w io.Writer, payments []models.Payment) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "payment_date", "invoice_number", "tenant", "method", "reference", "amount", "verified"})
	for _, p := range payments {
		cw.Write([]string{
			strconv.Itoa(p.ID),
			p.PaymentDate.Format(models.DateLayout),
			deref(p.InvoiceNumber),
			deref(p.TenantName),
			p.Method,
			deref(p.Reference),
			p.Amount.Decimal().StringFixed(2),
			strconv.FormatBool(p.IsVerified),
		})
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
