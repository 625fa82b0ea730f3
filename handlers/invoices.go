package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/models"
	"github.com/satheeshds/roomrent/pdf"
)

func getInvoiceByID(ctx context.Context, id int) (models.Invoice, error) {
	inv, err := billing.ScanInvoice(DB.QueryRow(ctx, billing.InvoiceSelectQuery+" WHERE i.id = $1", id))
	if err != nil {
		return inv, err
	}
	rows, err := DB.Query(ctx, `SELECT id, invoice_id, item_id, description, quantity, unit_price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return inv, err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Amount); err != nil {
			return inv, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, rows.Err()
}

func listPayments(ctx context.Context, f filter) ([]models.Payment, error) {
	rows, err := DB.Query(ctx, billing.PaymentSelectQuery+f.where()+" ORDER BY p.payment_date DESC, p.id DESC", f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		p, err := billing.ScanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListInvoices lists invoices
// @Summary      List invoices
// @Description  Get invoices with tenant and room, newest first.
// @Tags         invoices
// @Produce      json
// @Param        status     query     string  false  "Filter by status"
// @Param        tenant_id  query     int     false  "Filter by tenant"
// @Param        room_id    query     int     false  "Filter by room"
// @Param        year       query     int     false  "Filter by billing year"
// @Param        month      query     int     false  "Filter by billing month"
// @Param        from       query     string  false  "Issue date from (YYYY-MM-DD)"
// @Param        to         query     string  false  "Issue date to (YYYY-MM-DD)"
// @Param        search     query     string  false  "Search by invoice number, notes or tenant name"
// @Success      200        {object}  Response{data=[]models.Invoice}
// @Router       /invoices [get]
// @Security     BearerAuth
func ListInvoices(w http.ResponseWriter, r *http.Request) {
	var f filter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		f.add("i.status = ?", s)
	}
	if tid := q.Get("tenant_id"); tid != "" {
		f.add("i.tenant_id = ?::INT", tid)
	}
	if rid := q.Get("room_id"); rid != "" {
		f.add("i.room_id = ?::INT", rid)
	}
	if y := q.Get("year"); y != "" {
		f.add("i.billing_year = ?::INT", y)
	}
	if m := q.Get("month"); m != "" {
		f.add("i.billing_month = ?::INT", m)
	}
	if from := q.Get("from"); from != "" {
		f.add("i.issue_date >= ?::DATE", from)
	}
	if to := q.Get("to"); to != "" {
		f.add("i.issue_date <= ?::DATE", to)
	}
	if search := q.Get("search"); search != "" {
		s := "%" + search + "%"
		f.add("(i.invoice_number ILIKE ? OR i.notes ILIKE ? OR t.full_name ILIKE ?)", s, s, s)
	}

	rows, err := DB.Query(r.Context(), billing.InvoiceSelectQuery+f.where()+" ORDER BY i.issue_date DESC, i.id DESC", f.args...)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := billing.ScanInvoice(rows)
		if err != nil {
			writeServiceError(w, r, "invoice", err)
			return
		}
		invoices = append(invoices, inv)
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice retrieves a single invoice by ID
// @Summary      Get invoice
// @Description  Get an invoice with its lines and current balance.
// @Tags         invoices
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  Response{data=models.Invoice}
// @Failure      404  {object}  Response
// @Router       /invoices/{id} [get]
// @Security     BearerAuth
func GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	inv, err := getInvoiceByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// CreateInvoice creates a new invoice
// @Summary      Create invoice
// @Description  Issue an invoice. Room and rent default to the tenant's current room; line items are added to the additional charges.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice  body      models.InvoiceInput  true  "Invoice contents"
// @Success      201      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Router       /invoices [post]
// @Security     BearerAuth
func CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoiceInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	inv, err := Billing.CreateInvoice(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	created, err := getInvoiceByID(r.Context(), inv.ID)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateInvoice updates an existing invoice
// @Summary      Update invoice
// @Description  Update an invoice's charges and dates. additional_charges is read as returned by GET (current lines included); the lines sent replace the current ones. The new total may not fall below the amount already paid.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      int                  true  "Invoice ID"
// @Param        invoice  body      models.InvoiceInput  true  "Updated invoice contents"
// @Success      200      {object}  Response{data=models.Invoice}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Router       /invoices/{id} [put]
// @Security     BearerAuth
func UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.InvoiceInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := Billing.UpdateInvoice(r.Context(), id, input); err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	inv, err := getInvoiceByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DeleteInvoice deletes an invoice
// @Summary      Delete invoice
// @Description  Remove an invoice that has no payments.
// @Tags         invoices
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      404  {object}  Response
// @Router       /invoices/{id} [delete]
// @Security     BearerAuth
func DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if err := Billing.DeleteInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeMessage(w, http.StatusOK, "invoice deleted")
}

// CancelInvoice cancels an invoice
// @Summary      Cancel invoice
// @Description  Cancel an invoice that has no payments. Cancelled invoices accept no further payments.
// @Tags         invoices
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  Response{data=models.Invoice}
// @Failure      400  {object}  Response
// @Failure      404  {object}  Response
// @Router       /invoices/{id}/cancel [post]
// @Security     BearerAuth
func CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := Billing.CancelInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	inv, err := getInvoiceByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// GetInvoicePayments lists the payments recorded against an invoice
// @Summary      Get invoice payments
// @Tags         invoices
// @Produce      json
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {object}  Response{data=[]models.Payment}
// @Router       /invoices/{id}/payments [get]
// @Security     BearerAuth
func GetInvoicePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var f filter
	f.add("p.invoice_id = ?", id)
	payments, err := listPayments(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// ExportInvoicePDF renders an invoice as PDF
// @Summary      Export invoice PDF
// @Tags         invoices
// @Produce      application/pdf
// @Param        id   path      int  true  "Invoice ID"
// @Success      200  {file}    file
// @Failure      404  {object}  Response
// @Router       /invoices/{id}/export-pdf [get]
// @Security     BearerAuth
func ExportInvoicePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	inv, err := getInvoiceByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	var f filter
	f.add("p.invoice_id = ?", id)
	payments, err := listPayments(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	settings, err := settingValues(r.Context())
	if err != nil {
		writeServiceError(w, r, "setting", err)
		return
	}
	company := pdf.Company{
		Name:     settings[models.SettingCompanyName],
		Address:  settings[models.SettingCompanyAddress],
		Phone:    settings[models.SettingCompanyPhone],
		Currency: settings[models.SettingCurrency],
	}

	var buf bytes.Buffer
	if err := pdf.RenderInvoice(&buf, inv, payments, company); err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, inv.InvoiceNumber))
	w.Write(buf.Bytes())
}

// GenerateMonthlyInvoices issues invoices for every active tenancy
// @Summary      Generate monthly invoices
// @Description  Create one invoice per active tenant with a room for the given month (default: current). Existing invoices are skipped.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        period  body      models.GenerateMonthlyInput  false  "Billing period"
// @Success      200     {object}  Response{data=billing.GenerationResult}
// @Failure      400     {object}  Response
// @Router       /invoices/generate-monthly [post]
// @Security     BearerAuth
func GenerateMonthlyInvoices(w http.ResponseWriter, r *http.Request) {
	var input models.GenerateMonthlyInput
	if !decodeOptionalJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(time.Now()); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	res, err := Billing.GenerateMonthly(r.Context(), input.Year, input.Month)
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// MarkOverdueInvoices flags open invoices past their due date
// @Summary      Mark overdue invoices
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  Response{data=map[string]int64}
// @Router       /invoices/mark-overdue [post]
// @Security     BearerAuth
func MarkOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	n, err := Billing.MarkOverdue(r.Context())
	if err != nil {
		writeServiceError(w, r, "invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
