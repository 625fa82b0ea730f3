// Package pdf renders printable invoices.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/satheeshds/roomrent/models"
)

// Company is the letterhead printed on every invoice.
type Company struct {
	Name     string
	Address  string
	Phone    string
	Currency string
}

const (
	pageWidth = 180.0
	lineH     = 6.0
)

// RenderInvoice writes inv, its lines and payments as an A4 PDF to w.
func RenderInvoice(w io.Writer, inv models.Invoice, payments []models.Payment, co Company) error {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(inv.InvoiceNumber, true)
	doc.SetCreator(co.Name, true)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	money := func(m models.Money) string {
		return strings.TrimSpace(co.Currency + " " + m.Decimal().StringFixed(2))
	}

	doc.AddPage()

	// Letterhead
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(pageWidth/2, 8, tr(co.Name), "", 0, "L", false, 0, "")
	doc.CellFormat(pageWidth/2, 8, "INVOICE", "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, line := range []string{co.Address, co.Phone} {
		if line != "" {
			doc.CellFormat(pageWidth, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	doc.Ln(6)

	// Header block
	header := [][2]string{
		{"Invoice number", inv.InvoiceNumber},
		{"Billing period", fmt.Sprintf("%04d-%02d", inv.BillingYear, inv.BillingMonth)},
		{"Issue date", inv.IssueDate.Format(models.DateLayout)},
		{"Due date", inv.DueDate.Format(models.DateLayout)},
		{"Tenant", deref(inv.TenantName)},
		{"Room", deref(inv.RoomNumber)},
		{"Status", inv.Status},
	}
	for _, h := range header {
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(40, lineH, h[0], "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		doc.CellFormat(pageWidth-40, lineH, tr(h[1]), "", 1, "L", false, 0, "")
	}
	doc.Ln(4)

	// Lines
	cols := []float64{90, 20, 35, 35}
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(230, 230, 230)
	for i, title := range []string{"Description", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		doc.CellFormat(cols[i], 7, title, "1", 0, align, true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Helvetica", "", 10)
	row := func(desc, qty, unit, amount string) {
		doc.CellFormat(cols[0], lineH, tr(desc), "1", 0, "L", false, 0, "")
		doc.CellFormat(cols[1], lineH, qty, "1", 0, "R", false, 0, "")
		doc.CellFormat(cols[2], lineH, unit, "1", 0, "R", false, 0, "")
		doc.CellFormat(cols[3], lineH, amount, "1", 1, "R", false, 0, "")
	}
	row("Rent", "1", money(inv.RentAmount), money(inv.RentAmount))
	var itemized models.Money
	for _, it := range inv.Items {
		row(it.Description, fmt.Sprint(it.Quantity), money(it.UnitPrice), money(it.Amount))
		itemized += it.Amount
	}
	if other := inv.AdditionalCharges - itemized; other != 0 {
		row("Other charges", "", "", money(other))
	}
	doc.Ln(2)

	// Totals
	totals := [][2]string{
		{"Discount", "-" + money(inv.Discount)},
		{"Total", money(inv.TotalAmount)},
		{"Paid", money(inv.PaidAmount)},
		{"Balance due", money(inv.RemainingBalance)},
	}
	for i, t := range totals {
		style := ""
		if i == len(totals)-1 {
			style = "B"
		}
		doc.SetFont("Helvetica", style, 10)
		doc.CellFormat(cols[0]+cols[1]+cols[2], lineH, t[0], "", 0, "R", false, 0, "")
		doc.CellFormat(cols[3], lineH, t[1], "", 1, "R", false, 0, "")
	}

	if len(payments) > 0 {
		doc.Ln(6)
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(pageWidth, 7, "Payments", "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
		for _, p := range payments {
			ref := p.Method
			if p.Reference != nil && *p.Reference != "" {
				ref += " (" + *p.Reference + ")"
			}
			doc.CellFormat(35, lineH, p.PaymentDate.Format(models.DateLayout), "", 0, "L", false, 0, "")
			doc.CellFormat(110, lineH, tr(ref), "", 0, "L", false, 0, "")
			doc.CellFormat(35, lineH, money(p.Amount), "", 1, "R", false, 0, "")
		}
	}

	if inv.Notes != nil && *inv.Notes != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "I", 9)
		doc.MultiCell(pageWidth, 5, tr(*inv.Notes), "", "L", false)
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("rendering invoice %s: %w", inv.InvoiceNumber, err)
	}
	return doc.Output(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
