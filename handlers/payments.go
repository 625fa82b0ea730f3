package handlers

import (
	"net/http"
	"time"

	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/models"
)

// ListPayments lists payments
// @Summary      List payments
// @Description  Get payments with their invoice number and tenant, newest first.
// @Tags         payments
// @Produce      json
// @Param        invoice_id  query     int     false  "Filter by invoice"
// @Param        tenant_id   query     int     false  "Filter by tenant"
// @Param        method      query     string  false  "Filter by payment method"
// @Param        verified    query     bool    false  "Filter by verification state"
// @Param        from        query     string  false  "Payment date from (YYYY-MM-DD)"
// @Param        to          query     string  false  "Payment date to (YYYY-MM-DD)"
// @Success      200         {object}  Response{data=[]models.Payment}
// @Router       /payments [get]
// @Security     BearerAuth
func ListPayments(w http.ResponseWriter, r *http.Request) {
	f, ok := paymentFilter(w, r)
	if !ok {
		return
	}
	payments, err := listPayments(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// paymentFilter builds the shared payment filters used by the list and the CSV export.
func paymentFilter(w http.ResponseWriter, r *http.Request) (filter, bool) {
	var f filter
	q := r.URL.Query()
	if iid := q.Get("invoice_id"); iid != "" {
		f.add("p.invoice_id = ?::INT", iid)
	}
	if tid := q.Get("tenant_id"); tid != "" {
		f.add("i.tenant_id = ?::INT", tid)
	}
	if m := q.Get("method"); m != "" {
		f.add("p.method = ?", m)
	}
	if v := q.Get("verified"); v != "" {
		f.add("p.is_verified = ?::BOOLEAN", v)
	}
	for _, bound := range []struct{ param, cond string }{
		{"from", "p.payment_date >= ?"},
		{"to", "p.payment_date <= ?"},
	} {
		s := q.Get(bound.param)
		d, err := models.ParseDate(&s)
		if err != nil {
			writeError(w, http.StatusBadRequest, bound.param+": "+err.Error())
			return f, false
		}
		if d != nil {
			f.add(bound.cond, *d)
		}
	}
	return f, true
}

// GetPayment retrieves a single payment
// @Summary      Get payment
// @Tags         payments
// @Produce      json
// @Param        id   path      int  true  "Payment ID"
// @Success      200  {object}  Response{data=models.Payment}
// @Failure      404  {object}  Response
// @Router       /payments/{id} [get]
// @Security     BearerAuth
func GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	p, err := billing.ScanPayment(DB.QueryRow(r.Context(), billing.PaymentSelectQuery+" WHERE p.id = $1", id))
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePayment records a payment against an invoice
// @Summary      Create payment
// @Description  Record a payment. The amount must be positive and may not exceed the invoice's remaining balance. Returns the payment and the updated invoice.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        payment  body      models.PaymentInput  true  "Payment contents"
// @Success      201      {object}  Response{data=billing.PaymentResult}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Router       /payments [post]
// @Security     BearerAuth
func CreatePayment(w http.ResponseWriter, r *http.Request) {
	var input models.PaymentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(true, time.Now()); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := Billing.CreatePayment(r.Context(), input, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// UpdatePayment changes an unverified payment
// @Summary      Update payment
// @Description  Change an unverified payment. The new amount is checked against the balance with the old amount reversed.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id       path      int                  true  "Payment ID"
// @Param        payment  body      models.PaymentInput  true  "Updated payment contents"
// @Success      200      {object}  Response{data=billing.PaymentResult}
// @Failure      400      {object}  Response
// @Failure      404      {object}  Response
// @Router       /payments/{id} [put]
// @Security     BearerAuth
func UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.PaymentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if msg := input.Validate(false, time.Now()); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := Billing.UpdatePayment(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeletePayment removes an unverified payment
// @Summary      Delete payment
// @Description  Remove an unverified payment and reverse it on its invoice. Returns the updated invoice.
// @Tags         payments
// @Produce      json
// @Param        id   path      int  true  "Payment ID"
// @Success      200  {object}  Response{data=models.Invoice}
// @Failure      400  {object}  Response
// @Failure      404  {object}  Response
// @Router       /payments/{id} [delete]
// @Security     BearerAuth
func DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	inv, err := Billing.DeletePayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// VerifyPayment sets or clears a payment's verified flag
// @Summary      Verify payment
// @Description  Mark a payment verified (default) or unverified. Verified payments cannot be changed or deleted.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id    path      int                 true   "Payment ID"
// @Param        body  body      models.VerifyInput  false  "Verification flag"
// @Success      200   {object}  Response{data=models.Payment}
// @Failure      404   {object}  Response
// @Router       /payments/{id}/verify [post]
// @Security     BearerAuth
func VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var input models.VerifyInput
	if !decodeOptionalJSON(w, r, &input) {
		return
	}
	input.Validate()

	p, err := Billing.VerifyPayment(r.Context(), id, *input.IsVerified, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, "payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
