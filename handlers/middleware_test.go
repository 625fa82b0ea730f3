package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/satheeshds/roomrent/auth"
	"github.com/satheeshds/roomrent/billing"
	"github.com/satheeshds/roomrent/models"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestFilter(t *testing.T) {
	var f filter
	if got := f.where(); got != "" {
		t.Fatalf("empty filter where() = %q", got)
	}
	f.add("status = ?", "Issued")
	f.add("due_date BETWEEN ? AND ?", "2026-01-01", "2026-01-31")
	want := " WHERE status = $1 AND due_date BETWEEN $2 AND $3"
	if got := f.where(); got != want {
		t.Errorf("where() = %q, want %q", got, want)
	}
	if len(f.args) != 3 || f.args[0] != "Issued" {
		t.Errorf("args = %v", f.args)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"billing not found", fmt.Errorf("%w: id 7", billing.ErrInvoiceNotFound), http.StatusNotFound, "invoice not found"},
		{"no rows", pgx.ErrNoRows, http.StatusNotFound, "room not found"},
		{"room full", errRoomFull, http.StatusBadRequest, errRoomFull.Error()},
		{"exceeds balance", fmt.Errorf("paying: %w", billing.ErrAmountExceedsBalance), http.StatusBadRequest, billing.ErrAmountExceedsBalance.Error()},
		{"last admin", errLastAdmin, http.StatusBadRequest, errLastAdmin.Error()},
		{"duplicate invoice", billing.ErrDuplicateInvoice, http.StatusConflict, "room already exists"},
		{"unique violation", &pgconn.PgError{Code: "23505"}, http.StatusConflict, "room already exists"},
		{"fk violation", &pgconn.PgError{Code: "23503", ConstraintName: "tenants_room_id_fkey"}, http.StatusConflict, "room is still referenced by other records"},
		{"check violation", &pgconn.PgError{Code: "23514"}, http.StatusBadRequest, "value rejected by constraint"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/rooms/1", nil)
			writeServiceError(rec, req, "room", tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("success = true")
			}
			if resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
		})
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var in models.VerifyInput
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if !decodeOptionalJSON(rec, req, &in) {
		t.Fatal("empty body rejected")
	}
	in.Validate()
	if in.IsVerified == nil || !*in.IsVerified {
		t.Error("empty verify body should default to verified")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad"))
	if decodeOptionalJSON(rec, req, &in) {
		t.Fatal("malformed body accepted")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginLimiterAllow(t *testing.T) {
	l := NewLoginLimiter(60, 2)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !l.allow("a", now) || !l.allow("a", now) {
		t.Fatal("burst not honoured")
	}
	if l.allow("a", now) {
		t.Error("third attempt within the same instant allowed")
	}
	if !l.allow("b", now) {
		t.Error("limits leaked between clients")
	}
	if !l.allow("a", now.Add(time.Second)) {
		t.Error("token not refilled after one second at 60/min")
	}
}

func TestLoginLimiterPrune(t *testing.T) {
	l := NewLoginLimiter(10, 1)
	l.allow("old", time.Now().Add(-time.Hour))
	l.allow("new", time.Now())
	l.Prune(10 * time.Minute)
	if _, ok := l.visitors["old"]; ok {
		t.Error("idle client not pruned")
	}
	if _, ok := l.visitors["new"]; !ok {
		t.Error("recent client pruned")
	}
}

func TestWritePaymentsCSV(t *testing.T) {
	inv, tenant := "INV-202603-00001", "Ada Lovelace"
	payments := []models.Payment{{
		ID:            3,
		InvoiceID:     1,
		Amount:        models.Money(50000),
		Method:        "Cash",
		PaymentDate:   time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		IsVerified:    true,
		InvoiceNumber: &inv,
		TenantName:    &tenant,
	}}
	var buf bytes.Buffer
	if err := writePaymentsCSV(&buf, payments); err != nil {
		t.Fatal(err)
	}
	want := "id,payment_date,invoice_number,tenant,method,reference,amount,verified\n" +
		"3,2026-03-05,INV-202603-00001,Ada Lovelace,Cash,,500.00,true\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestAuthenticateStoresClaims(t *testing.T) {
	Tokens = auth.NewIssuer("test-secret", time.Hour, "roomrent")
	token, _, err := Tokens.Issue(4, "maria", models.RoleManager)
	if err != nil {
		t.Fatal(err)
	}

	var got *int
	h := Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = currentUserID(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || *got != 4 {
		t.Fatalf("currentUserID = %v, want 4", got)
	}
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	h := RequireRoles(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without claims")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
