package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/satheeshds/roomrent/auth"
	"github.com/satheeshds/roomrent/models"
)

// newTestRouter returns a router with token issuing configured. None of the
// requests made against it reach the database.
func newTestRouter(t *testing.T, loginBurst int) http.Handler {
	t.Helper()
	return newTestRouterProxy(t, loginBurst, false)
}

func newTestRouterProxy(t *testing.T, loginBurst int, trustProxy bool) http.Handler {
	t.Helper()
	Tokens = auth.NewIssuer("test-secret", time.Hour, "roomrent")
	return NewRouter(NewLoginLimiter(60, loginBurst), []string{"*"}, trustProxy)
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, _, err := Tokens.Issue(1, strings.ToLower(role), role)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestRouterRequiresToken(t *testing.T) {
	router := newTestRouter(t, 5)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic YWRtaW46YWRtaW4="},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRouterRoleGating(t *testing.T) {
	router := newTestRouter(t, 5)
	tests := []struct {
		role   string
		method string
		path   string
	}{
		{models.RoleStaff, http.MethodPost, "/api/rooms"},
		{models.RoleStaff, http.MethodDelete, "/api/tenants/1"},
		{models.RoleStaff, http.MethodPut, "/api/items/1"},
		{models.RoleStaff, http.MethodPost, "/api/invoices/generate-monthly"},
		{models.RoleStaff, http.MethodPost, "/api/invoices/1/cancel"},
		{models.RoleStaff, http.MethodPost, "/api/payments/1/verify"},
		{models.RoleStaff, http.MethodDelete, "/api/payments/1"},
		{models.RoleStaff, http.MethodGet, "/api/reports/dashboard"},
		{models.RoleStaff, http.MethodGet, "/api/systemmanagement/settings"},
		{models.RoleManager, http.MethodGet, "/api/users"},
		{models.RoleManager, http.MethodPost, "/api/users/2/reset-password"},
		{models.RoleManager, http.MethodPut, "/api/systemmanagement/settings/billing.due_days"},
		{models.RoleManager, http.MethodGet, "/api/systemmanagement/info"},
		{models.RoleManager, http.MethodPost, "/api/database/export"},
		{models.RoleManager, http.MethodPost, "/api/localization/languages"},
		{models.RoleManager, http.MethodPut, "/api/localization/fr/translations"},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			req.Header.Set("Authorization", bearer(t, tt.role))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success || resp.Message != "forbidden" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestRouterValidatesBeforeDatabase(t *testing.T) {
	router := newTestRouter(t, 5)
	tests := []struct {
		name   string
		role   string
		method string
		path   string
		body   string
	}{
		{"bad id", models.RoleStaff, http.MethodGet, "/api/rooms/abc", ""},
		{"zero id", models.RoleStaff, http.MethodGet, "/api/payments/0", ""},
		{"malformed room", models.RoleManager, http.MethodPost, "/api/rooms", "{"},
		{"payment without invoice", models.RoleStaff, http.MethodPost, "/api/payments", `{"amount": "10.00", "method": "Cash"}`},
		{"payment bad amount", models.RoleStaff, http.MethodPost, "/api/payments", `{"invoice_id": 1, "amount": "10.001", "method": "Cash"}`},
		{"generate bad month", models.RoleManager, http.MethodPost, "/api/invoices/generate-monthly", `{"year": 2026, "month": 13}`},
		{"short password", models.RoleStaff, http.MethodPost, "/api/auth/change-password", `{"current_password": "old-password", "new_password": "short"}`},
		{"user bad role", models.RoleAdmin, http.MethodPost, "/api/users", `{"username": "sam", "password": "long-enough", "role": "Owner"}`},
		{"setting bad due days", models.RoleAdmin, http.MethodPut, "/api/systemmanagement/settings/billing.due_days", `{"value": "soon"}`},
		{"language bad code", models.RoleAdmin, http.MethodPost, "/api/localization/languages", `{"code": "French", "name": "French"}`},
		{"empty translations", models.RoleAdmin, http.MethodPut, "/api/localization/fr/translations", `{"translations": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Authorization", bearer(t, tt.role))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouterLoginRateLimit(t *testing.T) {
	router := newTestRouter(t, 1)
	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": ""}`))
		req.RemoteAddr = "192.0.2.10:51000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := login(); code != http.StatusBadRequest {
		t.Fatalf("first attempt status = %d, want 400", code)
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt status = %d, want 429", code)
	}
}

func TestRouterLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	router := newTestRouter(t, 1)
	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": ""}`))
		req.RemoteAddr = "192.0.2.10:51000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		want := http.StatusTooManyRequests
		if i == 1 {
			want = http.StatusBadRequest
		}
		if rec.Code != want {
			t.Fatalf("attempt %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestRouterLoginRateLimitBehindProxy(t *testing.T) {
	router := newTestRouterProxy(t, 1, true)
	login := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username": ""}`))
		req.RemoteAddr = "192.0.2.1:443"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := login("203.0.113.5"); code != http.StatusBadRequest {
		t.Fatalf("first client status = %d, want 400", code)
	}
	if code := login("203.0.113.6"); code != http.StatusBadRequest {
		t.Fatalf("second client status = %d, want 400", code)
	}
	if code := login("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client status = %d, want 429", code)
	}
}
