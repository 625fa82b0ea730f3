package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in clear")
	}
	if !CheckPasswordHash("correct horse", hash) {
		t.Error("valid password rejected")
	}
	if CheckPasswordHash("wrong horse", hash) {
		t.Error("invalid password accepted")
	}
}

func TestIssueAndParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, "roomrent")
	token, expires, err := iss.Issue(42, "alice", "Manager")
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expiry %v not in the future", expires)
	}

	claims, err := iss.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != "Manager" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token id missing")
	}
	if !claims.HasRole("Admin", "Manager") || claims.HasRole("Admin") {
		t.Error("HasRole mismatch")
	}
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, "roomrent")
	token, _, err := iss.Issue(1, "bob", "Staff")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
	}{
		{"wrong secret", NewIssuer("other", time.Hour, "roomrent"), token},
		{"wrong issuer", NewIssuer("secret", time.Hour, "someone-else"), token},
		{"garbage", iss, "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.issuer.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestParseExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Minute, "roomrent")
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := iss.Issue(1, "bob", "Staff")
	if err != nil {
		t.Fatal(err)
	}
	iss.now = time.Now
	if _, err := iss.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestClaimsContext(t *testing.T) {
	if ClaimsFrom(context.Background()) != nil {
		t.Fatal("claims on empty context")
	}
	c := &Claims{UserID: 3, Role: "Admin"}
	if got := ClaimsFrom(WithClaims(context.Background(), c)); got != c {
		t.Fatalf("got %+v", got)
	}
}
