package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nhle/crafthub/internal/model"
)

var secret = []byte("test-secret")

func sign(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "user-1",
		"name":  "Ana",
		"email": "ana@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifyHMAC(t *testing.T) {
	v := NewHMACVerifier(secret, "", "")
	id, err := v.Verify(sign(t, secret, validClaims()))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "user-1" || id.DisplayName != "Ana" || id.Email != "ana@example.com" {
		t.Errorf("identity = %+v", id)
	}
	if id.Author() != "Ana" {
		t.Errorf("Author = %q", id.Author())
	}
	if s := id.Scope("p1"); s.UserID != "user-1" || s.ProjectID != "p1" {
		t.Errorf("Scope = %+v", s)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewHMACVerifier(secret, "crafthub", "https://issuer.example")

	withAud := func(mutate func(jwt.MapClaims)) jwt.MapClaims {
		c := validClaims()
		c["aud"] = "crafthub"
		c["iss"] = "https://issuer.example"
		mutate(c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, []byte("other"), withAud(func(jwt.MapClaims) {}))},
		{"expired", sign(t, secret, withAud(func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }))},
		{"no exp", sign(t, secret, withAud(func(c jwt.MapClaims) { delete(c, "exp") }))},
		{"not yet valid", sign(t, secret, withAud(func(c jwt.MapClaims) { c["nbf"] = time.Now().Add(time.Hour).Unix() }))},
		{"wrong audience", sign(t, secret, withAud(func(c jwt.MapClaims) { c["aud"] = "other" }))},
		{"wrong issuer", sign(t, secret, withAud(func(c jwt.MapClaims) { c["iss"] = "https://evil.example" }))},
		{"missing sub", sign(t, secret, withAud(func(c jwt.MapClaims) { delete(c, "sub") }))},
		{"malformed", strings.Repeat(".", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyRejectsRSAWithoutJWKS(t *testing.T) {
	v := NewHMACVerifier(secret, "", "")
	// header {"alg":"RS256","typ":"JWT"}, payload {"sub":"x"}, bogus signature
	token := "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ4In0.c2ln"
	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestFromHeader(t *testing.T) {
	v := NewHMACVerifier(secret, "", "")

	if _, err := v.FromHeader(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty header: %v", err)
	}
	if _, err := v.FromHeader("Basic abc"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("basic header: %v", err)
	}
	id, err := v.FromHeader("Bearer " + sign(t, secret, validClaims()))
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("UserID = %q", id.UserID)
	}
}

func TestAuthorFallbacks(t *testing.T) {
	if got := (Identity{UserID: "u", Email: "e@x"}).Author(); got != "e@x" {
		t.Errorf("Author = %q, want email", got)
	}
	if got := (Identity{UserID: "u"}).Author(); got != "u" {
		t.Errorf("Author = %q, want user id", got)
	}
}

func TestNewVerifierNeedsKeys(t *testing.T) {
	if _, err := NewVerifier(model.AuthConfig{}); err == nil {
		t.Fatal("expected error without secret or jwks")
	}
	if _, err := NewVerifier(model.AuthConfig{Secret: "s"}); err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
}
