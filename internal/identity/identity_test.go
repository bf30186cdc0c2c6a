package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("topsecret")
	sub, err := v.Verify(signToken(t, "topsecret", "driver-42"))
	if err != nil {
		t.Fatal(err)
	}
	if sub != "driver-42" {
		t.Fatalf("expected driver-42, got %q", sub)
	}
}

func TestJWTVerifierRejectsWrongSecret(t *testing.T) {
	v := NewJWTVerifier("topsecret")
	if _, err := v.Verify(signToken(t, "other", "driver-42")); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestJWTVerifierRejectsMissingSubject(t *testing.T) {
	v := NewJWTVerifier("topsecret")
	if _, err := v.Verify(signToken(t, "topsecret", "")); err == nil {
		t.Fatal("expected failure without subject")
	}
}

func TestJWTVerifierRejectsGarbage(t *testing.T) {
	v := NewJWTVerifier("topsecret")
	if _, err := v.Verify("not-a-token"); err == nil {
		t.Fatal("expected failure")
	}
}
