package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("0xAbC0000000000000000000000000000000000001", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Wallet != "0xabc0000000000000000000000000000000000001" {
		t.Fatalf("wallet not lowercased in claims: %s", claims.Wallet)
	}
}

func TestTokenTampered(t *testing.T) {
	tok, err := GenerateToken("0xabc0000000000000000000000000000000000001", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[2] = parts[2] + "x"
	if _, err := ParseToken(strings.Join(parts, ".")); err == nil {
		t.Fatal("tampered token must not parse")
	}
}

func TestTokenExpired(t *testing.T) {
	tok, err := GenerateToken("0xabc0000000000000000000000000000000000001", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseToken(tok); err == nil {
		t.Fatal("expired token must not parse")
	}
}
