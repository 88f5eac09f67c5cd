package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	svc := NewTokenServiceWithSecret("test-secret")
	token, err := svc.Mint("short-1", "generate-test-audio")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.EntityID != "short-1" || claims.Endpoint != "generate-test-audio" {
		t.Fatalf("claims %+v", claims)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != TokenTTL {
		t.Fatalf("ttl %v, want %v", ttl, TokenTTL)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc := NewTokenServiceWithSecret("test-secret")
	past := time.Now().Add(-time.Hour)
	claims := Claims{
		EntityID: "short-1",
		Endpoint: "generate-test-audio",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(past.Add(-TokenTTL)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Verify(signed); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minted, err := NewTokenServiceWithSecret("secret-a").Mint("short-1", "generate-test-audio")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenServiceWithSecret("secret-b").Verify(minted); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenServiceWithSecret("test-secret")
	if _, err := svc.Verify(strings.Repeat("x", 40)); err == nil {
		t.Fatal("garbage token accepted")
	}
}
