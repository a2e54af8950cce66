package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestSignAndVerifyAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")
	accountID := uuid.New()

	token, err := svc.SignAccessToken(accountID, "+15558675309")
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.AccountID != accountID {
		t.Errorf("account id = %s, want %s", claims.AccountID, accountID)
	}
	if claims.PhoneNumber != "+15558675309" {
		t.Errorf("phone = %s, want +15558675309", claims.PhoneNumber)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").SignAccessToken(uuid.New(), "+15558675309")
	if err != nil {
		t.Fatalf("SignAccessToken: %v", err)
	}
	if _, err := NewJWTService("secret-b").VerifyToken(token); err == nil {
		t.Error("expected verification to fail with the wrong secret")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	if _, err := NewJWTService("secret").VerifyToken("not-a-jwt"); err == nil {
		t.Error("expected garbage token to be rejected")
	}
}
