package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestJWTManager_GenerateAndValidate_Success(t *testing.T) {
	manager := NewJWTManager(testSecret, "social-test", 15*time.Minute)

	token, err := manager.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := manager.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %q", userID)
	}
}

func TestJWTManager_GenerateAccessToken_EmptyUser(t *testing.T) {
	manager := NewJWTManager(testSecret, "social-test", time.Minute)

	if _, err := manager.GenerateAccessToken(""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestJWTManager_ValidateAccessToken_Expired(t *testing.T) {
	manager := NewJWTManager(testSecret, "social-test", -time.Minute)

	token, err := manager.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTManager_ValidateAccessToken_InvalidSignature(t *testing.T) {
	issuer := NewJWTManager(testSecret, "social-test", time.Minute)
	other := NewJWTManager("another-secret-at-least-32-chars-long!!", "social-test", time.Minute)

	token, err := issuer.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestJWTManager_ValidateAccessToken_WrongIssuer(t *testing.T) {
	a := NewJWTManager(testSecret, "issuer-a", time.Minute)
	b := NewJWTManager(testSecret, "issuer-b", time.Minute)

	token, err := a.GenerateAccessToken("user-1")
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := b.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestJWTManager_ValidateAccessToken_Malformed(t *testing.T) {
	manager := NewJWTManager(testSecret, "social-test", time.Minute)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.ValidateAccessToken(token); err == nil {
			t.Errorf("expected error for %q", token)
		}
	}
}

func TestJWTManager_ValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	manager := NewJWTManager(testSecret, "social-test", time.Minute)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "social-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = manager.ValidateAccessToken(signed)
	if err == nil {
		t.Fatal("expected error for unsigned token")
	}
	if !strings.Contains(err.Error(), "parse token") {
		t.Errorf("unexpected error: %v", err)
	}
}
