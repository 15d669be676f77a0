package security

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("alice", "alice", []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "alice" || claims.Username != "alice" {
		t.Errorf("claims mismatch: %+v", claims)
	}
	if !claims.HasRole("admin") {
		t.Error("admin role lost in round-trip")
	}
	if claims.HasRole("viewer") {
		t.Error("HasRole matched a role that was never granted")
	}
	if claims.Issuer != "tableconfig-editor" {
		t.Errorf("issuer = %s", claims.Issuer)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken("alice", "alice", nil)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := NewJWTManager("secret-b", time.Hour).ValidateToken(token); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateToken("alice", "alice", nil)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := manager.ValidateToken(token); err == nil {
		t.Error("expired token must not validate")
	}
}

func TestRefreshTokenExtendsExpiry(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("alice", "alice", []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	refreshed, err := manager.RefreshToken(claims)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	newClaims, err := manager.ValidateToken(refreshed)
	if err != nil {
		t.Fatalf("refreshed token must validate: %v", err)
	}
	if newClaims.UserID != "alice" || !newClaims.HasRole("admin") {
		t.Errorf("identity or roles lost on refresh: %+v", newClaims)
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"empty", "", "", true},
		{"no prefix", "abc.def.ghi", "", true},
		{"wrong scheme", "Basic abc", "", true},
	}

	for _, tc := range cases {
		got, err := manager.ExtractTokenFromHeader(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
