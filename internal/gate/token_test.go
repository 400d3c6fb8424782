package gate

import (
	"encoding/hex"
	"testing"
)

func TestGenerateToken(t *testing.T) {
	token, hashHex, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("token should not be empty")
	}
	if hashHex != HashToken(token) {
		t.Error("returned hash should match HashToken of the credential")
	}
	decoded, err := hex.DecodeString(hashHex)
	if err != nil {
		t.Fatalf("hash should be valid hex: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("SHA-256 hash should be 32 bytes, got %d", len(decoded))
	}
}

func TestGenerateToken_unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, _, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		if seen[token] {
			t.Fatal("generated tokens should be unique")
		}
		seen[token] = true
	}
}

func TestHashToken_deterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("hash should be deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("different tokens should produce different hashes")
	}
}
