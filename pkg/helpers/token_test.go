package helpers

import (
	"encoding/hex"
	"testing"
)

func TestGenerateTokenUnique(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == "" || b == "" {
		t.Fatal("empty token")
	}
	if a == b {
		t.Error("two generated tokens are identical")
	}
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("raw-token")
	h2 := HashToken("raw-token")
	if h1 != h2 {
		t.Error("hash must be deterministic for lookup by hash")
	}
	if h1 == "raw-token" {
		t.Error("hash must differ from input")
	}
	raw, err := hex.DecodeString(h1)
	if err != nil {
		t.Fatalf("hash is not hex: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected sha256 digest (32 bytes), got %d", len(raw))
	}
	if HashToken("other") == h1 {
		t.Error("different inputs should hash differently")
	}
}
