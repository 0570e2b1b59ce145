package storage

import (
	"testing"
)

func TestHashAndCompareAPIKey(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	hash, err := HashAPIKey("tl_live_abc123")
	if err != nil {
		t.Fatalf("HashAPIKey() error = %v", err)
	}

	if hash == "tl_live_abc123" {
		t.Error("hash must not equal plaintext key")
	}

	if !CompareAPIKeyHash(hash, "tl_live_abc123") {
		t.Error("expected matching key to compare true")
	}

	if CompareAPIKeyHash(hash, "tl_live_wrong") {
		t.Error("expected non-matching key to compare false")
	}
}

func TestMaskKey(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key keeps suffix", "tl_live_abc123", "****c123"},
		{"short key fully masked", "abcd", "****"},
		{"empty key fully masked", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskKey(tt.key); got != tt.want {
				t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConnectValidation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	if _, err := Connect(t.Context(), nil); err == nil {
		t.Error("expected error for nil config")
	}

	if _, err := Connect(t.Context(), &Config{}); err == nil {
		t.Error("expected error for empty database URL")
	}
}
