package auth

import (
	"strings"
	"testing"
)

func TestNewActivationHash(t *testing.T) {
	hash, err := NewActivationHash()
	if err != nil {
		t.Fatalf("NewActivationHash failed: %v", err)
	}

	if len(hash) != ActivationHashLength {
		t.Errorf("expected %d characters, got %d", ActivationHashLength, len(hash))
	}
	for _, c := range hash {
		if c < 'a' || c > 'z' {
			t.Errorf("expected lowercase letters only, got %q in %q", c, hash)
		}
	}
}

func TestNewActivationHash_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		hash, err := NewActivationHash()
		if err != nil {
			t.Fatalf("NewActivationHash failed: %v", err)
		}
		if seen[hash] {
			t.Fatalf("hash %q generated twice", hash)
		}
		seen[hash] = true
	}
}

func TestActivationHashAlphabet(t *testing.T) {
	// The alphabet the generator draws from must itself be lowercase-only,
	// or the format guarantee above is meaningless.
	if hashAlphabet != strings.ToLower(hashAlphabet) {
		t.Error("hash alphabet must be lowercase")
	}
	if len(hashAlphabet) != 26 {
		t.Errorf("expected 26-letter alphabet, got %d", len(hashAlphabet))
	}
}
