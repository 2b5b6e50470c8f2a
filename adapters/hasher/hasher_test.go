package hasher_test

import (
	"strings"
	"testing"

	"github.com/revmura/revmura-suite/adapters/hasher"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := hasher.NewBcrypt(bcrypt.MinCost) // min cost for speed

	hash, err := h.Hash("rk_live_123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(string(hash), "$2") {
		t.Errorf("hash %q is not bcrypt formatted", hash)
	}
	if !h.Compare(hash, "rk_live_123") {
		t.Error("Compare should accept the original key")
	}
	if h.Compare(hash, "rk_live_124") {
		t.Error("Compare should reject a different key")
	}
	if h.Compare([]byte("not-a-hash"), "rk_live_123") {
		t.Error("Compare should reject a malformed hash")
	}
}

func TestBcrypt_Salted(t *testing.T) {
	h := hasher.NewBcrypt(bcrypt.MinCost)

	a, _ := h.Hash("key")
	b, _ := h.Hash("key")
	if string(a) == string(b) {
		t.Error("same key should hash differently due to salt")
	}
}

func TestBcrypt_InvalidCostDefaults(t *testing.T) {
	for _, cost := range []int{1, 100} {
		hash, err := hasher.NewBcrypt(cost).Hash("k")
		if err != nil {
			t.Fatalf("cost %d: %v", cost, err)
		}
		got, _ := bcrypt.Cost(hash)
		if got != bcrypt.DefaultCost {
			t.Errorf("cost %d: hash cost = %d, want %d", cost, got, bcrypt.DefaultCost)
		}
	}
}

func TestIsHash(t *testing.T) {
	hash, _ := hasher.NewBcrypt(bcrypt.MinCost).Hash("k")

	if !hasher.IsHash(string(hash)) {
		t.Error("bcrypt output should be recognized")
	}
	for _, s := range []string{"", "plaintext", "$2a$"} {
		if hasher.IsHash(s) {
			t.Errorf("IsHash(%q) = true, want false", s)
		}
	}
}

func TestFake(t *testing.T) {
	var h hasher.Fake

	hash, _ := h.Hash("k")
	if string(hash) != "k" || !h.Compare(hash, "k") || h.Compare(hash, "x") {
		t.Error("fake hasher should compare plaintext")
	}
}
