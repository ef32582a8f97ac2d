package vkey

import (
	"testing"

	"github.com/emitlabs/reward-engine/internal/types"
)

func TestDeriveIsDeterministic(t *testing.T) {
	addr := types.BytesToAddress([]byte("user"))
	k1 := Derive([]byte("seed"), addr, []byte("entropy"), 42)
	k2 := Derive([]byte("seed"), addr, []byte("entropy"), 42)
	if string(k1) != string(k2) {
		t.Fatal("Derive should be deterministic for identical inputs")
	}
	if len(k1) != KeyLength {
		t.Fatalf("want key length %d, got %d", KeyLength, len(k1))
	}
}

func TestDeriveVariesByInput(t *testing.T) {
	addrA := types.BytesToAddress([]byte("user-a"))
	addrB := types.BytesToAddress([]byte("user-b"))
	base := Derive([]byte("seed"), addrA, []byte("entropy"), 1)

	if string(Derive([]byte("seed"), addrB, []byte("entropy"), 1)) == string(base) {
		t.Fatal("Derive should vary by sender address")
	}
	if string(Derive([]byte("seed"), addrA, []byte("other-entropy"), 1)) == string(base) {
		t.Fatal("Derive should vary by entropy")
	}
	if string(Derive([]byte("seed"), addrA, []byte("entropy"), 2)) == string(base) {
		t.Fatal("Derive should vary by height")
	}
}

func TestVerifyAcceptsMatchingKey(t *testing.T) {
	key := Derive([]byte("seed"), types.BytesToAddress([]byte("user")), []byte("e"), 1)
	hash := Hash(key)
	if !Verify(&hash, key) {
		t.Fatal("Verify should accept the key that produced the stored hash")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	key := Derive([]byte("seed"), types.BytesToAddress([]byte("user")), []byte("e"), 1)
	hash := Hash(key)
	if Verify(&hash, []byte("wrong-key")) {
		t.Fatal("Verify should reject a non-matching key")
	}
}

func TestVerifyRejectsMissingKey(t *testing.T) {
	if Verify(nil, []byte("anything")) {
		t.Fatal("Verify should reject when no key is on file")
	}
}
