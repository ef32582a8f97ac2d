// Package vkey implements the viewing-key subsystem (spec §4.3): a
// per-address shared secret that gates authenticated queries without a
// full signing/auth framework (explicitly out of scope, spec §1 — this
// package treats the key as an opaque capability check, not a credential
// system).
package vkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/hkdf"

	"github.com/emitlabs/reward-engine/internal/types"
)

// KeyLength is the derived viewing key size in bytes.
const KeyLength = 32

// Derive produces a fresh viewing key the way CreateViewingKey(entropy) is
// specified to: a function of the contract's prng_seed, the caller, and
// caller-supplied entropy, using HKDF (golang.org/x/crypto/hkdf) rather
// than a hand-rolled KDF.
func Derive(prngSeed []byte, sender types.Address, entropy []byte, height uint64) []byte {
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], height)

	info := append(append([]byte(nil), sender.Bytes()...), heightBytes[:]...)
	r := hkdf.New(sha256.New, append(append([]byte(nil), prngSeed...), entropy...), nil, info)
	key := make([]byte, KeyLength)
	if _, err := r.Read(key); err != nil {
		// hkdf.Read only fails if the output is absurdly long relative to
		// the hash size; KeyLength is far below that ceiling.
		panic(err)
	}
	return key
}

// Hash returns the digest stored under the sender's address; the raw key
// is never persisted (spec §4.3: "SetViewingKey(key) stores H(key)").
func Hash(key []byte) types.Hash {
	h := sha256.Sum256(key)
	return types.Hash(h)
}

// dummyHash is compared against when no viewing key is on file, so a
// missing key and a wrong key take the same code path and the same number
// of comparison operations (spec invariant I9).
var dummyHash = Hash([]byte("no viewing key set for this address"))

// Verify reports whether suppliedKey hashes to storedHash. storedHash is
// a pointer so "no key on file" can be modeled explicitly; in that case
// Verify still performs a full comparison against a fixed dummy digest so
// the two failure paths (missing vs. wrong key) are indistinguishable by
// timing, never short-circuiting on "key absent".
func Verify(storedHash *types.Hash, suppliedKey []byte) bool {
	suppliedHash := Hash(suppliedKey)
	if storedHash == nil {
		hmac.Equal(suppliedHash.Bytes(), dummyHash.Bytes())
		return false
	}
	return hmac.Equal(suppliedHash.Bytes(), storedHash.Bytes())
}
