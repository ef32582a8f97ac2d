// Package types defines the shared value types used across the master
// allocator, the staking engine and the dev-fund sink: addresses, hashes
// and fixed-point token amounts.
package types

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address is an opaque 20-byte account or contract identifier.
type Address [AddressLength]byte

// Hash is a 32-byte digest, used for code hashes and block/event hashes.
type Hash [HashLength]byte

// CodeHash identifies the callback interface a sink implements; delivered
// alongside a sink's address so the host knows how to route a message to it.
type CodeHash = Hash

var (
	ZeroAddress = Address{}
	ZeroHash    = Hash{}
)

func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		copy(a[:], b[len(b)-AddressLength:])
	} else {
		copy(a[AddressLength-len(b):], b)
	}
	return a
}

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		copy(h[:], b[len(b)-HashLength:])
	} else {
		copy(h[HashLength-len(b):], b)
	}
	return h
}

func (a Address) Hex() string    { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) Bytes() []byte  { return a[:] }
func (a Address) Equal(o Address) bool {
	return bytes.Equal(a[:], o[:])
}
func (a Address) IsZero() bool { return a.Equal(ZeroAddress) }

func (h Hash) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }
func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) Equal(o Hash) bool {
	return bytes.Equal(h[:], o[:])
}
func (h Hash) IsZero() bool { return h.Equal(ZeroHash) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }
func (a *Address) UnmarshalText(text []byte) error {
	v, err := HexToAddress(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

func HexToAddress(s string) (Address, error) {
	s = trim0x(s)
	if len(s) != AddressLength*2 {
		return ZeroAddress, fmt.Errorf("invalid address length: expected %d hex chars, got %d", AddressLength*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroAddress, fmt.Errorf("invalid address hex: %w", err)
	}
	return BytesToAddress(b), nil
}

func HexToHash(s string) (Hash, error) {
	s = trim0x(s)
	if len(s) != HashLength*2 {
		return ZeroHash, fmt.Errorf("invalid hash length: expected %d hex chars, got %d", HashLength*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroHash, fmt.Errorf("invalid hash hex: %w", err)
	}
	return BytesToHash(b), nil
}

func trim0x(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Keccak256 hashes data the way account addresses are derived from public
// keys throughout the pack (kept for callers that need a collision-resistant
// digest of an opaque hook payload, e.g. for idempotency keys).
func Keccak256(data ...[]byte) []byte {
	hasher := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}

func Keccak256Hash(data ...[]byte) Hash {
	return BytesToHash(Keccak256(data...))
}
