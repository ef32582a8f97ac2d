package types

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Scale constants shared by the accumulator math in the staking engine and
// the allocator's weighted integration.
const (
	// RewardScale is the fixed-point scale of acc_reward_per_share.
	RewardScale = 1_000_000_000_000
	// IncScale is the user-facing stake denomination scale.
	IncScale = 1_000_000_000_000
)

// U128 is an unsigned 128-bit fixed-point amount. It is backed by
// uint256.Int (the pack's library of choice for EVM-width arithmetic) but
// every operation here enforces the 128-bit ceiling the spec's data model
// requires, so overflow into the upper 128 bits is caught rather than
// silently wrapped.
type U128 struct {
	v uint256.Int
}

var maxU128 = func() *uint256.Int {
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, 128)
	return new(uint256.Int).Sub(shifted, uint256.NewInt(1))
}()

func ZeroU128() U128 { return U128{} }

func NewU128(x uint64) U128 {
	return U128{v: *uint256.NewInt(x)}
}

// U128FromString parses a base-10 integer string into a U128.
func U128FromString(s string) (U128, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return U128{}, fmt.Errorf("parse u128 %q: %w", s, err)
	}
	if v.Gt(maxU128) {
		return U128{}, fmt.Errorf("value %q exceeds 128 bits", s)
	}
	return U128{v: *v}, nil
}

func (a U128) String() string { return a.v.Dec() }

func (a U128) IsZero() bool { return a.v.IsZero() }

func (a U128) Cmp(b U128) int { return a.v.Cmp(&b.v) }

func (a U128) GreaterThan(b U128) bool { return a.v.Gt(&b.v) }

func (a U128) LessThan(b U128) bool { return a.v.Lt(&b.v) }

// Mul returns a*b, erroring if the product would not fit in 128 bits.
func (a U128) Mul(b U128) (U128, error) {
	out := new(uint256.Int).Mul(&a.v, &b.v)
	if out.Gt(maxU128) {
		return U128{}, fmt.Errorf("u128 mul overflow: %s * %s", a, b)
	}
	return U128{v: *out}, nil
}

// Add returns a+b, erroring if the sum would not fit in 128 bits.
func (a U128) Add(b U128) (U128, error) {
	out := new(uint256.Int).Add(&a.v, &b.v)
	if out.Gt(maxU128) {
		return U128{}, fmt.Errorf("u128 add overflow: %s + %s", a, b)
	}
	return U128{v: *out}, nil
}

// Sub returns a-b, erroring on underflow (a < b).
func (a U128) Sub(b U128) (U128, error) {
	if a.v.Lt(&b.v) {
		return U128{}, fmt.Errorf("u128 sub underflow: %s - %s", a, b)
	}
	return U128{v: *new(uint256.Int).Sub(&a.v, &b.v)}, nil
}

// MulDivFloor computes floor(a*b/d), matching the spec's "multiplication
// happens before division" requirement throughout the accumulator math.
// a and b are each at most 128 bits, so their product is at most 256 bits
// and never wraps the underlying 256-bit word before the division is
// applied.
func MulDivFloor(a, b, d U128) (U128, error) {
	if d.IsZero() {
		return U128{}, fmt.Errorf("mul-div by zero divisor")
	}
	product := new(uint256.Int).Mul(&a.v, &b.v)
	out := new(uint256.Int).Div(product, &d.v)
	if out.Gt(maxU128) {
		return U128{}, fmt.Errorf("mul-div result exceeds 128 bits: %s*%s/%s", a, b, d)
	}
	return U128{v: *out}, nil
}

func (a U128) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// EncodeRLP lets U128 participate in RLP-encoded hook payloads (spec §6's
// opaque sink hook); go-ethereum's rlp package has built-in support for
// *big.Int, so U128 round-trips through it.
func (a U128) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, a.v.ToBig())
}

func (a *U128) DecodeRLP(s *rlp.Stream) error {
	b := new(big.Int)
	if err := s.Decode(b); err != nil {
		return err
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return fmt.Errorf("rlp: value exceeds 256 bits")
	}
	if v.Gt(maxU128) {
		return fmt.Errorf("rlp: value exceeds 128 bits")
	}
	a.v = *v
	return nil
}

func (a *U128) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := U128FromString(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
