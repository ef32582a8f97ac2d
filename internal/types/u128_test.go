package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
)

func TestMulDivFloor(t *testing.T) {
	a := NewU128(100)
	b := NewU128(10)
	d := NewU128(40)
	got, err := MulDivFloor(a, b, d)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "25" {
		t.Fatalf("want 25, got %s", got)
	}
}

func TestMulDivFloorRounds(t *testing.T) {
	got, err := MulDivFloor(NewU128(7), NewU128(3), NewU128(2))
	if err != nil {
		t.Fatal(err)
	}
	// 7*3/2 = 10.5 -> floor 10
	if got.String() != "10" {
		t.Fatalf("want 10, got %s", got)
	}
}

func TestSubUnderflow(t *testing.T) {
	_, err := NewU128(5).Sub(NewU128(10))
	if err == nil {
		t.Fatal("expected underflow error")
	}
}

func TestU128JSONRoundTrip(t *testing.T) {
	v, err := U128FromString("123456789012345678901234567890")
	if err != nil {
		t.Fatal(err)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var got U128
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if got.Cmp(v) != 0 {
		t.Fatalf("round trip mismatch: %s != %s", got, v)
	}
}

func TestU128RLPRoundTrip(t *testing.T) {
	v := NewU128(424242)
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		t.Fatal(err)
	}
	var got U128
	if err := rlp.DecodeBytes(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Cmp(v) != 0 {
		t.Fatalf("rlp round trip mismatch: %s != %s", got, v)
	}
}
