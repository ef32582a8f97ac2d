package sinkmsg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// EncodeHook RLP-encodes a sink-specific hook payload into the opaque
// bytes NotifyAllocation forwards verbatim (spec §6: "hook is an opaque
// pre-encoded sink message; sink decodes per its own schema"). RLP is the
// encoding the teacher reaches for elsewhere in the stack
// (go-ethereum/rlp), and unlike JSON it makes "opaque bytes, not a
// re-parseable structure the host could peek into" the literal on-disk
// representation.
func EncodeHook(v any) ([]byte, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, fmt.Errorf("encode hook: %w", err)
	}
	return b, nil
}

// DecodeHook decodes bytes previously produced by EncodeHook into v. Each
// sink defines its own hook struct and calls this with a pointer to it
// (spec §4.4: dev-fund's hook is Redeem{to, amount?}).
func DecodeHook(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("decode hook: empty payload")
	}
	if err := rlp.DecodeBytes(data, v); err != nil {
		return fmt.Errorf("decode hook: %w", err)
	}
	return nil
}
