package devfund

import (
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/types"
)

// RedeemHook is the opaque message the dev-fund decodes out of a
// NotifyAllocation callback's hook field (spec §6: "hook is an opaque
// pre-encoded sink message; sink decodes per its own schema (for
// dev-fund: Redeem{to, amount?})").
type RedeemHook struct {
	To     types.Address `json:"to"`
	Amount *types.U128   `json:"amount,omitempty" rlp:"optional"`
}

// EncodeRedeemHook produces the bytes a Redeem call passes to the master
// as UpdateAllocation's hook, so the payout happens atomically with the
// allocation refresh (spec §4.4).
func EncodeRedeemHook(to types.Address, amount *types.U128) ([]byte, error) {
	return sinkmsg.EncodeHook(RedeemHook{To: to, Amount: amount})
}

func decodeRedeemHook(hook []byte) (RedeemHook, error) {
	var h RedeemHook
	err := sinkmsg.DecodeHook(hook, &h)
	return h, err
}
