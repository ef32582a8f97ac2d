package host

import (
	"github.com/emitlabs/reward-engine/internal/devfund"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/types"
)

// UpdateAllocation runs one sink's lazy settlement against the master
// and delivers the resulting NotifyAllocation, all inside a single
// transaction (spec §4.2 UpdateAllocation).
func (h *Host) UpdateAllocation(now uint64, spyAddr types.Address, spyHash types.Hash, hook []byte) (sinkmsg.Response, error) {
	tx := h.db.Begin()
	resp, err := h.master.UpdateAllocation(tx, now, spyAddr, spyHash, hook)
	if err != nil {
		tx.Rollback()
		return sinkmsg.Response{}, err
	}
	merged, err := h.dispatch(tx, resp)
	if err != nil {
		tx.Rollback()
		return sinkmsg.Response{}, err
	}
	if err := tx.Commit(); err != nil {
		return sinkmsg.Response{}, err
	}
	return merged, nil
}

// RedeemDevFund implements the dev-fund sink's Redeem entry point (spec
// §4.4): beneficiary-gated, it builds a Redeem hook and drives it through
// the master's UpdateAllocation so the allocation refresh and the payout
// commit atomically.
func (h *Host) RedeemDevFund(sink *devfund.Sink, now uint64, devfundAddr types.Address, devfundHash types.Hash, caller, to types.Address, amount *types.U128) (sinkmsg.Response, error) {
	tx := h.db.Begin()
	if err := sink.RequireBeneficiary(tx, caller); err != nil {
		tx.Rollback()
		return sinkmsg.Response{}, err
	}
	tx.Rollback()

	hook, err := devfund.EncodeRedeemHook(to, amount)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	return h.UpdateAllocation(now, devfundAddr, devfundHash, hook)
}
