package devfund

import (
	"fmt"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/guard"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// NotifyAllocation is the master->sink callback (spec §4.4). Callable by
// the master or the admin (an admin-triggered replay is how an operator
// re-delivers a callback the master's side already committed). amount is
// added to the accumulator; if hook decodes to a RedeemHook, the payout
// it describes happens in the same call.
func (s *Sink) NotifyAllocation(tx *store.Tx, caller types.Address, amount types.U128, hook []byte) (sinkmsg.Response, error) {
	cfg, err := s.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if !cfg.Admin.Equal(caller) && !cfg.Master.Address.Equal(caller) {
		return sinkmsg.Response{}, fmt.Errorf("%w: caller %s is neither master nor admin", errs.ErrUnauthorized, caller)
	}

	cfg.AccumulatedRewards, err = cfg.AccumulatedRewards.Add(amount)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	resp := sinkmsg.Response{Attrs: []sinkmsg.LogAttr{
		sinkmsg.Attr("action", "notify_allocation"),
		sinkmsg.Attr("amount", amount.String()),
	}}

	if len(hook) > 0 {
		redeem, err := decodeRedeemHook(hook)
		if err != nil {
			return sinkmsg.Response{}, fmt.Errorf("%w: malformed redeem hook: %v", errs.ErrInvalidInput, err)
		}
		want := cfg.AccumulatedRewards
		if redeem.Amount != nil {
			want = *redeem.Amount
		}
		if want.GreaterThan(cfg.AccumulatedRewards) {
			return sinkmsg.Response{}, fmt.Errorf("%w: redeem wants %s, only %s accumulated", errs.ErrInsufficientFunds, want, cfg.AccumulatedRewards)
		}
		cfg.AccumulatedRewards, err = cfg.AccumulatedRewards.Sub(want)
		if err != nil {
			return sinkmsg.Response{}, err
		}
		if !want.IsZero() {
			resp.Messages = append(resp.Messages, sinkmsg.Transfer(redeem.To, want, "devfund_redeem"))
		}
		resp.Attrs = append(resp.Attrs, sinkmsg.Attr("redeemed_to", redeem.To.Hex()), sinkmsg.Attr("redeemed_amount", want.String()))
	}

	if err := s.saveConfig(tx, cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	return resp, nil
}

// ChangeAdmin transfers the admin slot. Admin only.
func (s *Sink) ChangeAdmin(tx *store.Tx, caller, newAdmin types.Address) error {
	cfg, err := s.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.Admin = newAdmin
	return s.saveConfig(tx, cfg)
}

// ChangeBeneficiary repoints the address Redeem pays out to by default.
// Admin only.
func (s *Sink) ChangeBeneficiary(tx *store.Tx, caller, newBeneficiary types.Address) error {
	cfg, err := s.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.Beneficiary = newBeneficiary
	return s.saveConfig(tx, cfg)
}

// RefreshBalance overwrites accumulated_rewards with a live balance query
// result. Admin only; an escape hatch for when the accumulator drifts
// from the token contract's actual balance (spec §4.4).
func (s *Sink) RefreshBalance(tx *store.Tx, caller types.Address, liveBalance types.U128) error {
	cfg, err := s.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.AccumulatedRewards = liveBalance
	return s.saveConfig(tx, cfg)
}

// QueryBeneficiary, QueryAccumulatedRewards and QueryAdmin back the
// sink's read-only surface.

func (s *Sink) QueryAdmin(tx *store.Tx) (types.Address, error) {
	cfg, err := s.loadConfig(tx)
	return cfg.Admin, err
}

func (s *Sink) QueryBeneficiary(tx *store.Tx) (types.Address, error) {
	cfg, err := s.loadConfig(tx)
	return cfg.Beneficiary, err
}

func (s *Sink) QueryAccumulatedRewards(tx *store.Tx) (types.U128, error) {
	cfg, err := s.loadConfig(tx)
	return cfg.AccumulatedRewards, err
}

// RequireBeneficiary is exported so the host can gate Redeem (which lives
// at the host/actor layer since it must invoke the master atomically)
// without duplicating the admin-style guard predicate.
func (s *Sink) RequireBeneficiary(tx *store.Tx, caller types.Address) error {
	cfg, err := s.loadConfig(tx)
	if err != nil {
		return err
	}
	return guard.Address(cfg.Beneficiary, caller, "beneficiary")
}
