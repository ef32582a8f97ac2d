package lpstaking

import (
	"fmt"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/guard"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// updateRewards advances the pool accumulator to min(block, deadline)
// (spec §4.3 invariants A-C). It never runs past the deadline and is a
// pure no-op once the pool is already caught up to it.
func (e *Engine) updateRewards(tx *store.Tx, block uint64) error {
	pool, err := e.loadPool(tx)
	if err != nil {
		return err
	}
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return err
	}

	target := block
	if target > cfg.Deadline {
		target = cfg.Deadline
	}
	if target <= pool.LastRewardBlock || pool.LastRewardBlock >= cfg.Deadline {
		return nil
	}

	if pool.IncTokenSupply.IsZero() || pool.PendingRewards.IsZero() {
		pool.LastRewardBlock = target
		return e.savePool(tx, pool)
	}

	blocksToGo := cfg.Deadline - pool.LastRewardBlock
	blocksToVest := target - pool.LastRewardBlock

	rewards, err := types.MulDivFloor(types.NewU128(blocksToVest), pool.PendingRewards, types.NewU128(blocksToGo))
	if err != nil {
		return err
	}
	increment, err := types.MulDivFloor(rewards, types.NewU128(types.RewardScale), pool.IncTokenSupply)
	if err != nil {
		return err
	}
	pool.AccRewardPerShare, err = pool.AccRewardPerShare.Add(increment)
	if err != nil {
		return err
	}
	pool.PendingRewards, err = pool.PendingRewards.Sub(rewards)
	if err != nil {
		return err
	}
	pool.LastRewardBlock = target
	return e.savePool(tx, pool)
}

// pendingOf computes a user's claimable reward against the current
// accumulator, without mutating state (spec §4.3: "pending = locked *
// acc_reward_per_share / REWARD_SCALE - debt").
func pendingOf(pool RewardPool, u User) (types.U128, error) {
	accrued, err := types.MulDivFloor(u.Locked, pool.AccRewardPerShare, types.NewU128(types.RewardScale))
	if err != nil {
		return types.U128{}, err
	}
	if accrued.LessThan(u.Debt) {
		return types.ZeroU128(), nil
	}
	return accrued.Sub(u.Debt)
}

func debtOf(pool RewardPool, locked types.U128) (types.U128, error) {
	return types.MulDivFloor(locked, pool.AccRewardPerShare, types.NewU128(types.RewardScale))
}

func (e *Engine) requireRunning(cfg Config) error {
	if cfg.IsStopped {
		return errs.ErrContractStopped
	}
	return nil
}

// Deposit locks inc_token from sender, settling and paying out any
// already-pending reward first (spec §4.3 Deposit).
func (e *Engine) Deposit(tx *store.Tx, now uint64, sender types.Address, amount types.U128) (sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.requireRunning(cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	if amount.IsZero() {
		return sinkmsg.Response{}, fmt.Errorf("%w: deposit amount must be nonzero", errs.ErrInvalidInput)
	}
	if err := e.updateRewards(tx, now); err != nil {
		return sinkmsg.Response{}, err
	}
	pool, err := e.loadPool(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	user, err := e.loadUser(tx, sender)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	var resp sinkmsg.Response
	if !user.Locked.IsZero() {
		pendingReward, err := pendingOf(pool, user)
		if err != nil {
			return sinkmsg.Response{}, err
		}
		if !pendingReward.IsZero() {
			resp.Messages = append(resp.Messages, sinkmsg.Transfer(sender, pendingReward, "reward"))
		}
	}

	user.Locked, err = user.Locked.Add(amount)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	user.Debt, err = debtOf(pool, user.Locked)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.saveUser(tx, sender, user); err != nil {
		return sinkmsg.Response{}, err
	}

	pool.IncTokenSupply, err = pool.IncTokenSupply.Add(amount)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.savePool(tx, pool); err != nil {
		return sinkmsg.Response{}, err
	}

	resp.Attrs = []sinkmsg.LogAttr{
		sinkmsg.Attr("action", "deposit"),
		sinkmsg.Attr("staker", sender.Hex()),
		sinkmsg.Attr("amount", amount.String()),
	}
	return resp, nil
}

// Redeem withdraws up to the caller's locked balance, defaulting to the
// full balance when amount is nil (spec §4.3 Redeem).
func (e *Engine) Redeem(tx *store.Tx, now uint64, sender types.Address, amount *types.U128) (sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.requireRunning(cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.updateRewards(tx, now); err != nil {
		return sinkmsg.Response{}, err
	}
	pool, err := e.loadPool(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	user, err := e.loadUser(tx, sender)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	redeemAmount := user.Locked
	if amount != nil {
		redeemAmount = *amount
	}
	if redeemAmount.GreaterThan(user.Locked) {
		return sinkmsg.Response{}, fmt.Errorf("%w: redeem amount exceeds locked balance", errs.ErrInsufficientFunds)
	}

	pendingReward, err := pendingOf(pool, user)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	user.Locked, err = user.Locked.Sub(redeemAmount)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	user.Debt, err = debtOf(pool, user.Locked)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.saveUser(tx, sender, user); err != nil {
		return sinkmsg.Response{}, err
	}

	pool.IncTokenSupply, err = pool.IncTokenSupply.Sub(redeemAmount)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.savePool(tx, pool); err != nil {
		return sinkmsg.Response{}, err
	}

	var resp sinkmsg.Response
	if !pendingReward.IsZero() {
		resp.Messages = append(resp.Messages, sinkmsg.Transfer(sender, pendingReward, "reward"))
	}
	stakeOut, err := redeemAmount.Mul(types.NewU128(types.IncScale))
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if !stakeOut.IsZero() {
		resp.Messages = append(resp.Messages, sinkmsg.Transfer(sender, stakeOut, "redeem"))
	}
	resp.Attrs = []sinkmsg.LogAttr{
		sinkmsg.Attr("action", "redeem"),
		sinkmsg.Attr("staker", sender.Hex()),
		sinkmsg.Attr("amount", redeemAmount.String()),
	}
	return resp, nil
}

// DepositRewards funds the pool's vesting pipeline. A fixed Dust amount
// is withheld from every call to absorb floor-division residue in
// updateRewards (spec §4.3, Open Question on dust handling: amounts at or
// below Dust are rejected outright rather than silently zeroed).
func (e *Engine) DepositRewards(tx *store.Tx, now uint64, amount types.U128) (sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.requireRunning(cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	if amount.LessThan(types.NewU128(Dust)) || amount.Cmp(types.NewU128(Dust)) == 0 {
		return sinkmsg.Response{}, fmt.Errorf("%w: deposit_rewards amount must exceed dust threshold", errs.ErrInvalidInput)
	}
	if err := e.updateRewards(tx, now); err != nil {
		return sinkmsg.Response{}, err
	}
	pool, err := e.loadPool(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	net, err := amount.Sub(types.NewU128(Dust))
	if err != nil {
		return sinkmsg.Response{}, err
	}
	pool.PendingRewards, err = pool.PendingRewards.Add(net)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.savePool(tx, pool); err != nil {
		return sinkmsg.Response{}, err
	}
	return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{
		sinkmsg.Attr("action", "deposit_rewards"),
		sinkmsg.Attr("amount", net.String()),
	}}, nil
}

// EmergencyRedeem returns a user's full locked stake and forfeits any
// pending reward. Only valid while the contract is stopped (spec §4.3).
func (e *Engine) EmergencyRedeem(tx *store.Tx, sender types.Address) (sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if !cfg.IsStopped {
		return sinkmsg.Response{}, fmt.Errorf("%w: emergency_redeem requires a stopped contract", errs.ErrPrecondition)
	}
	user, err := e.loadUser(tx, sender)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if user.Locked.IsZero() {
		return sinkmsg.Response{}, fmt.Errorf("%w: no locked balance to redeem", errs.ErrInsufficientFunds)
	}
	pool, err := e.loadPool(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	pool.IncTokenSupply, err = pool.IncTokenSupply.Sub(user.Locked)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := e.savePool(tx, pool); err != nil {
		return sinkmsg.Response{}, err
	}
	amountOut, err := user.Locked.Mul(types.NewU128(types.IncScale))
	if err != nil {
		return sinkmsg.Response{}, err
	}
	e.deleteUser(tx, sender)
	return sinkmsg.Response{
		Messages: []sinkmsg.OutMsg{sinkmsg.Transfer(sender, amountOut, "emergency_redeem")},
		Attrs: []sinkmsg.LogAttr{
			sinkmsg.Attr("action", "emergency_redeem"),
			sinkmsg.Attr("staker", sender.Hex()),
			sinkmsg.Attr("amount", amountOut.String()),
		},
	}, nil
}

// ClaimRewardPool sweeps the contract's reward-token balance to the
// admin once height has reached pool_claim_block (spec §4.3: a one-shot
// sunset valve for unvested rewards after the deadline has passed).
// liveBalance is supplied by the host's query of the external reward
// token's balance, since that query crosses a contract boundary this
// package does not own.
func (e *Engine) ClaimRewardPool(tx *store.Tx, caller types.Address, now uint64, liveBalance types.U128) (sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return sinkmsg.Response{}, err
	}
	if now < cfg.PoolClaimBlock {
		return sinkmsg.Response{}, fmt.Errorf("%w: pool_claim_block not yet reached", errs.ErrPrecondition)
	}
	if liveBalance.IsZero() {
		return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "claim_reward_pool"), sinkmsg.Attr("amount", "0")}}, nil
	}
	return sinkmsg.Response{
		Messages: []sinkmsg.OutMsg{sinkmsg.Transfer(cfg.Admin, liveBalance, "claim_reward_pool")},
		Attrs: []sinkmsg.LogAttr{
			sinkmsg.Attr("action", "claim_reward_pool"),
			sinkmsg.Attr("amount", liveBalance.String()),
		},
	}, nil
}

// StopContract halts Deposit/Redeem/DepositRewards, leaving
// EmergencyRedeem as the only user-facing exit. Admin only.
func (e *Engine) StopContract(tx *store.Tx, caller types.Address) error {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.IsStopped = true
	return e.saveConfig(tx, cfg)
}

// ResumeContract reverses StopContract. Admin only.
func (e *Engine) ResumeContract(tx *store.Tx, caller types.Address) error {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.IsStopped = false
	return e.saveConfig(tx, cfg)
}

// ChangeAdmin transfers the admin slot. Admin only.
func (e *Engine) ChangeAdmin(tx *store.Tx, caller, newAdmin types.Address) error {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	cfg.Admin = newAdmin
	return e.saveConfig(tx, cfg)
}

// SetDeadline extends or shortens the vesting window. The accumulator is
// caught up to now before the deadline changes underneath it, so no
// vesting time is silently lost or double-counted (spec §4.3).
func (e *Engine) SetDeadline(tx *store.Tx, caller types.Address, now, newDeadline uint64) error {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return err
	}
	if err := e.updateRewards(tx, now); err != nil {
		return err
	}
	cfg.Deadline = newDeadline
	return e.saveConfig(tx, cfg)
}
