package lpstaking

import (
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// ContractStatus reports whether the pool is running or stopped.
func (e *Engine) ContractStatus(tx *store.Tx) (bool, error) {
	cfg, err := e.loadConfig(tx)
	return !cfg.IsStopped, err
}

func (e *Engine) QueryDeadline(tx *store.Tx) (uint64, error) {
	cfg, err := e.loadConfig(tx)
	return cfg.Deadline, err
}

func (e *Engine) QueryPoolClaimBlock(tx *store.Tx) (uint64, error) {
	cfg, err := e.loadConfig(tx)
	return cfg.PoolClaimBlock, err
}

func (e *Engine) QueryRewardPoolBalance(tx *store.Tx) (types.U128, error) {
	pool, err := e.loadPool(tx)
	return pool.PendingRewards, err
}

// RewardsOf is a viewing-key-gated query of a single address's pending
// reward, projected forward to `now` without mutating stored state
// (spec §4.3: queries never advance the accumulator).
func (e *Engine) RewardsOf(tx *store.Tx, addr types.Address, key []byte, now uint64) (types.U128, error) {
	if err := e.authenticate(tx, addr, key); err != nil {
		return types.U128{}, err
	}
	pool, err := e.projectPool(tx, now)
	if err != nil {
		return types.U128{}, err
	}
	user, err := e.loadUser(tx, addr)
	if err != nil {
		return types.U128{}, err
	}
	return pendingOf(pool, user)
}

// DepositOf is a viewing-key-gated query of a single address's locked
// balance (spec §4.3).
func (e *Engine) DepositOf(tx *store.Tx, addr types.Address, key []byte) (types.U128, error) {
	if err := e.authenticate(tx, addr, key); err != nil {
		return types.U128{}, err
	}
	user, err := e.loadUser(tx, addr)
	if err != nil {
		return types.U128{}, err
	}
	return user.Locked, nil
}

// projectPool computes what the accumulator would look like at `now`
// without writing it back, mirroring updateRewards' pure math on a copy.
func (e *Engine) projectPool(tx *store.Tx, now uint64) (RewardPool, error) {
	pool, err := e.loadPool(tx)
	if err != nil {
		return RewardPool{}, err
	}
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return RewardPool{}, err
	}

	target := now
	if target > cfg.Deadline {
		target = cfg.Deadline
	}
	if target <= pool.LastRewardBlock || pool.LastRewardBlock >= cfg.Deadline {
		return pool, nil
	}
	if pool.IncTokenSupply.IsZero() || pool.PendingRewards.IsZero() {
		pool.LastRewardBlock = target
		return pool, nil
	}

	blocksToGo := cfg.Deadline - pool.LastRewardBlock
	blocksToVest := target - pool.LastRewardBlock

	rewards, err := types.MulDivFloor(types.NewU128(blocksToVest), pool.PendingRewards, types.NewU128(blocksToGo))
	if err != nil {
		return RewardPool{}, err
	}
	increment, err := types.MulDivFloor(rewards, types.NewU128(types.RewardScale), pool.IncTokenSupply)
	if err != nil {
		return RewardPool{}, err
	}
	pool.AccRewardPerShare, err = pool.AccRewardPerShare.Add(increment)
	if err != nil {
		return RewardPool{}, err
	}
	pool.PendingRewards, err = pool.PendingRewards.Sub(rewards)
	if err != nil {
		return RewardPool{}, err
	}
	pool.LastRewardBlock = target
	return pool, nil
}
