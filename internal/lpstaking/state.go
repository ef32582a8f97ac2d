// Package lpstaking implements the LP staking engine (spec §4.3): a
// MasterChef-style per-pool accumulator with deposit/redeem and a
// bounded-epoch reward vest, gated by an admin-controlled stop switch and
// a per-user viewing-key query layer.
package lpstaking

import (
	"github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// Dust is subtracted from every DepositRewards call to absorb rounding
// residue in the vesting math (spec §4.3).
const Dust = 1_000_000

const (
	nsConfig     = "lpstaking:config:"
	nsRewardPool = "lpstaking:rewardpool:"
	nsUsers      = "lpstaking:users:"
	nsVKeys      = "lpstaking:vkeys:"

	keySingleton = "_"
)

// Config is the staking contract's singleton configuration record.
type Config struct {
	Admin         types.Address `json:"admin"`
	RewardToken   master.TokenRef `json:"reward_token"`
	IncToken      master.TokenRef `json:"inc_token"`
	Master        master.TokenRef `json:"master"`
	Deadline      uint64        `json:"deadline"`
	PoolClaimBlock uint64       `json:"pool_claim_block"`
	IsStopped     bool          `json:"is_stopped"`
	PrngSeed      []byte        `json:"prng_seed"`
	// ViewingKey mirrors a field present in the original contract's config
	// record that no handle/query in this spec ever reads or writes; kept
	// for storage-layout compatibility, same as the `residue` field
	// discussed as an open question for the accumulator record.
	ViewingKey []byte `json:"viewing_key,omitempty"`
}

// RewardPool is the pool-wide accumulator state (spec §3 invariants A-C).
type RewardPool struct {
	PendingRewards    types.U128 `json:"pending_rewards"`
	IncTokenSupply    types.U128 `json:"inc_token_supply"`
	LastRewardBlock   uint64     `json:"last_reward_block"`
	AccRewardPerShare types.U128 `json:"acc_reward_per_share"`
	// Residue mirrors a field present in the original accumulator record
	// that no deposit/redeem/settle path ever reads or writes; kept for
	// storage-layout compatibility only, same as Config.ViewingKey above.
	Residue types.U128 `json:"residue"`
}

// User is one staker's locked balance and reward debt (spec §3 invariant D).
type User struct {
	Locked types.U128 `json:"locked"`
	Debt   types.U128 `json:"debt"`
}

type Engine struct{}

func New() *Engine { return &Engine{} }

func cfgNS(tx *store.Tx) store.Typed  { return store.Namespace(tx, nsConfig) }
func poolNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsRewardPool) }
func usersNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsUsers) }
func vkeysNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsVKeys) }

// Init seeds a fresh staking contract instance.
func (e *Engine) Init(tx *store.Tx, cfg Config, startBlock uint64) error {
	if err := cfgNS(tx).PutJSON([]byte(keySingleton), &cfg); err != nil {
		return err
	}
	pool := RewardPool{
		PendingRewards:    types.ZeroU128(),
		IncTokenSupply:    types.ZeroU128(),
		LastRewardBlock:   startBlock,
		AccRewardPerShare: types.ZeroU128(),
	}
	return poolNS(tx).PutJSON([]byte(keySingleton), &pool)
}

func (e *Engine) loadConfig(tx *store.Tx) (Config, error) {
	var cfg Config
	err := cfgNS(tx).GetJSON([]byte(keySingleton), &cfg)
	return cfg, err
}

func (e *Engine) saveConfig(tx *store.Tx, cfg Config) error {
	return cfgNS(tx).PutJSON([]byte(keySingleton), &cfg)
}

func (e *Engine) loadPool(tx *store.Tx) (RewardPool, error) {
	var p RewardPool
	err := poolNS(tx).GetJSON([]byte(keySingleton), &p)
	return p, err
}

func (e *Engine) savePool(tx *store.Tx, p RewardPool) error {
	return poolNS(tx).PutJSON([]byte(keySingleton), &p)
}

// loadUser returns the user's record, defaulting to {0,0} (spec §7:
// "NotFound on user-record load is locally recovered into a zero-valued
// default").
func (e *Engine) loadUser(tx *store.Tx, addr types.Address) (User, error) {
	var u User
	err := usersNS(tx).GetJSON(addr.Bytes(), &u)
	if err == store.ErrNotFound {
		return User{Locked: types.ZeroU128(), Debt: types.ZeroU128()}, nil
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (e *Engine) saveUser(tx *store.Tx, addr types.Address, u User) error {
	return usersNS(tx).PutJSON(addr.Bytes(), &u)
}

func (e *Engine) deleteUser(tx *store.Tx, addr types.Address) {
	usersNS(tx).Delete(addr.Bytes())
}

func (e *Engine) loadViewingKeyHash(tx *store.Tx, addr types.Address) (*types.Hash, error) {
	var h types.Hash
	err := vkeysNS(tx).GetJSON(addr.Bytes(), &h)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (e *Engine) saveViewingKeyHash(tx *store.Tx, addr types.Address, h types.Hash) error {
	return vkeysNS(tx).PutJSON(addr.Bytes(), &h)
}
