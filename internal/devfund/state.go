// Package devfund implements the dev-fund sink (spec §4.4): a trivial
// accumulator that records notified allocations from the master and
// releases them to a beneficiary under admin/beneficiary gating.
package devfund

import (
	"github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

const (
	nsConfig = "devfund:config:"

	keySingleton = "_"
)

// Config is the dev-fund's singleton configuration record (spec §3
// "Dev-fund state").
type Config struct {
	Admin       types.Address   `json:"admin"`
	Beneficiary types.Address   `json:"beneficiary"`
	RewardToken master.TokenRef `json:"reward_token"`
	Master      master.TokenRef `json:"master"`
	OwnAddr     types.Address   `json:"own_addr"`
	// ViewingKey mirrors a field present in the original config record
	// that no dev-fund operation in this spec reads or writes; see
	// lpstaking.Config.ViewingKey for the matching note.
	ViewingKey []byte `json:"viewing_key,omitempty"`

	AccumulatedRewards types.U128 `json:"accumulated_rewards"`
}

type Sink struct{}

func New() *Sink { return &Sink{} }

func cfgNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsConfig) }

func (s *Sink) Init(tx *store.Tx, cfg Config) error {
	if cfg.AccumulatedRewards.IsZero() {
		cfg.AccumulatedRewards = types.ZeroU128()
	}
	return cfgNS(tx).PutJSON([]byte(keySingleton), &cfg)
}

func (s *Sink) loadConfig(tx *store.Tx) (Config, error) {
	var cfg Config
	err := cfgNS(tx).GetJSON([]byte(keySingleton), &cfg)
	return cfg, err
}

func (s *Sink) saveConfig(tx *store.Tx, cfg Config) error {
	return cfgNS(tx).PutJSON([]byte(keySingleton), &cfg)
}
