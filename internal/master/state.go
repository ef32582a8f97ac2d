// Package master implements the Master allocator (spec §4.2): it holds a
// piecewise-constant mint schedule and a weighted set of reward sinks,
// and on demand mints each sink's pending share via lazy settlement.
package master

import (
	"github.com/emitlabs/reward-engine/internal/schedule"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

const (
	nsConfig   = "master:config:"
	nsSchedule = "master:schedule:"
	nsSinks    = "master:sinks:"

	keySingleton = "_"
)

// TokenRef identifies a SNIP-20-style token contract (spec §3: "gov_token:
// (address, code_hash)").
type TokenRef struct {
	Address  types.Address `json:"address"`
	CodeHash types.Hash    `json:"code_hash"`
}

// Config is the Master's singleton configuration record.
type Config struct {
	Admin      types.Address `json:"admin"`
	GovToken   TokenRef      `json:"gov_token"`
	TotalWeight uint64       `json:"total_weight"`
}

// Sink is one registered reward sink's accounting state (spec §3 "sinks:
// mapping sink-address -> { weight, last_update_block }").
type Sink struct {
	Weight          uint64 `json:"weight"`
	LastUpdateBlock uint64 `json:"last_update_block"`
}

// Master operates purely against a store.Tx passed into each call; it
// holds no in-process state of its own (Design Notes §9: "no cross-request
// memoization").
type Master struct{}

func New() *Master { return &Master{} }

func (m *Master) cfgNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsConfig) }
func (m *Master) schedNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsSchedule) }
func (m *Master) sinksNS(tx *store.Tx) store.Typed { return store.Namespace(tx, nsSinks) }

// Init seeds a fresh Master instance. Analogous to the teacher's InitMsg
// handler (spec §6 "init(InitMsg) -> InitResponse").
func (m *Master) Init(tx *store.Tx, admin types.Address, govToken TokenRef) error {
	cfg := Config{Admin: admin, GovToken: govToken, TotalWeight: 0}
	if err := m.cfgNS(tx).PutJSON([]byte(keySingleton), &cfg); err != nil {
		return err
	}
	return m.schedNS(tx).PutJSON([]byte(keySingleton), []schedule.Segment{})
}

func (m *Master) loadConfig(tx *store.Tx) (Config, error) {
	var cfg Config
	if err := m.cfgNS(tx).GetJSON([]byte(keySingleton), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (m *Master) saveConfig(tx *store.Tx, cfg Config) error {
	return m.cfgNS(tx).PutJSON([]byte(keySingleton), &cfg)
}

func (m *Master) loadSchedule(tx *store.Tx) (*schedule.Schedule, error) {
	var segs []schedule.Segment
	if err := m.schedNS(tx).GetJSON([]byte(keySingleton), &segs); err != nil {
		return nil, err
	}
	return schedule.New(segs)
}

func (m *Master) saveSchedule(tx *store.Tx, s *schedule.Schedule) error {
	return m.schedNS(tx).PutJSON([]byte(keySingleton), s.Segments())
}

// loadSink returns the sink's entry, or the lazily-created default
// { weight: 0, last_update_block: now } if it has never been seen before
// (spec §3 "Sink entry lifecycle").
func (m *Master) loadSink(tx *store.Tx, addr types.Address, now uint64) (Sink, error) {
	var s Sink
	err := m.sinksNS(tx).GetJSON(addr.Bytes(), &s)
	if err == store.ErrNotFound {
		return Sink{Weight: 0, LastUpdateBlock: now}, nil
	}
	if err != nil {
		return Sink{}, err
	}
	return s, nil
}

func (m *Master) saveSink(tx *store.Tx, addr types.Address, s Sink) error {
	return m.sinksNS(tx).PutJSON(addr.Bytes(), &s)
}
