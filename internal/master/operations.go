package master

import (
	"fmt"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/guard"
	"github.com/emitlabs/reward-engine/internal/schedule"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// settle performs the lazy settlement of spec §4.2: integrate the
// schedule over the sink's unsettled block range, scale by its weight
// share of total_weight (floor division), and return that reward amount.
// settle does not modify sink; callers bump last_update_block to now
// themselves after reading whatever prior state they need.
func (m *Master) settle(tx *store.Tx, cfg Config, sched *schedule.Schedule, sink Sink, now uint64) (types.U128, error) {
	if cfg.TotalWeight == 0 || sink.Weight == 0 {
		return types.ZeroU128(), nil
	}
	integral, err := sched.Integrate(sink.LastUpdateBlock, now)
	if err != nil {
		return types.ZeroU128(), err
	}
	rewards, err := types.MulDivFloor(integral, types.NewU128(sink.Weight), types.NewU128(cfg.TotalWeight))
	if err != nil {
		return types.ZeroU128(), err
	}
	return rewards, nil
}

// SetSchedule replaces the mint schedule. Admin only (spec §4.2).
func (m *Master) SetSchedule(tx *store.Tx, caller types.Address, segments []schedule.Segment) (sinkmsg.Response, error) {
	cfg, err := m.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return sinkmsg.Response{}, err
	}
	sched, err := schedule.New(segments)
	if err != nil {
		return sinkmsg.Response{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	if err := m.saveSchedule(tx, sched); err != nil {
		return sinkmsg.Response{}, err
	}
	return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "set_schedule")}}, nil
}

// WeightEntry is one (sink, weight) pair from a SetWeights call.
type WeightEntry struct {
	Address  types.Address
	CodeHash types.Hash
	Weight   uint64
}

// SetWeights retargets sinks' shares of the mint (spec §4.2). Admin only.
func (m *Master) SetWeights(tx *store.Tx, caller types.Address, now uint64, entries []WeightEntry) (sinkmsg.Response, error) {
	cfg, err := m.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return sinkmsg.Response{}, err
	}
	sched, err := m.loadSchedule(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	var resp sinkmsg.Response
	for _, entry := range entries {
		sink, err := m.loadSink(tx, entry.Address, now)
		if err != nil {
			return sinkmsg.Response{}, err
		}
		priorWeight := sink.Weight
		priorLastUpdate := sink.LastUpdateBlock

		rewards, err := m.settle(tx, cfg, sched, sink, now)
		if err != nil {
			return sinkmsg.Response{}, err
		}

		cfg.TotalWeight = cfg.TotalWeight - priorWeight + entry.Weight
		sink.Weight = entry.Weight
		sink.LastUpdateBlock = now
		if err := m.saveSink(tx, entry.Address, sink); err != nil {
			return sinkmsg.Response{}, err
		}

		if priorWeight > 0 && priorLastUpdate < now {
			if !rewards.IsZero() {
				resp.Messages = append(resp.Messages, sinkmsg.Mint(entry.Address, rewards, "allocation"))
			}
			resp.Messages = append(resp.Messages, sinkmsg.Notify(entry.Address, rewards, nil))
			resp.Attrs = append(resp.Attrs, sinkmsg.Attr("notified_sink", entry.Address.Hex()))
		}
	}

	if err := m.saveConfig(tx, cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	resp.Attrs = append(resp.Attrs, sinkmsg.Attr("action", "set_weights"))
	return resp, nil
}

// UpdateAllocation settles and pays out a single sink's pending mint, then
// delivers the NotifyAllocation callback regardless of whether any
// rewards actually minted (spec §4.2). Any sink address may call this for
// itself.
func (m *Master) UpdateAllocation(tx *store.Tx, now uint64, spyAddr types.Address, spyHash types.Hash, hook []byte) (sinkmsg.Response, error) {
	cfg, err := m.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	sched, err := m.loadSchedule(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	sink, err := m.loadSink(tx, spyAddr, now)
	if err != nil {
		return sinkmsg.Response{}, err
	}

	rewards, err := m.settle(tx, cfg, sched, sink, now)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	sink.LastUpdateBlock = now
	if err := m.saveSink(tx, spyAddr, sink); err != nil {
		return sinkmsg.Response{}, err
	}

	var resp sinkmsg.Response
	if !rewards.IsZero() {
		resp.Messages = append(resp.Messages, sinkmsg.Mint(spyAddr, rewards, "allocation"))
	}
	resp.Messages = append(resp.Messages, sinkmsg.Notify(spyAddr, rewards, hook))
	resp.Attrs = []sinkmsg.LogAttr{
		sinkmsg.Attr("action", "update_allocation"),
		sinkmsg.Attr("spy", spyAddr.Hex()),
		sinkmsg.Attr("amount", rewards.String()),
	}
	_ = spyHash // forwarded by the host when dispatching NotifyAllocation; unused here.
	return resp, nil
}

// SetGovToken updates the mintable governance token reference. Admin only.
func (m *Master) SetGovToken(tx *store.Tx, caller, addr types.Address, hash types.Hash) (sinkmsg.Response, error) {
	cfg, err := m.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return sinkmsg.Response{}, err
	}
	cfg.GovToken = TokenRef{Address: addr, CodeHash: hash}
	if err := m.saveConfig(tx, cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "set_gov_token")}}, nil
}

// ChangeAdmin transfers the admin slot. Admin only.
func (m *Master) ChangeAdmin(tx *store.Tx, caller, newAdmin types.Address) (sinkmsg.Response, error) {
	cfg, err := m.loadConfig(tx)
	if err != nil {
		return sinkmsg.Response{}, err
	}
	if err := guard.Admin(cfg.Admin, caller); err != nil {
		return sinkmsg.Response{}, err
	}
	cfg.Admin = newAdmin
	if err := m.saveConfig(tx, cfg); err != nil {
		return sinkmsg.Response{}, err
	}
	return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "change_admin")}}, nil
}

// Queries

func (m *Master) QueryAdmin(tx *store.Tx) (types.Address, error) {
	cfg, err := m.loadConfig(tx)
	return cfg.Admin, err
}

func (m *Master) QueryGovToken(tx *store.Tx) (TokenRef, error) {
	cfg, err := m.loadConfig(tx)
	return cfg.GovToken, err
}

func (m *Master) QuerySchedule(tx *store.Tx) ([]schedule.Segment, error) {
	sched, err := m.loadSchedule(tx)
	if err != nil {
		return nil, err
	}
	return sched.Segments(), nil
}

func (m *Master) QuerySpyWeight(tx *store.Tx, addr types.Address, now uint64) (Sink, error) {
	return m.loadSink(tx, addr, now)
}
