package rpcserver

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/emitlabs/reward-engine/internal/devfund"
	"github.com/emitlabs/reward-engine/internal/host"
	"github.com/emitlabs/reward-engine/internal/lpstaking"
	dmaster "github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/schedule"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// commitResponse commits tx on success and rolls it back on failure,
// returning the handle response as the RPC result.
func commitResponse(tx *store.Tx, resp sinkmsg.Response, err error) (interface{}, error) {
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return resp, nil
}

// commitOK commits tx on success and rolls it back on failure, for
// handlers whose engine method returns only an error.
func commitOK(tx *store.Tx, err error) (interface{}, error) {
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return struct {
		OK bool `json:"ok"`
	}{OK: true}, nil
}

// addr parses a hex address param, wrapping any failure with the field
// name so callers can tell which parameter was malformed.
func addr(field, s string) (types.Address, error) {
	a, err := types.HexToAddress(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return a, nil
}

// hash parses a hex code-hash param, wrapping any failure with the field
// name so callers can tell which parameter was malformed.
func hash(field, s string) (types.Hash, error) {
	h, err := types.HexToHash(s)
	if err != nil {
		return types.Hash{}, fmt.Errorf("%s: %w", field, err)
	}
	return h, nil
}

// Deps bundles the engines a wired Server dispatches into. Each engine
// operates purely against a store.Tx (spec Design Notes §9), so every
// handler here owns exactly one transaction's worth of work.
type Deps struct {
	DB      *store.DB
	Master  *dmaster.Master
	Staking *lpstaking.Engine
	DevFund *devfund.Sink
	Host    *host.Host
}

// RegisterAll wires the methods listed below onto s. SetGovToken, the
// staking and dev-fund ChangeAdmin, ChangeBeneficiary and the public
// Query* methods of the engines are not exposed over RPC.
func RegisterAll(s *Server, d Deps) {
	s.Register("set_schedule", d.handleSetSchedule)
	s.Register("set_weights", d.handleSetWeights)
	s.Register("update_allocation", d.handleUpdateAllocation)
	s.Register("change_admin", d.handleMasterChangeAdmin)

	s.Register("deposit", d.handleDeposit)
	s.Register("redeem", d.handleRedeem)
	s.Register("deposit_rewards", d.handleDepositRewards)
	s.Register("emergency_redeem", d.handleEmergencyRedeem)
	s.Register("claim_reward_pool", d.handleClaimRewardPool)
	s.Register("stop_contract", d.handleStopContract)
	s.Register("resume_contract", d.handleResumeContract)
	s.Register("set_deadline", d.handleSetDeadline)
	s.Register("create_viewing_key", d.handleCreateViewingKey)
	s.Register("set_viewing_key", d.handleSetViewingKey)
	s.Register("query_rewards", d.handleQueryRewards)
	s.Register("query_deposit", d.handleQueryDeposit)

	s.Register("devfund_redeem", d.handleDevFundRedeem)
	s.Register("devfund_refresh_balance", d.handleDevFundRefreshBalance)
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return fmt.Errorf("missing params")
	}
	return json.Unmarshal(params, v)
}

type setScheduleParams struct {
	Caller   string             `json:"caller"`
	Segments []schedule.Segment `json:"segments"`
}

func (d Deps) handleSetSchedule(params json.RawMessage) (interface{}, error) {
	var p setScheduleParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Master.SetSchedule(tx, caller, p.Segments)
	return commitResponse(tx, resp, err)
}

type weightEntryParams struct {
	Address  string `json:"address"`
	CodeHash string `json:"code_hash"`
	Weight   uint64 `json:"weight"`
}

type setWeightsParams struct {
	Caller  string              `json:"caller"`
	Now     uint64              `json:"now"`
	Entries []weightEntryParams `json:"entries"`
}

func (d Deps) handleSetWeights(params json.RawMessage) (interface{}, error) {
	var p setWeightsParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	entries := make([]dmaster.WeightEntry, len(p.Entries))
	for i, e := range p.Entries {
		a, err := addr(fmt.Sprintf("entries[%d].address", i), e.Address)
		if err != nil {
			return nil, err
		}
		h, err := hash(fmt.Sprintf("entries[%d].code_hash", i), e.CodeHash)
		if err != nil {
			return nil, err
		}
		entries[i] = dmaster.WeightEntry{
			Address:  a,
			CodeHash: h,
			Weight:   e.Weight,
		}
	}
	tx := d.DB.Begin()
	resp, err := d.Master.SetWeights(tx, caller, p.Now, entries)
	return commitResponse(tx, resp, err)
}

type updateAllocationParams struct {
	Now     uint64 `json:"now"`
	SpyAddr string `json:"spy_addr"`
	SpyHash string `json:"spy_hash"`
	HookHex string `json:"hook_hex,omitempty"`
}

func (d Deps) handleUpdateAllocation(params json.RawMessage) (interface{}, error) {
	var p updateAllocationParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	spyAddr, err := addr("spy_addr", p.SpyAddr)
	if err != nil {
		return nil, err
	}
	spyHash, err := hash("spy_hash", p.SpyHash)
	if err != nil {
		return nil, err
	}
	var hookBytes []byte
	if p.HookHex != "" {
		hookBytes, err = hex.DecodeString(p.HookHex)
		if err != nil {
			return nil, fmt.Errorf("hook_hex: %w", err)
		}
	}
	resp, err := d.Host.UpdateAllocation(p.Now, spyAddr, spyHash, hookBytes)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type changeAdminParams struct {
	Caller   string `json:"caller"`
	NewAdmin string `json:"new_admin"`
}

func (d Deps) handleMasterChangeAdmin(params json.RawMessage) (interface{}, error) {
	var p changeAdminParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	newAdmin, err := addr("new_admin", p.NewAdmin)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Master.ChangeAdmin(tx, caller, newAdmin)
	return commitResponse(tx, resp, err)
}

type depositParams struct {
	Now    uint64 `json:"now"`
	Sender string `json:"sender"`
	Amount string `json:"amount"`
}

func (d Deps) handleDeposit(params json.RawMessage) (interface{}, error) {
	var p depositParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	sender, err := addr("sender", p.Sender)
	if err != nil {
		return nil, err
	}
	amount, err := types.U128FromString(p.Amount)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.Deposit(tx, p.Now, sender, amount)
	return commitResponse(tx, resp, err)
}

type redeemParams struct {
	Now    uint64  `json:"now"`
	Sender string  `json:"sender"`
	Amount *string `json:"amount,omitempty"`
}

func (d Deps) handleRedeem(params json.RawMessage) (interface{}, error) {
	var p redeemParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	sender, err := addr("sender", p.Sender)
	if err != nil {
		return nil, err
	}
	var amount *types.U128
	if p.Amount != nil {
		v, err := types.U128FromString(*p.Amount)
		if err != nil {
			return nil, err
		}
		amount = &v
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.Redeem(tx, p.Now, sender, amount)
	return commitResponse(tx, resp, err)
}

type depositRewardsParams struct {
	Now    uint64 `json:"now"`
	Amount string `json:"amount"`
}

func (d Deps) handleDepositRewards(params json.RawMessage) (interface{}, error) {
	var p depositRewardsParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	amount, err := types.U128FromString(p.Amount)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.DepositRewards(tx, p.Now, amount)
	return commitResponse(tx, resp, err)
}

type senderParams struct {
	Sender string `json:"sender"`
}

func (d Deps) handleEmergencyRedeem(params json.RawMessage) (interface{}, error) {
	var p senderParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	sender, err := addr("sender", p.Sender)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.EmergencyRedeem(tx, sender)
	return commitResponse(tx, resp, err)
}

type claimRewardPoolParams struct {
	Caller      string `json:"caller"`
	Now         uint64 `json:"now"`
	LiveBalance string `json:"live_balance"`
}

func (d Deps) handleClaimRewardPool(params json.RawMessage) (interface{}, error) {
	var p claimRewardPoolParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	liveBalance, err := types.U128FromString(p.LiveBalance)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.ClaimRewardPool(tx, caller, p.Now, liveBalance)
	return commitResponse(tx, resp, err)
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (d Deps) handleStopContract(params json.RawMessage) (interface{}, error) {
	var p callerParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	err = d.Staking.StopContract(tx, caller)
	return commitOK(tx, err)
}

func (d Deps) handleResumeContract(params json.RawMessage) (interface{}, error) {
	var p callerParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	err = d.Staking.ResumeContract(tx, caller)
	return commitOK(tx, err)
}

type setDeadlineParams struct {
	Caller      string `json:"caller"`
	Now         uint64 `json:"now"`
	NewDeadline uint64 `json:"new_deadline"`
}

func (d Deps) handleSetDeadline(params json.RawMessage) (interface{}, error) {
	var p setDeadlineParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	err = d.Staking.SetDeadline(tx, caller, p.Now, p.NewDeadline)
	return commitOK(tx, err)
}

type createViewingKeyParams struct {
	Sender  string `json:"sender"`
	Entropy string `json:"entropy"`
	Now     uint64 `json:"now"`
}

func (d Deps) handleCreateViewingKey(params json.RawMessage) (interface{}, error) {
	var p createViewingKeyParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	sender, err := addr("sender", p.Sender)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	key, resp, err := d.Staking.CreateViewingKey(tx, sender, []byte(p.Entropy), p.Now)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return struct {
		Key   string            `json:"key"`
		Attrs []sinkmsg.LogAttr `json:"attrs"`
	}{Key: key, Attrs: resp.Attrs}, nil
}

type setViewingKeyParams struct {
	Sender string `json:"sender"`
	Key    string `json:"key"`
}

func (d Deps) handleSetViewingKey(params json.RawMessage) (interface{}, error) {
	var p setViewingKeyParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	sender, err := addr("sender", p.Sender)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	resp, err := d.Staking.SetViewingKey(tx, sender, []byte(p.Key))
	return commitResponse(tx, resp, err)
}

type queryRewardsParams struct {
	Address string `json:"address"`
	Key     string `json:"key"`
	Now     uint64 `json:"now"`
}

func (d Deps) handleQueryRewards(params json.RawMessage) (interface{}, error) {
	var p queryRewardsParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	address, err := addr("address", p.Address)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	defer tx.Rollback()
	amount, err := d.Staking.RewardsOf(tx, address, []byte(p.Key), p.Now)
	if err != nil {
		return nil, err
	}
	return struct {
		Rewards string `json:"rewards"`
	}{Rewards: amount.String()}, nil
}

type queryDepositParams struct {
	Address string `json:"address"`
	Key     string `json:"key"`
}

func (d Deps) handleQueryDeposit(params json.RawMessage) (interface{}, error) {
	var p queryDepositParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	address, err := addr("address", p.Address)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	defer tx.Rollback()
	amount, err := d.Staking.DepositOf(tx, address, []byte(p.Key))
	if err != nil {
		return nil, err
	}
	return struct {
		Deposit string `json:"deposit"`
	}{Deposit: amount.String()}, nil
}

type devFundRedeemParams struct {
	Now         uint64  `json:"now"`
	DevfundAddr string  `json:"devfund_addr"`
	DevfundHash string  `json:"devfund_hash"`
	Caller      string  `json:"caller"`
	To          string  `json:"to"`
	Amount      *string `json:"amount,omitempty"`
}

func (d Deps) handleDevFundRedeem(params json.RawMessage) (interface{}, error) {
	var p devFundRedeemParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	devfundAddr, err := addr("devfund_addr", p.DevfundAddr)
	if err != nil {
		return nil, err
	}
	devfundHash, err := hash("devfund_hash", p.DevfundHash)
	if err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	to := caller
	if p.To != "" {
		to, err = addr("to", p.To)
		if err != nil {
			return nil, err
		}
	}
	var amount *types.U128
	if p.Amount != nil {
		v, err := types.U128FromString(*p.Amount)
		if err != nil {
			return nil, err
		}
		amount = &v
	}
	resp, err := d.Host.RedeemDevFund(d.DevFund, p.Now, devfundAddr, devfundHash, caller, to, amount)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type devFundRefreshBalanceParams struct {
	Caller      string `json:"caller"`
	LiveBalance string `json:"live_balance"`
}

func (d Deps) handleDevFundRefreshBalance(params json.RawMessage) (interface{}, error) {
	var p devFundRefreshBalanceParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	caller, err := addr("caller", p.Caller)
	if err != nil {
		return nil, err
	}
	liveBalance, err := types.U128FromString(p.LiveBalance)
	if err != nil {
		return nil, err
	}
	tx := d.DB.Begin()
	err = d.DevFund.RefreshBalance(tx, caller, liveBalance)
	return commitOK(tx, err)
}
