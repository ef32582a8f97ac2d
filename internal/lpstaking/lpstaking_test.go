package lpstaking

import (
	"errors"
	"testing"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

func newTestEngine(t *testing.T, deadline, poolClaimBlock uint64) (*Engine, *store.DB, types.Address) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	admin := types.BytesToAddress([]byte("admin"))
	e := New()
	tx := db.Begin()
	cfg := Config{
		Admin:          admin,
		RewardToken:    master.TokenRef{Address: types.BytesToAddress([]byte("reward-token"))},
		IncToken:       master.TokenRef{Address: types.BytesToAddress([]byte("inc-token"))},
		Deadline:       deadline,
		PoolClaimBlock: poolClaimBlock,
		PrngSeed:       []byte("seed"),
	}
	if err := e.Init(tx, cfg, 0); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return e, db, admin
}

func transferAmount(t *testing.T, resp sinkmsg.Response, memo string) (types.U128, bool) {
	t.Helper()
	for _, msg := range resp.Messages {
		if msg.Kind == sinkmsg.KindTransfer && msg.Transfer.Memo == memo {
			return msg.Transfer.Amount, true
		}
	}
	return types.U128{}, false
}

func absDiff(a, b types.U128) (types.U128, error) {
	if a.GreaterThan(b) {
		return a.Sub(b)
	}
	return b.Sub(a)
}

// Scenario 1 from spec §8: single depositor full cycle.
func TestSingleDepositorFullCycle(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	u := types.BytesToAddress([]byte("user"))

	tx := db.Begin()
	if _, err := e.DepositRewards(tx, 1, types.NewU128(1_010_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 2, u, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	resp, err := e.Redeem(tx, 1000, u, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	stakeOut, ok := transferAmount(t, resp, "redeem")
	if !ok {
		t.Fatal("expected a redeem transfer")
	}
	wantStake := types.NewU128(100 * types.IncScale)
	if stakeOut.Cmp(wantStake) != 0 {
		t.Fatalf("want stake %s, got %s", wantStake, stakeOut)
	}

	rewardOut, ok := transferAmount(t, resp, "reward")
	if !ok {
		t.Fatal("expected a reward transfer")
	}
	// 1_010_000 deposited minus Dust (1_000_000) leaves 10_000 pending.
	lo := types.NewU128(9_990)
	hi := types.NewU128(10_000)
	if rewardOut.LessThan(lo) || rewardOut.GreaterThan(hi) {
		t.Fatalf("reward %s outside [9990, 10000]", rewardOut)
	}
}

// Scenario 2 from spec §8: proportional split between two depositors.
func TestProportionalSplit(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	a := types.BytesToAddress([]byte("user-a"))
	b := types.BytesToAddress([]byte("user-b"))

	tx := db.Begin()
	if _, err := e.DepositRewards(tx, 1, types.NewU128(1_010_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 2, a, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 2, b, types.NewU128(300)); err != nil {
		t.Fatal(err)
	}
	respA, err := e.Redeem(tx, 1000, a, nil)
	if err != nil {
		t.Fatal(err)
	}
	respB, err := e.Redeem(tx, 1000, b, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	rewardA, _ := transferAmount(t, respA, "reward")
	rewardB, _ := transferAmount(t, respB, "reward")

	total, err := rewardA.Add(rewardB)
	if err != nil {
		t.Fatal(err)
	}
	quarter, err := types.MulDivFloor(total, types.NewU128(1), types.NewU128(4))
	if err != nil {
		t.Fatal(err)
	}
	diff, err := absDiff(rewardA, quarter)
	if err != nil {
		t.Fatal(err)
	}
	onePercent, err := types.MulDivFloor(total, types.NewU128(1), types.NewU128(100))
	if err != nil {
		t.Fatal(err)
	}
	if diff.GreaterThan(onePercent) {
		t.Fatalf("reward split not within 1%%: a=%s b=%s total=%s", rewardA, rewardB, total)
	}
}

// Scenario 4 from spec §8: stop/resume.
func TestStopResumeCycle(t *testing.T) {
	e, db, admin := newTestEngine(t, 1000, 1001)
	u := types.BytesToAddress([]byte("user"))
	newUser := types.BytesToAddress([]byte("new-user"))

	tx := db.Begin()
	if _, err := e.Deposit(tx, 1, u, types.NewU128(50)); err != nil {
		t.Fatal(err)
	}
	if err := e.StopContract(tx, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 2, u, types.NewU128(10)); !errors.Is(err, errs.ErrContractStopped) {
		t.Fatalf("want ErrContractStopped, got %v", err)
	}

	resp, err := e.EmergencyRedeem(tx, u)
	if err != nil {
		t.Fatal(err)
	}
	stakeOut, ok := transferAmount(t, resp, "emergency_redeem")
	if !ok {
		t.Fatal("expected an emergency_redeem transfer")
	}
	if stakeOut.Cmp(types.NewU128(50*types.IncScale)) != 0 {
		t.Fatalf("want full locked balance 50 (scaled by IncScale), got %s", stakeOut)
	}

	if err := e.ResumeContract(tx, admin); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 3, newUser, types.NewU128(20)); err != nil {
		t.Fatalf("deposit after resume should succeed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

// Invariant I8: in Stopped, only EmergencyRedeem/ResumeContract succeed.
func TestStopSafetyRejectsDeposit(t *testing.T) {
	e, db, admin := newTestEngine(t, 1000, 1001)
	u := types.BytesToAddress([]byte("user"))

	tx := db.Begin()
	if err := e.StopContract(tx, admin); err != nil {
		t.Fatal(err)
	}
	_, err := e.Deposit(tx, 1, u, types.NewU128(10))
	if !errors.Is(err, errs.ErrContractStopped) {
		t.Fatalf("want ErrContractStopped, got %v", err)
	}
}

// Scenario 5 from spec §8: deadline change mid-epoch settles first.
func TestSetDeadlineSettlesBeforeExtending(t *testing.T) {
	e, db, admin := newTestEngine(t, 1000, 1001)
	u := types.BytesToAddress([]byte("user"))

	tx := db.Begin()
	if _, err := e.DepositRewards(tx, 1, types.NewU128(1_001_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 1, u, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	if err := e.SetDeadline(tx, admin, 500, 2000); err != nil {
		t.Fatal(err)
	}

	pool, err := e.loadPool(tx)
	if err != nil {
		t.Fatal(err)
	}
	if pool.LastRewardBlock != 500 {
		t.Fatalf("want last_reward_block 500 after settle, got %d", pool.LastRewardBlock)
	}
	cfg, err := e.loadConfig(tx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Deadline != 2000 {
		t.Fatalf("want deadline 2000, got %d", cfg.Deadline)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

// Invariant I4: no accrual past deadline.
func TestNoAccrualPastDeadline(t *testing.T) {
	e, db, _ := newTestEngine(t, 100, 101)
	u := types.BytesToAddress([]byte("user"))

	tx := db.Begin()
	if _, err := e.DepositRewards(tx, 1, types.NewU128(2_000_000)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 1, u, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	if err := e.updateRewards(tx, 200); err != nil {
		t.Fatal(err)
	}
	poolAt200, err := e.loadPool(tx)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.updateRewards(tx, 300); err != nil {
		t.Fatal(err)
	}
	poolAt300, err := e.loadPool(tx)
	if err != nil {
		t.Fatal(err)
	}
	if poolAt200.AccRewardPerShare.Cmp(poolAt300.AccRewardPerShare) != 0 {
		t.Fatalf("accumulator moved past deadline: %s -> %s", poolAt200.AccRewardPerShare, poolAt300.AccRewardPerShare)
	}
	if poolAt200.PendingRewards.Cmp(poolAt300.PendingRewards) != 0 {
		t.Fatalf("pending_rewards moved past deadline: %s -> %s", poolAt200.PendingRewards, poolAt300.PendingRewards)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 6 from spec §8: viewing-key check (invariant I9).
func TestViewingKeyGating(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	addr := types.BytesToAddress([]byte("user"))
	other := types.BytesToAddress([]byte("other-user"))

	tx := db.Begin()
	if _, err := e.Deposit(tx, 1, addr, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SetViewingKey(tx, addr, []byte("vk1")); err != nil {
		t.Fatal(err)
	}

	if _, err := e.DepositOf(tx, addr, []byte("vk1")); err != nil {
		t.Fatalf("correct key should authenticate: %v", err)
	}
	if _, err := e.DepositOf(tx, addr, []byte("wrong")); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for wrong key, got %v", err)
	}
	if _, err := e.DepositOf(tx, other, []byte("vk1")); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized for wrong address, got %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

// Invariant I2: inc_token_supply tracks the sum of locked balances.
func TestSupplyInvariant(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	a := types.BytesToAddress([]byte("user-a"))
	b := types.BytesToAddress([]byte("user-b"))

	tx := db.Begin()
	if _, err := e.Deposit(tx, 1, a, types.NewU128(100)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Deposit(tx, 1, b, types.NewU128(300)); err != nil {
		t.Fatal(err)
	}

	pool, err := e.loadPool(tx)
	if err != nil {
		t.Fatal(err)
	}
	userA, err := e.loadUser(tx, a)
	if err != nil {
		t.Fatal(err)
	}
	userB, err := e.loadUser(tx, b)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := userA.Locked.Add(userB.Locked)
	if err != nil {
		t.Fatal(err)
	}
	if pool.IncTokenSupply.Cmp(sum) != 0 {
		t.Fatalf("inc_token_supply %s != sum of locked %s", pool.IncTokenSupply, sum)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

// DepositRewards below the dust threshold must be rejected outright
// (Open Question 2, resolved in DESIGN.md).
func TestDepositRewardsRejectsDust(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	tx := db.Begin()
	_, err := e.DepositRewards(tx, 1, types.NewU128(Dust))
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput for amount == dust, got %v", err)
	}
	_, err = e.DepositRewards(tx, 1, types.NewU128(Dust-1))
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput for amount < dust, got %v", err)
	}
}

func TestRedeemRejectsOverdraw(t *testing.T) {
	e, db, _ := newTestEngine(t, 1000, 1001)
	u := types.BytesToAddress([]byte("user"))

	tx := db.Begin()
	if _, err := e.Deposit(tx, 1, u, types.NewU128(50)); err != nil {
		t.Fatal(err)
	}
	tooMuch := types.NewU128(51)
	_, err := e.Redeem(tx, 2, u, &tooMuch)
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestClaimRewardPoolGatedByAdminAndBlock(t *testing.T) {
	e, db, admin := newTestEngine(t, 1000, 1001)
	stranger := types.BytesToAddress([]byte("stranger"))

	tx := db.Begin()
	if _, err := e.ClaimRewardPool(tx, stranger, 1001, types.NewU128(500)); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if _, err := e.ClaimRewardPool(tx, admin, 500, types.NewU128(500)); !errors.Is(err, errs.ErrPrecondition) {
		t.Fatalf("want ErrPrecondition before pool_claim_block, got %v", err)
	}
	resp, err := e.ClaimRewardPool(tx, admin, 1001, types.NewU128(500))
	if err != nil {
		t.Fatal(err)
	}
	out, ok := transferAmount(t, resp, "claim_reward_pool")
	if !ok || out.Cmp(types.NewU128(500)) != 0 {
		t.Fatalf("want claim transfer of 500, got %v ok=%v", out, ok)
	}
}
