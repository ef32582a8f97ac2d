package devfund

import (
	"errors"
	"testing"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

func newTestSink(t *testing.T) (*Sink, *store.DB, Config) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := Config{
		Admin:       types.BytesToAddress([]byte("admin")),
		Beneficiary: types.BytesToAddress([]byte("beneficiary")),
		RewardToken: master.TokenRef{Address: types.BytesToAddress([]byte("reward-token"))},
		Master:      master.TokenRef{Address: types.BytesToAddress([]byte("master"))},
		OwnAddr:     types.BytesToAddress([]byte("devfund")),
	}
	s := New()
	tx := db.Begin()
	if err := s.Init(tx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return s, db, cfg
}

func TestNotifyAllocationAccumulates(t *testing.T) {
	s, db, cfg := newTestSink(t)
	tx := db.Begin()
	if _, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(100), nil); err != nil {
		t.Fatal(err)
	}
	got, err := s.QueryAccumulatedRewards(tx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(types.NewU128(100)) != 0 {
		t.Fatalf("want accumulated 100, got %s", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestNotifyAllocationRejectsOtherCallers(t *testing.T) {
	s, db, _ := newTestSink(t)
	stranger := types.BytesToAddress([]byte("stranger"))
	tx := db.Begin()
	_, err := s.NotifyAllocation(tx, stranger, types.NewU128(100), nil)
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestNotifyAllocationWithRedeemHook(t *testing.T) {
	s, db, cfg := newTestSink(t)
	to := types.BytesToAddress([]byte("payout-target"))

	tx := db.Begin()
	if _, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(100), nil); err != nil {
		t.Fatal(err)
	}

	want := types.NewU128(40)
	hook, err := EncodeRedeemHook(to, &want)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(0), hook)
	if err != nil {
		t.Fatal(err)
	}

	var transferred bool
	for _, msg := range resp.Messages {
		if msg.Kind == sinkmsg.KindTransfer && msg.Transfer.Recipient == to {
			transferred = true
			if msg.Transfer.Amount.Cmp(want) != 0 {
				t.Fatalf("want transfer amount 40, got %s", msg.Transfer.Amount)
			}
		}
	}
	if !transferred {
		t.Fatal("expected a transfer message to the redeem target")
	}

	remaining, err := s.QueryAccumulatedRewards(tx)
	if err != nil {
		t.Fatal(err)
	}
	if remaining.Cmp(types.NewU128(60)) != 0 {
		t.Fatalf("want remaining accumulator 60, got %s", remaining)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestNotifyAllocationRedeemHookRejectsOverdraw(t *testing.T) {
	s, db, cfg := newTestSink(t)
	to := types.BytesToAddress([]byte("payout-target"))

	tx := db.Begin()
	if _, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(10), nil); err != nil {
		t.Fatal(err)
	}
	tooMuch := types.NewU128(20)
	hook, err := EncodeRedeemHook(to, &tooMuch)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(0), hook)
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestRedeemHookDefaultsToFullBalance(t *testing.T) {
	s, db, cfg := newTestSink(t)
	to := types.BytesToAddress([]byte("payout-target"))

	tx := db.Begin()
	if _, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(70), nil); err != nil {
		t.Fatal(err)
	}
	hook, err := EncodeRedeemHook(to, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.NotifyAllocation(tx, cfg.Master.Address, types.NewU128(0), hook)
	if err != nil {
		t.Fatal(err)
	}
	out, ok := firstTransfer(resp)
	if !ok || out.Cmp(types.NewU128(70)) != 0 {
		t.Fatalf("want full-balance redeem of 70, got %v ok=%v", out, ok)
	}
	remaining, err := s.QueryAccumulatedRewards(tx)
	if err != nil {
		t.Fatal(err)
	}
	if !remaining.IsZero() {
		t.Fatalf("want accumulator drained to zero, got %s", remaining)
	}
}

func firstTransfer(resp sinkmsg.Response) (types.U128, bool) {
	for _, msg := range resp.Messages {
		if msg.Kind == sinkmsg.KindTransfer {
			return msg.Transfer.Amount, true
		}
	}
	return types.U128{}, false
}

func TestChangeAdminGate(t *testing.T) {
	s, db, cfg := newTestSink(t)
	stranger := types.BytesToAddress([]byte("stranger"))
	tx := db.Begin()
	if err := s.ChangeAdmin(tx, stranger, stranger); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := s.ChangeAdmin(tx, cfg.Admin, stranger); err != nil {
		t.Fatal(err)
	}
	got, err := s.QueryAdmin(tx)
	if err != nil {
		t.Fatal(err)
	}
	if got != stranger {
		t.Fatalf("want new admin %s, got %s", stranger, got)
	}
}

func TestRequireBeneficiaryGate(t *testing.T) {
	s, db, cfg := newTestSink(t)
	stranger := types.BytesToAddress([]byte("stranger"))
	tx := db.Begin()
	if err := s.RequireBeneficiary(tx, stranger); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if err := s.RequireBeneficiary(tx, cfg.Beneficiary); err != nil {
		t.Fatalf("beneficiary should pass the gate: %v", err)
	}
}
