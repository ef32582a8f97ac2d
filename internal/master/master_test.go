package master

import (
	"errors"
	"testing"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/schedule"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

func newTestMaster(t *testing.T) (*Master, *store.DB, types.Address) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	admin := types.BytesToAddress([]byte("admin"))
	m := New()
	tx := db.Begin()
	if err := m.Init(tx, admin, TokenRef{Address: types.BytesToAddress([]byte("gov"))}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return m, db, admin
}

// Scenario 3 from spec §8: weight retarget.
func TestWeightRetargetScenario(t *testing.T) {
	m, db, admin := newTestMaster(t)
	a := types.BytesToAddress([]byte("sink-a"))
	b := types.BytesToAddress([]byte("sink-b"))

	tx := db.Begin()
	if _, err := m.SetSchedule(tx, admin, []schedule.Segment{{EndBlock: 100, MintPerBlock: types.NewU128(1)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.SetWeights(tx, admin, 0, []WeightEntry{
		{Address: a, Weight: 10},
		{Address: b, Weight: 30},
	}); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx = db.Begin()
	respA, err := m.UpdateAllocation(tx, 100, a, types.Hash{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := mintAmount(t, respA); got != "25" {
		t.Fatalf("sink A: want 25, got %s", got)
	}

	respB, err := m.UpdateAllocation(tx, 100, b, types.Hash{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := mintAmount(t, respB); got != "75" {
		t.Fatalf("sink B: want 75, got %s", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func mintAmount(t *testing.T, resp sinkmsg.Response) string {
	t.Helper()
	for _, msg := range resp.Messages {
		if msg.Kind == sinkmsg.KindMint {
			return msg.Mint.Amount.String()
		}
	}
	t.Fatal("no mint message in response")
	return ""
}

func TestAdminGateRejectsOthers(t *testing.T) {
	m, db, _ := newTestMaster(t)
	notAdmin := types.BytesToAddress([]byte("stranger"))
	tx := db.Begin()
	_, err := m.SetSchedule(tx, notAdmin, nil)
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestWeightConservation(t *testing.T) {
	m, db, admin := newTestMaster(t)
	a := types.BytesToAddress([]byte("sink-a"))
	b := types.BytesToAddress([]byte("sink-b"))

	tx := db.Begin()
	if _, err := m.SetWeights(tx, admin, 0, []WeightEntry{{Address: a, Weight: 10}, {Address: b, Weight: 30}}); err != nil {
		t.Fatal(err)
	}
	cfg, err := m.loadConfig(tx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TotalWeight != 40 {
		t.Fatalf("want total_weight 40, got %d", cfg.TotalWeight)
	}

	if _, err := m.SetWeights(tx, admin, 1, []WeightEntry{{Address: a, Weight: 0}}); err != nil {
		t.Fatal(err)
	}
	cfg, err = m.loadConfig(tx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TotalWeight != 30 {
		t.Fatalf("want total_weight 30 after retiring A, got %d", cfg.TotalWeight)
	}
}
