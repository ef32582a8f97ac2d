package store

import "testing"

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTxCommitPersists(t *testing.T) {
	db := openTestDB(t)
	tx := db.Begin()
	tx.Set([]byte("foo"), []byte("bar"))
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	v, err := db.Get([]byte("foo"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "bar" {
		t.Fatalf("want bar, got %s", v)
	}
}

func TestTxRollbackDiscardsWrites(t *testing.T) {
	db := openTestDB(t)
	tx := db.Begin()
	tx.Set([]byte("foo"), []byte("bar"))
	tx.Rollback()

	if _, err := db.Get([]byte("foo")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestTxReadsOwnWrites(t *testing.T) {
	db := openTestDB(t)
	tx := db.Begin()
	tx.Set([]byte("foo"), []byte("bar"))
	v, err := tx.Get([]byte("foo"))
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "bar" {
		t.Fatalf("want bar, got %s", v)
	}
}

func TestTypedPutGetJSON(t *testing.T) {
	db := openTestDB(t)
	tx := db.Begin()
	ns := Namespace(tx, "sink:")

	type rec struct {
		Weight uint64 `json:"weight"`
	}
	if err := ns.PutJSON([]byte("addr1"), rec{Weight: 10}); err != nil {
		t.Fatal(err)
	}

	var got rec
	if err := ns.GetJSON([]byte("addr1"), &got); err != nil {
		t.Fatal(err)
	}
	if got.Weight != 10 {
		t.Fatalf("want 10, got %d", got.Weight)
	}

	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	tx2 := db.Begin()
	ns2 := Namespace(tx2, "sink:")
	var got2 rec
	if err := ns2.GetJSON([]byte("addr1"), &got2); err != nil {
		t.Fatal(err)
	}
	if got2.Weight != 10 {
		t.Fatalf("want 10 after commit, got %d", got2.Weight)
	}
}

func TestTypedGetJSONNotFound(t *testing.T) {
	db := openTestDB(t)
	tx := db.Begin()
	ns := Namespace(tx, "sink:")
	var got struct{ Weight uint64 }
	if err := ns.GetJSON([]byte("missing"), &got); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
