// Package store models the storage abstraction design note §9 calls for:
// "a transactional ordered-byte-key map with get/set/remove and prefixed
// sub-namespaces". It is backed by goleveldb the way the teacher's StateDB
// is (chain/node/blockchain.go), with an added write-batch transaction
// layer so a contract operation's writes either all land or none do.
package store

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound mirrors leveldb.ErrNotFound so callers don't need to import
// goleveldb directly to recognize a missing key.
var ErrNotFound = errors.New("store: key not found")

// DB is the ordered key/value map every contract instance owns
// independently (spec §6 "Persisted state layout").
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if necessary) a leveldb-backed store at path.
func Open(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{ldb: ldb}, nil
}

// OpenMemory opens an in-memory store, used in tests and in single-process
// deployments that don't need durability across restarts.
func OpenMemory() (*DB, error) {
	ldb, err := leveldb.Open(storage.NewMemStorage(), &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{ldb: ldb}, nil
}

func (d *DB) Close() error { return d.ldb.Close() }

func (d *DB) Get(key []byte) ([]byte, error) {
	v, err := d.ldb.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (d *DB) Has(key []byte) (bool, error) {
	return d.ldb.Has(key, nil)
}

// IteratePrefix calls fn for every key/value pair whose key starts with
// prefix, in ascending key order, stopping early if fn returns false.
func (d *DB) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	it := d.ldb.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		if !fn(append([]byte(nil), it.Key()...), append([]byte(nil), it.Value()...)) {
			break
		}
	}
	return it.Error()
}

// Begin starts a new transaction: a write batch plus a read-through
// overlay, so reads inside the transaction see its own uncommitted writes.
func (d *DB) Begin() *Tx {
	return &Tx{
		db:      d,
		batch:   new(leveldb.Batch),
		overlay: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}
