package store

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
)

// Tx is a transactional snapshot of a DB: every state-mutating operation
// in spec §5 executes against one of these, and on any error the snapshot
// is discarded (Rollback) rather than applied (Commit), giving the
// all-writes-or-none atomicity the concurrency model requires.
type Tx struct {
	db      *DB
	batch   *leveldb.Batch
	overlay map[string][]byte
	deleted map[string]bool
}

// Get reads key, preferring the transaction's own uncommitted writes over
// the underlying database so a read-after-write within one operation sees
// its own effect.
func (tx *Tx) Get(key []byte) ([]byte, error) {
	k := string(key)
	if tx.deleted[k] {
		return nil, ErrNotFound
	}
	if v, ok := tx.overlay[k]; ok {
		return v, nil
	}
	return tx.db.Get(key)
}

func (tx *Tx) Has(key []byte) (bool, error) {
	_, err := tx.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (tx *Tx) Set(key, value []byte) {
	k := string(key)
	delete(tx.deleted, k)
	tx.overlay[k] = append([]byte(nil), value...)
	tx.batch.Put(key, value)
}

func (tx *Tx) Delete(key []byte) {
	k := string(key)
	delete(tx.overlay, k)
	tx.deleted[k] = true
	tx.batch.Delete(key)
}

// IteratePrefix sees the underlying database merged with this
// transaction's pending writes and deletes.
func (tx *Tx) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	seen := make(map[string]bool)
	for k, v := range tx.overlay {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			seen[k] = true
			if !fn([]byte(k), v) {
				return nil
			}
		}
	}
	return tx.db.IteratePrefix(prefix, func(key, value []byte) bool {
		k := string(key)
		if seen[k] || tx.deleted[k] {
			return true
		}
		return fn(key, value)
	})
}

// Commit applies every write/delete in the batch atomically.
func (tx *Tx) Commit() error {
	return tx.db.ldb.Write(tx.batch, nil)
}

// Rollback discards the transaction; since nothing was ever written to the
// underlying leveldb, this is just releasing the in-memory overlay.
func (tx *Tx) Rollback() {
	tx.overlay = nil
	tx.deleted = nil
	tx.batch = new(leveldb.Batch)
}
