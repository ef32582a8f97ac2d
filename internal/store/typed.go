package store

import (
	"encoding/json"
	"fmt"
)

// Typed converts tagged-union struct values to/from bytes (JSON) under a
// fixed key, the "typed-store wrapper" design note §9 calls for. Each
// contract package defines its own thin accessors on top of this (e.g.
// master.loadSink, lpstaking.loadUser) rather than calling Typed directly
// everywhere, the way the teacher keeps StateDB access behind named
// getters/setters instead of raw byte keys.
type Typed struct {
	tx     *Tx
	prefix []byte
}

// Namespace returns a Typed view scoped under prefix, so two packages (or
// two sub-records within one package, e.g. "sink:" vs "config") never
// collide on key bytes.
func Namespace(tx *Tx, prefix string) Typed {
	return Typed{tx: tx, prefix: []byte(prefix)}
}

func (t Typed) key(suffix []byte) []byte {
	return append(append([]byte(nil), t.prefix...), suffix...)
}

func (t Typed) PutJSON(suffix []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s%x: %w", t.prefix, suffix, err)
	}
	t.tx.Set(t.key(suffix), b)
	return nil
}

// GetJSON decodes the value stored under suffix into v. It returns
// ErrNotFound, unwrapped, when the key is absent so callers can apply the
// spec §7 "NotFound ... recovered as default" policy themselves.
func (t Typed) GetJSON(suffix []byte, v any) error {
	b, err := t.tx.Get(t.key(suffix))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s%x: %w", t.prefix, suffix, err)
	}
	return nil
}

func (t Typed) Delete(suffix []byte) {
	t.tx.Delete(t.key(suffix))
}

func (t Typed) Has(suffix []byte) (bool, error) {
	return t.tx.Has(t.key(suffix))
}

// Iterate walks every key under this namespace, presenting only the
// suffix (with the namespace prefix stripped); values are not decoded.
func (t Typed) Iterate(fn func(suffix []byte) bool) error {
	return t.tx.IteratePrefix(t.prefix, func(key, _ []byte) bool {
		return fn(key[len(t.prefix):])
	})
}
