package lpstaking

import (
	"fmt"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
	"github.com/emitlabs/reward-engine/internal/vkey"
)

// CreateViewingKey derives a fresh key from the contract's prng_seed, the
// caller and caller-supplied entropy, stores its hash, and returns the
// raw key to the caller (spec §4.3).
func (e *Engine) CreateViewingKey(tx *store.Tx, sender types.Address, entropy []byte, now uint64) (string, sinkmsg.Response, error) {
	cfg, err := e.loadConfig(tx)
	if err != nil {
		return "", sinkmsg.Response{}, err
	}
	key := vkey.Derive(cfg.PrngSeed, sender, entropy, now)
	if err := e.saveViewingKeyHash(tx, sender, vkey.Hash(key)); err != nil {
		return "", sinkmsg.Response{}, err
	}
	resp := sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "create_viewing_key")}}
	return fmt.Sprintf("%x", key), resp, nil
}

// SetViewingKey lets the caller install a key of their own choosing in
// place of a derived one (spec §4.3).
func (e *Engine) SetViewingKey(tx *store.Tx, sender types.Address, key []byte) (sinkmsg.Response, error) {
	if err := e.saveViewingKeyHash(tx, sender, vkey.Hash(key)); err != nil {
		return sinkmsg.Response{}, err
	}
	return sinkmsg.Response{Attrs: []sinkmsg.LogAttr{sinkmsg.Attr("action", "set_viewing_key")}}, nil
}

// authenticate enforces invariant I9: a missing key and a wrong key take
// the same code path through vkey.Verify, so no query can distinguish
// "never registered" from "wrong key supplied" by timing.
func (e *Engine) authenticate(tx *store.Tx, addr types.Address, key []byte) error {
	stored, err := e.loadViewingKeyHash(tx, addr)
	if err != nil {
		return err
	}
	if !vkey.Verify(stored, key) {
		return fmt.Errorf("%w: invalid viewing key", errs.ErrUnauthorized)
	}
	return nil
}
