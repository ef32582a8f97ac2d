// Package host is the actor runtime tying the master allocator to its
// registered sinks (spec Design Notes §9: "represent each side as an
// actor with an inbox of tagged messages; cycles are expressed as
// message sends, never shared memory"). It owns the single
// transactional boundary each operation runs inside, so a mint, a
// callback dispatch and every sink-side state update commit or roll
// back together (spec §5).
package host

import (
	"fmt"
	"log/slog"

	"github.com/emitlabs/reward-engine/internal/devfund"
	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/master"
	"github.com/emitlabs/reward-engine/internal/sinkmsg"
	"github.com/emitlabs/reward-engine/internal/store"
	"github.com/emitlabs/reward-engine/internal/types"
)

// SinkNotifier is implemented by any sink capable of receiving the
// master's NotifyAllocation callback. Only the dev-fund sink implements
// one in this spec (§4.4); the LP staking pool is a pure mint recipient
// with no callback processing of its own.
type SinkNotifier interface {
	NotifyAllocation(tx *store.Tx, caller types.Address, amount types.U128, hook []byte) (sinkmsg.Response, error)
}

// Host wires one Master to the sinks registered against it by address.
type Host struct {
	db         *store.DB
	master     *master.Master
	masterSelf types.Address
	log        *slog.Logger

	notifiers map[types.Address]SinkNotifier
}

// New builds a Host. masterSelf is the address the master contract calls
// in as when it invokes a sink's NotifyAllocation handler.
func New(db *store.DB, m *master.Master, masterSelf types.Address, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{db: db, master: m, masterSelf: masterSelf, log: log, notifiers: make(map[types.Address]SinkNotifier)}
}

// RegisterNotifier associates a sink address with its NotifyAllocation
// handler, so dispatch can route the master's callback to it in the same
// transaction as the mint (spec Design Notes §9: "dynamic dispatch over
// sinks... implement as a single callback variant").
func (h *Host) RegisterNotifier(addr types.Address, sink SinkNotifier) {
	h.notifiers[addr] = sink
}

// dispatch walks a handle response's outgoing messages, executing the
// ones the host itself can act on (notify callbacks) and logging the
// ones that cross into the opaque external-token interface (mint,
// transfer) the spec treats as out of scope (spec §6).
func (h *Host) dispatch(tx *store.Tx, resp sinkmsg.Response) (sinkmsg.Response, error) {
	var merged sinkmsg.Response
	merged.Attrs = append(merged.Attrs, resp.Attrs...)

	for _, msg := range resp.Messages {
		switch msg.Kind {
		case sinkmsg.KindMint:
			h.log.Info("mint", "recipient", msg.Mint.Recipient.Hex(), "amount", msg.Mint.Amount.String(), "memo", msg.Mint.Memo)
			merged.Messages = append(merged.Messages, msg)
		case sinkmsg.KindTransfer:
			h.log.Info("transfer", "recipient", msg.Transfer.Recipient.Hex(), "amount", msg.Transfer.Amount.String(), "memo", msg.Transfer.Memo)
			merged.Messages = append(merged.Messages, msg)
		case sinkmsg.KindNotifyAllocation:
			notifier, ok := h.notifiers[msg.NotifyAllocation.To]
			if !ok {
				return sinkmsg.Response{}, fmt.Errorf("%w: no registered notifier for sink %s", errs.ErrPrecondition, msg.NotifyAllocation.To.Hex())
			}
			sub, err := notifier.NotifyAllocation(tx, h.masterAddrOf(msg.NotifyAllocation.To), msg.NotifyAllocation.Amount, msg.NotifyAllocation.Hook)
			if err != nil {
				return sinkmsg.Response{}, fmt.Errorf("notify allocation to %s: %w", msg.NotifyAllocation.To.Hex(), err)
			}
			subDispatched, err := h.dispatch(tx, sub)
			if err != nil {
				return sinkmsg.Response{}, err
			}
			merged.Messages = append(merged.Messages, subDispatched.Messages...)
			merged.Attrs = append(merged.Attrs, subDispatched.Attrs...)
		}
	}
	return merged, nil
}

// masterAddrOf reports the address the master calls in as, when
// delivering a NotifyAllocation to the sink at addr. The master is the
// only caller of NotifyAllocation in this runtime, so this is a fixed
// lookup rather than a per-sink table.
func (h *Host) masterAddrOf(types.Address) types.Address {
	return h.masterSelf
}
