// Package sinkmsg defines the message surface shared by every contract in
// this repository: the outgoing messages a handle call returns (spec §6),
// the opaque NotifyAllocation callback from master to sink, log
// attributes, and the response-padding shared concern (spec §4.5).
package sinkmsg

import (
	"github.com/emitlabs/reward-engine/internal/types"
)

// OutMsg is one outgoing message produced by a handle call. Only one of
// the typed fields is populated; Kind selects which, the way the teacher's
// tagged JSON messages use a discriminator (spec §6: "variants use
// snake_case discriminators").
type OutMsg struct {
	Kind              OutMsgKind         `json:"kind"`
	Mint              *MintMsg           `json:"mint,omitempty"`
	Transfer          *TransferMsg       `json:"transfer,omitempty"`
	NotifyAllocation  *NotifyAllocation  `json:"notify_allocation,omitempty"`
}

type OutMsgKind string

const (
	KindMint             OutMsgKind = "mint"
	KindTransfer         OutMsgKind = "transfer"
	KindNotifyAllocation OutMsgKind = "notify_allocation"
)

// MintMsg mints amount of the governance token to Recipient (spec §6
// "sinks emit mint_msg(recipient, amount, memo, padding, hash, addr)").
type MintMsg struct {
	Recipient types.Address `json:"recipient"`
	Amount    types.U128    `json:"amount"`
	Memo      string        `json:"memo,omitempty"`
}

// TransferMsg moves an already-held balance of a SNIP-20-style token to
// Recipient (spec §6 "transfer_msg(recipient, amount, memo, padding, hash,
// addr)").
type TransferMsg struct {
	Recipient types.Address `json:"recipient"`
	Amount    types.U128    `json:"amount"`
	Memo      string        `json:"memo,omitempty"`
}

// NotifyAllocation is the master->sink callback (spec §6): amount freshly
// minted to the sink, plus an opaque hook the sink decodes per its own
// schema. Hook is forwarded verbatim by the host/master — it never
// inspects it (Design Notes §9: "do not model sinks as a closed sum
// type").
type NotifyAllocation struct {
	To     types.Address `json:"to"`
	Amount types.U128    `json:"amount"`
	Hook   []byte        `json:"hook,omitempty"`
}

func Mint(to types.Address, amount types.U128, memo string) OutMsg {
	return OutMsg{Kind: KindMint, Mint: &MintMsg{Recipient: to, Amount: amount, Memo: memo}}
}

func Transfer(to types.Address, amount types.U128, memo string) OutMsg {
	return OutMsg{Kind: KindTransfer, Transfer: &TransferMsg{Recipient: to, Amount: amount, Memo: memo}}
}

func Notify(to types.Address, amount types.U128, hook []byte) OutMsg {
	return OutMsg{Kind: KindNotifyAllocation, NotifyAllocation: &NotifyAllocation{To: to, Amount: amount, Hook: hook}}
}

// LogAttr is one (key, value) pair attached to a handle response (spec §6
// "(b) log attributes").
type LogAttr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func Attr(key, value string) LogAttr { return LogAttr{Key: key, Value: value} }

// Response is the full result of a handle call: outgoing messages, log
// attributes and an opaque data payload (spec §6).
type Response struct {
	Messages []OutMsg  `json:"messages"`
	Attrs    []LogAttr `json:"attrs"`
	Data     []byte    `json:"data,omitempty"`
}
