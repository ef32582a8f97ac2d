// Package errs defines the error taxonomy shared by the master allocator,
// the staking engine and the dev-fund sink. Errors are sentinel values
// wrapped with fmt.Errorf("...: %w", err) at call sites, the way the
// teacher wraps leveldb/open failures in chain/node/blockchain.go.
package errs

import "errors"

var (
	// ErrUnauthorized: caller is not admin/beneficiary/expected-token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrContractStopped: disallowed operation while stopped.
	ErrContractStopped = errors.New("contract stopped")
	// ErrInvalidInput: malformed pair, unknown choice, amount below dust,
	// past deadline with SetDeadline.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientFunds: redeem amount exceeds stake or accumulator.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrPrecondition: an operation's timing precondition was not met,
	// e.g. ClaimRewardPool before pool_claim_block.
	ErrPrecondition = errors.New("precondition not met")
	// ErrExternalQueryFailure: balance query to an external token failed.
	ErrExternalQueryFailure = errors.New("external query failed")
)
