// Package guard implements the one shared predicate every admin-gated
// operation in the master allocator, the staking engine and the dev-fund
// sink relies on (spec §4.5): caller equals the stored admin, or fail with
// Unauthorized.
package guard

import (
	"fmt"

	"github.com/emitlabs/reward-engine/internal/errs"
	"github.com/emitlabs/reward-engine/internal/types"
)

// Admin returns errs.ErrUnauthorized when caller is not admin.
func Admin(admin, caller types.Address) error {
	if !admin.Equal(caller) {
		return fmt.Errorf("%w: caller %s is not admin %s", errs.ErrUnauthorized, caller, admin)
	}
	return nil
}

// Address checks caller against an arbitrary expected address (used for
// the beneficiary-only and expected-sender gates in lpstaking/devfund).
func Address(expected, caller types.Address, role string) error {
	if !expected.Equal(caller) {
		return fmt.Errorf("%w: caller %s is not %s %s", errs.ErrUnauthorized, caller, role, expected)
	}
	return nil
}
