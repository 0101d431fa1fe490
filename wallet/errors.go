package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned when a block must be issued but the
	// wallet controls no account to issue it with.
	ErrAccountNotFound = errors.New("wallet: no issuer account")
	// ErrAddressNotOwned is returned when an input requires a signature from
	// an address the wallet's key does not control.
	ErrAddressNotOwned = errors.New("wallet: input address not controlled by wallet key")
	// ErrMissingChainInput is returned when a chain-addressed input's
	// controlling chain output is not among the transaction's inputs.
	ErrMissingChainInput = errors.New("wallet: controlling chain output not among inputs")
	// ErrNilParam is returned when a required parameter is nil.
	ErrNilParam = errors.New("wallet: nil parameter")
)

// InsufficientCreditsError reports that the issuing account's block issuance
// credits cannot cover the block's mana cost.
type InsufficientCreditsError struct {
	// Available is the account's current credit balance. May be negative.
	Available int64
	// Required is the block's cost: reference mana cost times work score.
	Required uint64
}

// Error implements the error interface.
func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("wallet: insufficient block issuance credits: available %d, required %d",
		e.Available, e.Required)
}
