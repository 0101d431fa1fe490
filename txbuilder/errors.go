package txbuilder

import (
	"errors"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

var (
	// ErrNoAvailableInputs indicates the wallet holds no spendable inputs.
	ErrNoAvailableInputs = errors.New("txbuilder: no available inputs")

	// ErrNoRemainderAddress indicates a remainder is required but no
	// remainder address was supplied.
	ErrNoRemainderAddress = errors.New("txbuilder: remainder required but no remainder address set")

	// ErrBelowStorageDeposit indicates a derived output holds less than its
	// minimum storage deposit.
	ErrBelowStorageDeposit = errors.New("txbuilder: output below minimum storage deposit")

	// ErrInvalidTransition indicates a requested state transition cannot be
	// applied to the current chain state.
	ErrInvalidTransition = errors.New("txbuilder: invalid transition")

	// ErrMissingCommitment indicates an output requires a commitment context
	// input and none was supplied.
	ErrMissingCommitment = errors.New("txbuilder: commitment context input required")

	// ErrNothingToBuild indicates neither outputs nor an intent were given.
	ErrNothingToBuild = errors.New("txbuilder: no outputs and no intent")
)

// InsufficientFundsError reports that the available inputs cannot cover the
// required amount for one value type. TokenID is nil for the base coin.
type InsufficientFundsError struct {
	Available uint64
	Required  uint64
	TokenID   *ledger.NativeTokenID
}

func (e *InsufficientFundsError) Error() string {
	if e.TokenID != nil {
		return fmt.Sprintf("txbuilder: insufficient native tokens %s: available %d, required %d",
			e.TokenID, e.Available, e.Required)
	}
	return fmt.Sprintf("txbuilder: insufficient funds: available %d, required %d",
		e.Available, e.Required)
}

// BurnNotFoundError reports that an object targeted for burning is not
// present among the available inputs.
type BurnNotFoundError struct {
	Kind string // "account", "nft", "foundry", "delegation"
	ID   string
}

func (e *BurnNotFoundError) Error() string {
	return fmt.Sprintf("txbuilder: %s %s targeted for burn not found among available inputs", e.Kind, e.ID)
}
