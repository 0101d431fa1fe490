package ledger

import "errors"

var (
	// ErrInvalidID indicates an identifier failed hex decoding or has the wrong length.
	ErrInvalidID = errors.New("ledger: invalid identifier")

	// ErrInvalidAddress indicates an address envelope is malformed or of unknown type.
	ErrInvalidAddress = errors.New("ledger: invalid address")

	// ErrInvalidOutput indicates an output envelope is malformed or of unknown type.
	ErrInvalidOutput = errors.New("ledger: invalid output")

	// ErrInvalidUnlock indicates an unlock envelope is malformed or of unknown type.
	ErrInvalidUnlock = errors.New("ledger: invalid unlock")

	// ErrInvalidSignature indicates a signature unlock does not verify against the essence.
	ErrInvalidSignature = errors.New("ledger: invalid signature")

	// ErrUnlockCountMismatch indicates a signed transaction carries a different
	// number of unlocks than inputs.
	ErrUnlockCountMismatch = errors.New("ledger: unlock count does not match input count")
)
