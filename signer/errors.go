package signer

import (
	"errors"
	"fmt"
)

// ErrSigningFailed is the category every backend failure wraps. Callers can
// match on it without knowing the backend; the wrapped sentinel carries the
// backend-specific detail. The signer never retries internally.
var ErrSigningFailed = errors.New("signer: signing failed")

var (
	// ErrVaultLocked indicates the vault's keys are purged and a password is required.
	ErrVaultLocked = fmt.Errorf("%w: vault locked", ErrSigningFailed)

	// ErrWrongPassword indicates the supplied password does not decrypt the vault.
	ErrWrongPassword = fmt.Errorf("%w: wrong password or corrupted vault", ErrSigningFailed)

	// ErrNotConnected indicates no hardware device is connected.
	ErrNotConnected = fmt.Errorf("%w: device not connected", ErrSigningFailed)

	// ErrDeviceLocked indicates the hardware device is locked.
	ErrDeviceLocked = fmt.Errorf("%w: device locked", ErrSigningFailed)

	// ErrWrongApp indicates the device is running a different application.
	ErrWrongApp = fmt.Errorf("%w: wrong app open on device", ErrSigningFailed)

	// ErrBlindSigningDisabled indicates the device cannot sign opaque data
	// until blind signing is enabled on it.
	ErrBlindSigningDisabled = fmt.Errorf("%w: blind signing disabled on device", ErrSigningFailed)

	// ErrInvalidSeed indicates the seed is empty or malformed.
	ErrInvalidSeed = errors.New("signer: invalid seed")

	// ErrInvalidMnemonic indicates the mnemonic fails BIP39 validation.
	ErrInvalidMnemonic = errors.New("signer: invalid BIP39 mnemonic")

	// ErrVaultExists indicates a vault file already exists at the target path.
	ErrVaultExists = errors.New("signer: vault file already exists")
)
