package ledger

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// UnlockType discriminates the unlock variants.
type UnlockType uint8

const (
	// UnlockSignature proves ownership with an ed25519 signature.
	UnlockSignature UnlockType = iota
	// UnlockReference points at an earlier unlock for the same address.
	UnlockReference
	// UnlockAccount points at the unlock of the controlling account input.
	UnlockAccount
	// UnlockNFT points at the unlock of the controlling nft input.
	UnlockNFT
)

// String returns a human readable representation of the UnlockType.
func (t UnlockType) String() string {
	switch t {
	case UnlockSignature:
		return "signature"
	case UnlockReference:
		return "reference"
	case UnlockAccount:
		return "account"
	case UnlockNFT:
		return "nft"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Ed25519Signature is a public key plus a signature over a signing message.
type Ed25519Signature struct {
	PublicKey HexBytes `json:"publicKey"`
	Signature HexBytes `json:"signature"`
}

// Address returns the address form of the signing public key.
func (s *Ed25519Signature) Address() Ed25519Address {
	return Ed25519Address(blake2b.Sum256(s.PublicKey))
}

// Verify checks the signature over message.
func (s *Ed25519Signature) Verify(message []byte) bool {
	if len(s.PublicKey) != ed25519.PublicKeySize || len(s.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(s.PublicKey), message, s.Signature)
}

// Unlock is the proof attached to one transaction input.
type Unlock interface {
	// Type returns the unlock variant.
	Type() UnlockType
}

// SignatureUnlock unlocks an input with a fresh signature.
type SignatureUnlock struct {
	Signature Ed25519Signature
}

// ReferenceUnlock unlocks an input by referencing the unlock at Index, which
// must carry a signature for the same address.
type ReferenceUnlock struct {
	Index uint16
}

// AccountUnlock unlocks an account-addressed input by referencing the unlock
// of the controlling account's input at Index.
type AccountUnlock struct {
	Index uint16
}

// NFTUnlock unlocks an nft-addressed input by referencing the unlock of the
// controlling nft's input at Index.
type NFTUnlock struct {
	Index uint16
}

func (u *SignatureUnlock) Type() UnlockType { return UnlockSignature }
func (u *ReferenceUnlock) Type() UnlockType { return UnlockReference }
func (u *AccountUnlock) Type() UnlockType   { return UnlockAccount }
func (u *NFTUnlock) Type() UnlockType       { return UnlockNFT }

// unlockEnvelope is the JSON interchange form of an Unlock.
type unlockEnvelope struct {
	Type      string            `json:"type"`
	Signature *Ed25519Signature `json:"signature,omitempty"`
	Index     uint16            `json:"index,omitempty"`
}

// MarshalUnlock encodes an unlock into its tagged JSON envelope.
func MarshalUnlock(u Unlock) (json.RawMessage, error) {
	env := unlockEnvelope{Type: u.Type().String()}
	switch v := u.(type) {
	case *SignatureUnlock:
		sig := v.Signature
		env.Signature = &sig
	case *ReferenceUnlock:
		env.Index = v.Index
	case *AccountUnlock:
		env.Index = v.Index
	case *NFTUnlock:
		env.Index = v.Index
	default:
		return nil, fmt.Errorf("%w: unsupported variant %T", ErrInvalidUnlock, u)
	}
	return json.Marshal(env)
}

// UnmarshalUnlock decodes an unlock from its tagged JSON envelope.
func UnmarshalUnlock(data json.RawMessage) (Unlock, error) {
	var env unlockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUnlock, err)
	}
	switch env.Type {
	case "signature":
		if env.Signature == nil {
			return nil, fmt.Errorf("%w: signature unlock missing signature", ErrInvalidUnlock)
		}
		return &SignatureUnlock{Signature: *env.Signature}, nil
	case "reference":
		return &ReferenceUnlock{Index: env.Index}, nil
	case "account":
		return &AccountUnlock{Index: env.Index}, nil
	case "nft":
		return &NFTUnlock{Index: env.Index}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidUnlock, env.Type)
	}
}

// SignedTransaction is a transaction essence plus one unlock per input.
type SignedTransaction struct {
	Transaction *Transaction
	Unlocks     []Unlock
}

// ID returns the id of the underlying transaction.
func (s *SignedTransaction) ID() (TransactionID, error) {
	return s.Transaction.ID()
}

// Verify checks structural consistency and every signature unlock against
// the essence's signing message.
func (s *SignedTransaction) Verify() error {
	if len(s.Unlocks) != len(s.Transaction.Inputs) {
		return fmt.Errorf("%w: %d unlocks, %d inputs",
			ErrUnlockCountMismatch, len(s.Unlocks), len(s.Transaction.Inputs))
	}
	message, err := s.Transaction.SigningMessage()
	if err != nil {
		return err
	}
	for i, u := range s.Unlocks {
		switch v := u.(type) {
		case *SignatureUnlock:
			if !v.Signature.Verify(message) {
				return fmt.Errorf("%w: unlock %d", ErrInvalidSignature, i)
			}
		case *ReferenceUnlock:
			if int(v.Index) >= i {
				return fmt.Errorf("%w: reference unlock %d points forward", ErrInvalidUnlock, i)
			}
		case *AccountUnlock:
			if int(v.Index) >= i {
				return fmt.Errorf("%w: account unlock %d points forward", ErrInvalidUnlock, i)
			}
		case *NFTUnlock:
			if int(v.Index) >= i {
				return fmt.Errorf("%w: nft unlock %d points forward", ErrInvalidUnlock, i)
			}
		}
	}
	return nil
}

// signedTransactionEnvelope is the JSON interchange form of a SignedTransaction.
type signedTransactionEnvelope struct {
	Transaction *Transaction      `json:"transaction"`
	Unlocks     []json.RawMessage `json:"unlocks"`
}

// MarshalJSON implements json.Marshaler.
func (s *SignedTransaction) MarshalJSON() ([]byte, error) {
	env := signedTransactionEnvelope{Transaction: s.Transaction}
	env.Unlocks = make([]json.RawMessage, len(s.Unlocks))
	for i, u := range s.Unlocks {
		encoded, err := MarshalUnlock(u)
		if err != nil {
			return nil, err
		}
		env.Unlocks[i] = encoded
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SignedTransaction) UnmarshalJSON(data []byte) error {
	var env signedTransactionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUnlock, err)
	}
	s.Transaction = env.Transaction
	s.Unlocks = make([]Unlock, len(env.Unlocks))
	for i, raw := range env.Unlocks {
		u, err := UnmarshalUnlock(raw)
		if err != nil {
			return err
		}
		s.Unlocks[i] = u
	}
	return nil
}
