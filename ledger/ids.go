// Package ledger defines the shared data model of the Mesh ledger: object
// identifiers, addresses, outputs, protocol parameters, and the transaction
// essence consumed by the transaction builder and the signing backends.
package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// TransactionIDLength is the byte length of a TransactionID.
	TransactionIDLength = 32

	// OutputIndexLength is the byte length of the output index suffix.
	OutputIndexLength = 2

	// OutputIDLength is the byte length of an OutputID (txid || index).
	OutputIDLength = TransactionIDLength + OutputIndexLength

	// ChainIDLength is the byte length of account/nft/foundry/delegation ids.
	ChainIDLength = 32

	// BlockIDLength is the byte length of a BlockID.
	BlockIDLength = 32

	// CommitmentIDLength is the byte length of a slot commitment id.
	CommitmentIDLength = 32
)

// SlotIndex is the index of a slot on the ledger timeline.
type SlotIndex uint32

// EpochIndex is the index of an epoch (a fixed run of slots).
type EpochIndex uint32

// TransactionID identifies a transaction by the blake2b-256 hash of its essence.
type TransactionID [TransactionIDLength]byte

// BlockID identifies a block.
type BlockID [BlockIDLength]byte

// AccountID identifies an account chain across state transitions.
type AccountID [ChainIDLength]byte

// NFTID identifies an NFT chain across state transitions.
type NFTID [ChainIDLength]byte

// FoundryID identifies a foundry output.
type FoundryID [ChainIDLength]byte

// DelegationID identifies a delegation output.
type DelegationID [ChainIDLength]byte

// NativeTokenID identifies a class of native tokens (derived from the
// minting foundry).
type NativeTokenID [ChainIDLength]byte

// CommitmentID identifies a slot commitment.
type CommitmentID [CommitmentIDLength]byte

// OutputID identifies a confirmed output: transaction id plus output index.
type OutputID [OutputIDLength]byte

// EmptyTransactionID is the zero-value TransactionID.
var EmptyTransactionID TransactionID

// EmptyAccountID is the zero-value AccountID, used on freshly created
// account outputs before their id is fixed by the creating output id.
var EmptyAccountID AccountID

// NewOutputID composes an OutputID from a transaction id and output index.
func NewOutputID(txID TransactionID, index uint16) OutputID {
	var id OutputID
	copy(id[:TransactionIDLength], txID[:])
	binary.BigEndian.PutUint16(id[TransactionIDLength:], index)
	return id
}

// TransactionID returns the id of the transaction that created the output.
func (o OutputID) TransactionID() TransactionID {
	var txID TransactionID
	copy(txID[:], o[:TransactionIDLength])
	return txID
}

// Index returns the output's index within its creating transaction.
func (o OutputID) Index() uint16 {
	return binary.BigEndian.Uint16(o[TransactionIDLength:])
}

// AccountIDFromOutputID derives the id of an account created by outputID.
func AccountIDFromOutputID(outputID OutputID) AccountID {
	return AccountID(blake2b.Sum256(outputID[:]))
}

// NFTIDFromOutputID derives the id of an NFT created by outputID.
func NFTIDFromOutputID(outputID OutputID) NFTID {
	return NFTID(blake2b.Sum256(outputID[:]))
}

// DelegationIDFromOutputID derives the id of a delegation created by outputID.
func DelegationIDFromOutputID(outputID OutputID) DelegationID {
	return DelegationID(blake2b.Sum256(outputID[:]))
}

// hexString renders b as a 0x-prefixed lowercase hex string.
func hexString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// hexDecode parses a 0x-prefixed hex string into dst, enforcing exact length.
func hexDecode(dst []byte, s string) error {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidID, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

func (id TransactionID) String() string { return hexString(id[:]) }
func (id OutputID) String() string      { return hexString(id[:]) }
func (id BlockID) String() string       { return hexString(id[:]) }
func (id AccountID) String() string     { return hexString(id[:]) }
func (id NFTID) String() string         { return hexString(id[:]) }
func (id FoundryID) String() string     { return hexString(id[:]) }
func (id DelegationID) String() string  { return hexString(id[:]) }
func (id NativeTokenID) String() string { return hexString(id[:]) }
func (id CommitmentID) String() string  { return hexString(id[:]) }

func (id TransactionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id OutputID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id BlockID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id AccountID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id NFTID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id FoundryID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DelegationID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id NativeTokenID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CommitmentID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *TransactionID) UnmarshalText(text []byte) error { return hexDecode(id[:], string(text)) }
func (id *OutputID) UnmarshalText(text []byte) error      { return hexDecode(id[:], string(text)) }
func (id *BlockID) UnmarshalText(text []byte) error       { return hexDecode(id[:], string(text)) }
func (id *AccountID) UnmarshalText(text []byte) error     { return hexDecode(id[:], string(text)) }
func (id *NFTID) UnmarshalText(text []byte) error         { return hexDecode(id[:], string(text)) }
func (id *FoundryID) UnmarshalText(text []byte) error     { return hexDecode(id[:], string(text)) }
func (id *DelegationID) UnmarshalText(text []byte) error  { return hexDecode(id[:], string(text)) }
func (id *NativeTokenID) UnmarshalText(text []byte) error { return hexDecode(id[:], string(text)) }
func (id *CommitmentID) UnmarshalText(text []byte) error  { return hexDecode(id[:], string(text)) }

// HexBytes is a byte slice rendered as 0x-prefixed hex in JSON.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(hexString(h)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	*h = raw
	return nil
}

// Equal reports whether two byte slices hold the same bytes.
func (h HexBytes) Equal(other HexBytes) bool {
	return bytes.Equal(h, other)
}
