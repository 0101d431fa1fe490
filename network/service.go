// Package network provides the node-facing client surface: the NodeService
// interface the core consumes, a JSON-RPC implementation, a mock for tests,
// and the transaction acceptance monitor.
package network

import (
	"context"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

// TransactionState is the lifecycle of a submitted transaction as observed
// from the ledger.
type TransactionState uint8

const (
	// TxStatePending means the transaction is known but not yet accepted.
	TxStatePending TransactionState = iota
	// TxStateAccepted means the transaction is accepted by the ledger.
	TxStateAccepted
	// TxStateCommitted means the transaction is part of a committed slot.
	TxStateCommitted
	// TxStateFinalized means the transaction is irreversible.
	TxStateFinalized
	// TxStateFailed means the ledger rejected the transaction.
	TxStateFailed
)

var txStateNames = map[TransactionState]string{
	TxStatePending:   "pending",
	TxStateAccepted:  "accepted",
	TxStateCommitted: "committed",
	TxStateFinalized: "finalized",
	TxStateFailed:    "failed",
}

// String returns a human readable representation of the TransactionState.
func (s TransactionState) String() string {
	if name, ok := txStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// Accepted reports whether the state counts as accepted: any of accepted,
// committed, or finalized satisfies acceptance.
func (s TransactionState) Accepted() bool {
	return s == TxStateAccepted || s == TxStateCommitted || s == TxStateFinalized
}

// MarshalText implements encoding.TextMarshaler.
func (s TransactionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TransactionState) UnmarshalText(text []byte) error {
	for state, name := range txStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("%w: transaction state %q", ErrInvalidResponse, text)
}

// TransactionMetadata is the node's view of a submitted transaction.
type TransactionMetadata struct {
	TransactionID ledger.TransactionID `json:"transactionId"`
	State         TransactionState     `json:"transactionState"`
}

// AccountCongestion is a live, per-account feasibility snapshot. Not cached
// beyond a single check.
type AccountCongestion struct {
	ReferenceManaCost    uint64 `json:"referenceManaCost"`
	BlockIssuanceCredits int64  `json:"blockIssuanceCredits"`
}

// NodeService is the node interaction surface the core consumes. All calls
// are request/response over the network and honor the context.
type NodeService interface {
	// TransactionMetadata returns the state of a submitted transaction.
	// Returns an error wrapping ErrNotFound when the node has not indexed it.
	TransactionMetadata(ctx context.Context, id ledger.TransactionID) (*TransactionMetadata, error)

	// Output returns a confirmed output and its metadata.
	Output(ctx context.Context, id ledger.OutputID) (*ledger.InputSigningData, error)

	// ProtocolParameters returns the current network constants.
	ProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error)

	// SlotIndex returns the current slot.
	SlotIndex(ctx context.Context) (ledger.SlotIndex, error)

	// OutputIDsByAddress returns the ids of outputs unlockable by the
	// bech32-encoded address, as seen by the node's indexer.
	OutputIDsByAddress(ctx context.Context, address string) ([]ledger.OutputID, error)

	// AccountCongestion returns the issuer's live congestion snapshot for a
	// block of the given work score.
	AccountCongestion(ctx context.Context, id ledger.AccountID, workScore uint32) (*AccountCongestion, error)

	// PostBlock submits a signed block and returns its id.
	PostBlock(ctx context.Context, block *ledger.Block) (ledger.BlockID, error)

	// LatestCommitmentID returns the id of the latest slot commitment.
	LatestCommitmentID(ctx context.Context) (ledger.CommitmentID, error)
}
