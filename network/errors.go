package network

import (
	"errors"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

var (
	// ErrConnectionFailed indicates the client could not connect to the node.
	ErrConnectionFailed = errors.New("network: connection failed")

	// ErrInvalidResponse indicates the node returned a malformed or unexpected response.
	ErrInvalidResponse = errors.New("network: invalid response")

	// ErrNotFound indicates the requested object does not exist on the node.
	// During acceptance polling this is transient: the ledger may simply not
	// have indexed the transaction yet.
	ErrNotFound = errors.New("network: not found")
)

// TransactionFailedError reports that the ledger rejected the transaction.
// Terminal; carries the id so the caller can re-query ledger history.
type TransactionFailedError struct {
	ID ledger.TransactionID
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("network: transaction %s failed on the ledger", e.ID)
}

// AcceptanceTimeoutError reports that the retry budget ran out while the
// transaction was still pending. The outcome is unknown; the caller may
// re-poll manually.
type AcceptanceTimeoutError struct {
	ID ledger.TransactionID
}

func (e *AcceptanceTimeoutError) Error() string {
	return fmt.Sprintf("network: transaction %s not accepted within the retry budget", e.ID)
}
