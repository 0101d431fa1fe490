package network

import (
	"context"
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/sirupsen/logrus"

	"github.com/meshledger/libmesh-go/ledger"
)

// Default acceptance monitor tuning. All values are caller-overridable
// through AcceptanceOptions.
const (
	DefaultAcceptanceInterval    = 500 * time.Millisecond
	DefaultAcceptanceMaxAttempts = 80
	DefaultIndexerInterval       = 50 * time.Millisecond
	DefaultIndexerMaxAttempts    = 20
	DefaultFallbackDelay         = time.Second
)

// AcceptanceOptions tunes WaitForTransactionAcceptance. Zero fields take the
// package defaults.
type AcceptanceOptions struct {
	// Interval between metadata polls.
	Interval time.Duration
	// MaxAttempts bounds the metadata polls.
	MaxAttempts int
	// IndexerInterval between indexer sub-polls after acceptance.
	IndexerInterval time.Duration
	// IndexerMaxAttempts bounds the indexer sub-polls.
	IndexerMaxAttempts int
	// FallbackDelay is the fixed wait before reporting success when the
	// indexer never confirmed the output or its address could not be
	// determined.
	FallbackDelay time.Duration
	// Clock is the time source for all waits. Tests inject a mock.
	Clock clock.Clock
}

func (o AcceptanceOptions) withDefaults() AcceptanceOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultAcceptanceInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultAcceptanceMaxAttempts
	}
	if o.IndexerInterval <= 0 {
		o.IndexerInterval = DefaultIndexerInterval
	}
	if o.IndexerMaxAttempts <= 0 {
		o.IndexerMaxAttempts = DefaultIndexerMaxAttempts
	}
	if o.FallbackDelay <= 0 {
		o.FallbackDelay = DefaultFallbackDelay
	}
	if o.Clock == nil {
		o.Clock = clock.NewDefaultClock()
	}
	return o
}

// WaitForTransactionAcceptance polls the transaction's metadata until the
// ledger accepts it, it fails, or the retry budget runs out.
//
// A not-found response is transient (the node has not indexed the
// transaction yet) and is treated like pending. On the first accepted-class
// state the monitor sub-polls the node's address index until the created
// output is discoverable, compensating for index propagation lag; if the
// output never appears within the sub-poll budget, or its required address
// cannot be determined, the monitor waits FallbackDelay once and still
// reports success — the acceptance signal is authoritative.
//
// The monitor only observes; it is safe to run many monitors concurrently
// for different transaction ids. Cancelling ctx stops polling without
// rolling anything back.
func WaitForTransactionAcceptance(ctx context.Context, svc NodeService, txID ledger.TransactionID, opts AcceptanceOptions) error {
	opts = opts.withDefaults()
	logrus.WithField("transaction", txID).Debug("network: wait for transaction acceptance")

	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		meta, err := svc.TransactionMetadata(ctx, txID)
		switch {
		case err == nil:
			switch {
			case meta.State.Accepted():
				return confirmIndexed(ctx, svc, txID, opts)
			case meta.State == TxStateFailed:
				return &TransactionFailedError{ID: txID}
			}
			// Pending: just need to wait longer.
		case errors.Is(err, ErrNotFound):
			// The node has not indexed the transaction yet.
		default:
			return err
		}

		if err := sleep(ctx, opts.Clock, opts.Interval); err != nil {
			return err
		}
	}

	return &AcceptanceTimeoutError{ID: txID}
}

// confirmIndexed runs the post-acceptance sub-poll against the address
// index. It never fails the overall wait: acceptance has already been
// observed.
func confirmIndexed(ctx context.Context, svc NodeService, txID ledger.TransactionID, opts AcceptanceOptions) error {
	slot, err := svc.SlotIndex(ctx)
	if err != nil {
		return err
	}
	params, err := svc.ProtocolParameters(ctx)
	if err != nil {
		return err
	}

	createdID := ledger.NewOutputID(txID, 0)
	if in, err := svc.Output(ctx, createdID); err == nil {
		minAge, maxAge := params.CommittableAgeRange()
		if addr := in.Output.RequiredAddress(slot, minAge, maxAge); addr != nil {
			bech := addr.Bech32(params.Bech32HRP)
			for i := 0; i < opts.IndexerMaxAttempts; i++ {
				if ids, err := svc.OutputIDsByAddress(ctx, bech); err == nil {
					for _, id := range ids {
						if id == createdID {
							return nil
						}
					}
				}
				if err := sleep(ctx, opts.Clock, opts.IndexerInterval); err != nil {
					return err
				}
			}
		}
	}

	// The indexer never confirmed the output, or its address could not be
	// determined. Give indexing a fixed moment to catch up; the acceptance
	// signal stands either way.
	if err := sleep(ctx, opts.Clock, opts.FallbackDelay); err != nil {
		return err
	}
	return nil
}

// sleep suspends for d or until the context is cancelled.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clk.TickAfter(d):
		return nil
	}
}
