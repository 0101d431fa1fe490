// Package wallet orchestrates the client-side transaction lifecycle: input
// selection over the wallet's tracked outputs, unlock generation through a
// secret manager, block issuance feasibility, submission, and acceptance
// tracking.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/meshledger/libmesh-go/ledger"
	"github.com/meshledger/libmesh-go/network"
	"github.com/meshledger/libmesh-go/signer"
)

// Config carries the optional knobs of a Wallet. The zero value selects the
// default derivation path, an in-memory output store, and strict feasibility
// checking.
type Config struct {
	// Path is the BIP44 path of the wallet's signing key. A zero CoinType
	// selects the default path.
	Path signer.Bip44Path

	// Store tracks the wallet's outputs. Nil selects an in-memory store.
	Store OutputStore

	// Accounts are the account chains the wallet controls. The first one is
	// the default block issuer.
	Accounts []ledger.AccountID

	// AllowNegativeBIC skips the block issuance feasibility check before
	// submission. Meant for freshly funded accounts whose credit balance has
	// not caught up yet.
	AllowNegativeBIC bool
}

// Wallet binds a node, a secret manager, and an output store into the
// client-side engine. Safe for concurrent use; prepares are serialized so
// two concurrent transactions never select the same input.
type Wallet struct {
	node   network.NodeService
	secret signer.SecretManager

	path             signer.Bip44Path
	address          ledger.Ed25519Address
	allowNegativeBIC bool

	mu       sync.Mutex
	accounts []ledger.AccountID
	store    OutputStore
}

// New creates a wallet. The wallet address is derived from the secret
// manager's key at the configured path, which for hardware backends may
// require the device to be unlocked.
func New(ctx context.Context, node network.NodeService, secret signer.SecretManager, cfg Config) (*Wallet, error) {
	if node == nil || secret == nil {
		return nil, ErrNilParam
	}
	path := cfg.Path
	if path.CoinType == 0 {
		path = signer.DefaultBip44Path()
	}
	address, err := signer.Address(ctx, secret, path)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive address: %w", err)
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Wallet{
		node:             node,
		secret:           secret,
		path:             path,
		address:          address,
		allowNegativeBIC: cfg.AllowNegativeBIC,
		accounts:         append([]ledger.AccountID(nil), cfg.Accounts...),
		store:            store,
	}, nil
}

// Address returns the wallet's ed25519 address.
func (w *Wallet) Address() ledger.Ed25519Address { return w.address }

// Accounts returns the account chains the wallet controls.
func (w *Wallet) Accounts() []ledger.AccountID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ledger.AccountID(nil), w.accounts...)
}

// AddAccount registers an account chain as wallet-controlled. The first
// registered account becomes the default block issuer.
func (w *Wallet) AddAccount(id ledger.AccountID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, existing := range w.accounts {
		if existing == id {
			return
		}
	}
	w.accounts = append(w.accounts, id)
}

// issuerAccount returns the default block issuer.
func (w *Wallet) issuerAccount() (ledger.AccountID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.accounts) == 0 {
		return ledger.AccountID{}, ErrAccountNotFound
	}
	return w.accounts[0], nil
}

// Sync refreshes the output store from the node's address index: every
// unspent output unlockable by the wallet address is fetched and stored.
// Outputs already tracked keep their reservation state.
func (w *Wallet) Sync(ctx context.Context) error {
	params, err := w.node.ProtocolParameters(ctx)
	if err != nil {
		return err
	}
	bech := w.address.Bech32(params.Bech32HRP)
	ids, err := w.node.OutputIDsByAddress(ctx, bech)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"address": bech,
		"outputs": len(ids),
	}).Debug("wallet: sync")

	for _, id := range ids {
		in, err := w.node.Output(ctx, id)
		if err != nil {
			return fmt.Errorf("wallet: fetch output %s: %w", id, err)
		}
		if in.OutputMetadata.Spent {
			if err := w.store.MarkSpent(id); err != nil {
				return err
			}
			continue
		}
		if err := w.store.PutOutput(in); err != nil {
			return err
		}
	}
	return nil
}
