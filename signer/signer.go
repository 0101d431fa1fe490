// Package signer provides the secret-manager abstraction: a polymorphic
// signing capability over heterogeneous key-custody backends. Backends hold
// key material exclusively and expose signatures only.
package signer

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

// CoinTypeMesh is the BIP44 coin type of the Mesh ledger.
const CoinTypeMesh = 4219

// Bip44Path addresses one key within a backend's derivation tree. All steps
// are hardened, as ed25519 derivation requires.
type Bip44Path struct {
	CoinType     uint32 `json:"coinType"`
	Account      uint32 `json:"account"`
	Change       uint32 `json:"change"`
	AddressIndex uint32 `json:"addressIndex"`
}

// DefaultBip44Path returns the path of the wallet's first external address.
func DefaultBip44Path() Bip44Path {
	return Bip44Path{CoinType: CoinTypeMesh}
}

// String renders the path in the usual m/44'/... notation.
func (p Bip44Path) String() string {
	return fmt.Sprintf("m/44'/%d'/%d'/%d'/%d'", p.CoinType, p.Account, p.Change, p.AddressIndex)
}

// SecretManager signs transaction material without exposing key material.
// Implementations must serialize concurrent signing calls against shared
// decrypted state; they never retry on failure.
type SecretManager interface {
	// SignEssence signs an opaque essence digest with the key at path.
	SignEssence(ctx context.Context, essence []byte, path Bip44Path) (*ledger.Ed25519Signature, error)

	// PublicKey returns the public key at path.
	PublicKey(ctx context.Context, path Bip44Path) (ed25519.PublicKey, error)

	// Status reports the backend's current state for user prompts. The core
	// never interprets it beyond pass-through.
	Status(ctx context.Context) (Status, error)
}

// Status describes a backend's current state.
type Status struct {
	Backend string      `json:"backend"`
	Locked  bool        `json:"locked,omitempty"`
	Nano    *NanoStatus `json:"nano,omitempty"`
}

// Address derives the ed25519 address controlled by the key at path.
func Address(ctx context.Context, s SecretManager, path Bip44Path) (ledger.Ed25519Address, error) {
	pub, err := s.PublicKey(ctx, path)
	if err != nil {
		return ledger.Ed25519Address{}, err
	}
	return ledger.Ed25519AddressFromPublicKey(pub), nil
}
