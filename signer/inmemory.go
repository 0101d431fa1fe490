package signer

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/meshledger/libmesh-go/ledger"
)

// InMemorySigner holds a seed in process memory and signs synchronously.
// It has no external state and is always unlocked.
type InMemorySigner struct {
	seed []byte
}

var _ SecretManager = (*InMemorySigner)(nil)

// NewInMemorySigner creates a software signer from a raw seed.
func NewInMemorySigner(seed []byte) (*InMemorySigner, error) {
	if len(seed) == 0 {
		return nil, ErrInvalidSeed
	}
	s := make([]byte, len(seed))
	copy(s, seed)
	return &InMemorySigner{seed: s}, nil
}

// NewInMemorySignerFromMnemonic creates a software signer from a BIP39
// mnemonic and optional passphrase.
func NewInMemorySignerFromMnemonic(mnemonic, passphrase string) (*InMemorySigner, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMnemonic, err)
	}
	return &InMemorySigner{seed: seed}, nil
}

// GenerateMnemonic creates a fresh BIP39 mnemonic with entropyBits of
// entropy (128 for 12 words, 256 for 24 words).
func GenerateMnemonic(entropyBits int) (string, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("signer: generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("signer: generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SignEssence implements SecretManager.
func (s *InMemorySigner) SignEssence(ctx context.Context, essence []byte, path Bip44Path) (*ledger.Ed25519Signature, error) {
	key := deriveKey(s.seed, path)
	sig := ed25519.Sign(key, essence)
	return &ledger.Ed25519Signature{
		PublicKey: ledger.HexBytes(key.Public().(ed25519.PublicKey)),
		Signature: sig,
	}, nil
}

// PublicKey implements SecretManager.
func (s *InMemorySigner) PublicKey(ctx context.Context, path Bip44Path) (ed25519.PublicKey, error) {
	key := deriveKey(s.seed, path)
	return key.Public().(ed25519.PublicKey), nil
}

// Status implements SecretManager.
func (s *InMemorySigner) Status(ctx context.Context) (Status, error) {
	return Status{Backend: "inMemory"}, nil
}
