package signer

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

// NanoDeviceType identifies the hardware model.
type NanoDeviceType string

const (
	NanoS     NanoDeviceType = "nanoS"
	NanoX     NanoDeviceType = "nanoX"
	NanoSPlus NanoDeviceType = "nanoSPlus"
)

// NanoApp is the application open on the device.
type NanoApp struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NanoStatus is a read-only descriptor of a connected device, refreshed on
// demand. Callers use it to guide user prompts; the core never interprets it.
type NanoStatus struct {
	Connected           bool           `json:"connected"`
	Locked              *bool          `json:"locked,omitempty"`
	BlindSigningEnabled bool           `json:"blindSigningEnabled"`
	App                 *NanoApp       `json:"app,omitempty"`
	Device              NanoDeviceType `json:"device,omitempty"`
	BufferSize          uint32         `json:"bufferSize,omitempty"`
}

// NanoTransport is the wire to a hardware signing device. Keys never leave
// the device; the transport only moves status queries and signing requests.
type NanoTransport interface {
	Status(ctx context.Context) (NanoStatus, error)
	SignEssence(ctx context.Context, essence []byte, path Bip44Path) (pub, sig []byte, err error)
	PublicKey(ctx context.Context, path Bip44Path) ([]byte, error)
}

// NanoSigner signs through a hardware device. Transaction essences are
// opaque digests the device cannot fully display, so blind signing must be
// enabled on the device.
type NanoSigner struct {
	transport NanoTransport
	// appName is the application the device must be running.
	appName string
}

var _ SecretManager = (*NanoSigner)(nil)

// NewNanoSigner creates a hardware signer expecting appName to be open on
// the device.
func NewNanoSigner(transport NanoTransport, appName string) *NanoSigner {
	return &NanoSigner{transport: transport, appName: appName}
}

// SignEssence implements SecretManager. The device must be connected,
// unlocked, running the expected app, and have blind signing enabled.
func (n *NanoSigner) SignEssence(ctx context.Context, essence []byte, path Bip44Path) (*ledger.Ed25519Signature, error) {
	st, err := n.transport.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: status query: %w", ErrSigningFailed, err)
	}
	if !st.Connected {
		return nil, ErrNotConnected
	}
	if st.Locked != nil && *st.Locked {
		return nil, ErrDeviceLocked
	}
	if st.App == nil || st.App.Name != n.appName {
		got := "none"
		if st.App != nil {
			got = st.App.Name
		}
		return nil, fmt.Errorf("%w: want %q, have %q", ErrWrongApp, n.appName, got)
	}
	if !st.BlindSigningEnabled {
		return nil, ErrBlindSigningDisabled
	}

	pub, sig, err := n.transport.SignEssence(ctx, essence, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return &ledger.Ed25519Signature{PublicKey: pub, Signature: sig}, nil
}

// PublicKey implements SecretManager.
func (n *NanoSigner) PublicKey(ctx context.Context, path Bip44Path) (ed25519.PublicKey, error) {
	st, err := n.transport.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: status query: %w", ErrSigningFailed, err)
	}
	if !st.Connected {
		return nil, ErrNotConnected
	}
	pub, err := n.transport.PublicKey(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}
	return ed25519.PublicKey(pub), nil
}

// Status implements SecretManager.
func (n *NanoSigner) Status(ctx context.Context) (Status, error) {
	st, err := n.transport.Status(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: status query: %w", ErrSigningFailed, err)
	}
	locked := st.Locked != nil && *st.Locked
	return Status{Backend: "nano", Locked: locked, Nano: &st}, nil
}

// MockNanoTransport is a test double for NanoTransport. All function fields
// must be set before the corresponding method is called.
type MockNanoTransport struct {
	StatusFn      func(ctx context.Context) (NanoStatus, error)
	SignEssenceFn func(ctx context.Context, essence []byte, path Bip44Path) ([]byte, []byte, error)
	PublicKeyFn   func(ctx context.Context, path Bip44Path) ([]byte, error)
}

func (m *MockNanoTransport) Status(ctx context.Context) (NanoStatus, error) {
	return m.StatusFn(ctx)
}
func (m *MockNanoTransport) SignEssence(ctx context.Context, essence []byte, path Bip44Path) ([]byte, []byte, error) {
	return m.SignEssenceFn(ctx, essence, path)
}
func (m *MockNanoTransport) PublicKey(ctx context.Context, path Bip44Path) ([]byte, error) {
	return m.PublicKeyFn(ctx, path)
}
