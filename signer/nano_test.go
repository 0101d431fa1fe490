package signer

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppName = "Mesh"

// readyTransport returns a mock transport for a connected, unlocked device
// running the expected app with blind signing enabled, backed by a real key.
func readyTransport(t *testing.T) *MockNanoTransport {
	t.Helper()
	mem, err := NewInMemorySigner(testSeed)
	require.NoError(t, err)

	locked := false
	return &MockNanoTransport{
		StatusFn: func(ctx context.Context) (NanoStatus, error) {
			return NanoStatus{
				Connected:           true,
				Locked:              &locked,
				BlindSigningEnabled: true,
				App:                 &NanoApp{Name: testAppName, Version: "1.0.2"},
				Device:              NanoX,
			}, nil
		},
		SignEssenceFn: func(ctx context.Context, essence []byte, path Bip44Path) ([]byte, []byte, error) {
			sig, err := mem.SignEssence(ctx, essence, path)
			if err != nil {
				return nil, nil, err
			}
			return sig.PublicKey, sig.Signature, nil
		},
		PublicKeyFn: func(ctx context.Context, path Bip44Path) ([]byte, error) {
			pub, err := mem.PublicKey(ctx, path)
			return []byte(pub), err
		},
	}
}

func TestNanoSigner_Sign(t *testing.T) {
	n := NewNanoSigner(readyTransport(t), testAppName)

	essence := []byte("essence digest")
	sig, err := n.SignEssence(context.Background(), essence, DefaultBip44Path())
	require.NoError(t, err)
	assert.True(t, sig.Verify(essence))
}

func TestNanoSigner_NotConnected(t *testing.T) {
	tr := readyTransport(t)
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{Connected: false}, nil
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, ErrSigningFailed)
}

func TestNanoSigner_DeviceLocked(t *testing.T) {
	tr := readyTransport(t)
	locked := true
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{Connected: true, Locked: &locked}, nil
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrDeviceLocked)
}

func TestNanoSigner_WrongApp(t *testing.T) {
	tr := readyTransport(t)
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{
			Connected:           true,
			BlindSigningEnabled: true,
			App:                 &NanoApp{Name: "Dashboard"},
		}, nil
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrWrongApp)
}

func TestNanoSigner_NoAppOpen(t *testing.T) {
	tr := readyTransport(t)
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{Connected: true, BlindSigningEnabled: true}, nil
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrWrongApp)
}

func TestNanoSigner_BlindSigningDisabled(t *testing.T) {
	tr := readyTransport(t)
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{
			Connected: true,
			App:       &NanoApp{Name: testAppName},
		}, nil
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrBlindSigningDisabled)
}

func TestNanoSigner_TransportError(t *testing.T) {
	tr := readyTransport(t)
	transportErr := errors.New("usb gone")
	tr.StatusFn = func(ctx context.Context) (NanoStatus, error) {
		return NanoStatus{}, transportErr
	}
	n := NewNanoSigner(tr, testAppName)

	_, err := n.SignEssence(context.Background(), []byte("x"), DefaultBip44Path())
	assert.ErrorIs(t, err, ErrSigningFailed)
	assert.ErrorIs(t, err, transportErr)
}

func TestNanoSigner_PublicKey(t *testing.T) {
	n := NewNanoSigner(readyTransport(t), testAppName)

	pub, err := n.PublicKey(context.Background(), DefaultBip44Path())
	require.NoError(t, err)
	assert.Len(t, []byte(pub), ed25519.PublicKeySize)
}

func TestNanoSigner_Status(t *testing.T) {
	n := NewNanoSigner(readyTransport(t), testAppName)

	st, err := n.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nano", st.Backend)
	assert.False(t, st.Locked)
	require.NotNil(t, st.Nano)
	assert.Equal(t, NanoX, st.Nano.Device)
}
