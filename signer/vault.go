package signer

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/meshledger/libmesh-go/ledger"
)

const (
	// Argon2id parameters for vault key derivation.
	argon2Time        = 3
	argon2Memory      = 64 * 1024 // 64 MB
	argon2Parallelism = 4
	argon2KeyLen      = 32

	// Vault file layout sizes: salt(16) || nonce(12) || AES-GCM(seed || checksum(4)).
	saltLen     = 16
	nonceLen    = 12
	checksumLen = 4
)

// VaultSigner keeps the seed in an encrypted file and decrypts it on demand
// with a caller-supplied password. After the auto-lock timeout the seed is
// purged from memory and signing fails until the password is re-supplied.
// Signing calls serialize; the decrypted seed is never accessed concurrently.
type VaultSigner struct {
	path    string
	timeout time.Duration

	mu    sync.Mutex
	seed  []byte // nil while locked
	timer *time.Timer
}

var _ SecretManager = (*VaultSigner)(nil)

// NewVaultSigner opens a signer over the encrypted vault file at path. The
// vault starts locked. A zero timeout disables auto-locking.
func NewVaultSigner(path string, timeout time.Duration) *VaultSigner {
	return &VaultSigner{path: path, timeout: timeout}
}

// CreateVault encrypts seed under password and writes a new vault file.
// Fails if a file already exists at path.
func CreateVault(path, password string, seed []byte) error {
	if len(seed) == 0 {
		return ErrInvalidSeed
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrVaultExists, path)
	}
	sealed, err := sealSeed(seed, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, sealed, 0600); err != nil {
		return fmt.Errorf("signer: write vault: %w", err)
	}
	return nil
}

// Unlock decrypts the vault with password and arms the auto-lock timer.
func (v *VaultSigner) Unlock(password string) error {
	encrypted, err := os.ReadFile(v.path)
	if err != nil {
		return fmt.Errorf("signer: read vault: %w", err)
	}
	seed, err := openSeed(encrypted, password)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.zeroizeLocked()
	v.seed = seed
	v.armTimerLocked()
	return nil
}

// Lock purges the decrypted seed immediately.
func (v *VaultSigner) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zeroizeLocked()
}

// SignEssence implements SecretManager. The vault must be unlocked; a
// successful sign re-arms the auto-lock timer.
func (v *VaultSigner) SignEssence(ctx context.Context, essence []byte, path Bip44Path) (*ledger.Ed25519Signature, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seed == nil {
		return nil, ErrVaultLocked
	}
	key := deriveKey(v.seed, path)
	sig := ed25519.Sign(key, essence)
	v.armTimerLocked()
	return &ledger.Ed25519Signature{
		PublicKey: ledger.HexBytes(key.Public().(ed25519.PublicKey)),
		Signature: sig,
	}, nil
}

// PublicKey implements SecretManager.
func (v *VaultSigner) PublicKey(ctx context.Context, path Bip44Path) (ed25519.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.seed == nil {
		return nil, ErrVaultLocked
	}
	key := deriveKey(v.seed, path)
	v.armTimerLocked()
	return key.Public().(ed25519.PublicKey), nil
}

// Status implements SecretManager.
func (v *VaultSigner) Status(ctx context.Context) (Status, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Status{Backend: "vault", Locked: v.seed == nil}, nil
}

// armTimerLocked starts or resets the auto-lock timer. Callers hold v.mu.
func (v *VaultSigner) armTimerLocked() {
	if v.timeout <= 0 {
		return
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	v.timer = time.AfterFunc(v.timeout, v.Lock)
}

// zeroizeLocked overwrites and drops the seed. Callers hold v.mu.
func (v *VaultSigner) zeroizeLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	for i := range v.seed {
		v.seed[i] = 0
	}
	v.seed = nil
}

// sealSeed encrypts the seed with argon2id + AES-256-GCM.
//
// Output format: salt(16) || nonce(12) || AES-GCM(argon2id(password, salt), nonce, seed || checksum)
// where checksum is SHA256(seed)[:4], verified on decryption.
func sealSeed(seed []byte, password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("signer: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)

	digest := sha256.Sum256(seed)
	plaintext := make([]byte, 0, len(seed)+checksumLen)
	plaintext = append(plaintext, seed...)
	plaintext = append(plaintext, digest[:checksumLen]...)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("signer: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("signer: gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("signer: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, saltLen+nonceLen+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// openSeed decrypts a sealed vault file and verifies the seed checksum.
func openSeed(encrypted []byte, password string) ([]byte, error) {
	if len(encrypted) < saltLen+nonceLen+checksumLen {
		return nil, ErrWrongPassword
	}
	salt := encrypted[:saltLen]
	nonce := encrypted[saltLen : saltLen+nonceLen]
	ciphertext := encrypted[saltLen+nonceLen:]

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrWrongPassword
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrWrongPassword
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	if len(plaintext) < checksumLen {
		return nil, ErrWrongPassword
	}

	seed := plaintext[:len(plaintext)-checksumLen]
	digest := sha256.Sum256(seed)
	for i := 0; i < checksumLen; i++ {
		if plaintext[len(seed)+i] != digest[i] {
			return nil, ErrWrongPassword
		}
	}
	return seed, nil
}
