package signer

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
)

// SLIP-10 ed25519 key derivation. Every step is hardened; non-hardened
// derivation does not exist for ed25519.

const hardened = 0x80000000

// slip10MasterKey derives the master key and chain code from a seed.
func slip10MasterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// slip10ChildKey derives one hardened child.
func slip10ChildKey(key, chainCode []byte, index uint32) (childKey, childChainCode []byte) {
	data := make([]byte, 0, 1+32+4)
	data = append(data, 0x00)
	data = append(data, key...)
	var ser [4]byte
	binary.BigEndian.PutUint32(ser[:], index|hardened)
	data = append(data, ser[:]...)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// deriveKey walks m/44'/coinType'/account'/change'/index' from the seed and
// returns the ed25519 private key at that path.
func deriveKey(seed []byte, path Bip44Path) ed25519.PrivateKey {
	key, chain := slip10MasterKey(seed)
	for _, index := range []uint32{44, path.CoinType, path.Account, path.Change, path.AddressIndex} {
		key, chain = slip10ChildKey(key, chain, index)
	}
	return ed25519.NewKeyFromSeed(key)
}
