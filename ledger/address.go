package ledger

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// AddressType discriminates the address variants. The numeric order is also
// the unlock ordering a signed transaction expects: ed25519-controlled
// inputs come first, then account-controlled, then nft-controlled.
type AddressType uint8

const (
	// AddressEd25519 is an address controlled by an ed25519 key pair.
	AddressEd25519 AddressType = iota
	// AddressAccount is an address controlled by an account chain.
	AddressAccount
	// AddressNFT is an address controlled by an NFT chain.
	AddressNFT
)

// String returns a human readable representation of the AddressType.
func (t AddressType) String() string {
	switch t {
	case AddressEd25519:
		return "ed25519"
	case AddressAccount:
		return "account"
	case AddressNFT:
		return "nft"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Address is the ownership half of an output's unlock condition.
type Address interface {
	// Type returns the address variant.
	Type() AddressType
	// Bytes returns the 32-byte address body.
	Bytes() []byte
	// Bech32 renders the address with the given human readable prefix.
	Bech32(hrp string) string
	// Equal reports whether other denotes the same address.
	Equal(other Address) bool
}

// Ed25519Address is the blake2b-256 hash of an ed25519 public key.
type Ed25519Address [32]byte

// AccountAddress is the address form of an AccountID.
type AccountAddress AccountID

// NFTAddress is the address form of an NFTID.
type NFTAddress NFTID

// Ed25519AddressFromPublicKey hashes pub into its address.
func Ed25519AddressFromPublicKey(pub ed25519.PublicKey) Ed25519Address {
	return Ed25519Address(blake2b.Sum256(pub))
}

func (a Ed25519Address) Type() AddressType { return AddressEd25519 }
func (a AccountAddress) Type() AddressType { return AddressAccount }
func (a NFTAddress) Type() AddressType     { return AddressNFT }

func (a Ed25519Address) Bytes() []byte { return a[:] }
func (a AccountAddress) Bytes() []byte { return a[:] }
func (a NFTAddress) Bytes() []byte     { return a[:] }

func (a Ed25519Address) Bech32(hrp string) string { return encodeBech32(hrp, a) }
func (a AccountAddress) Bech32(hrp string) string { return encodeBech32(hrp, a) }
func (a NFTAddress) Bech32(hrp string) string     { return encodeBech32(hrp, a) }

func (a Ed25519Address) Equal(other Address) bool { return addrEqual(a, other) }
func (a AccountAddress) Equal(other Address) bool { return addrEqual(a, other) }
func (a NFTAddress) Equal(other Address) bool     { return addrEqual(a, other) }

func (a Ed25519Address) String() string { return hexString(a[:]) }
func (a AccountAddress) String() string { return hexString(a[:]) }
func (a NFTAddress) String() string     { return hexString(a[:]) }

// AccountID returns the account chain id the address refers to.
func (a AccountAddress) AccountID() AccountID { return AccountID(a) }

// NFTID returns the nft chain id the address refers to.
func (a NFTAddress) NFTID() NFTID { return NFTID(a) }

func addrEqual(a, other Address) bool {
	if other == nil {
		return false
	}
	return a.Type() == other.Type() && bytes.Equal(a.Bytes(), other.Bytes())
}

// encodeBech32 renders a type byte plus the address body in bech32.
func encodeBech32(hrp string, a Address) string {
	data := make([]byte, 0, 33)
	data = append(data, byte(a.Type()))
	data = append(data, a.Bytes()...)
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return ""
	}
	s, err := bech32.Encode(hrp, conv)
	if err != nil {
		return ""
	}
	return s
}

// DecodeBech32 parses a bech32 address string and returns the prefix and address.
func DecodeBech32(s string) (string, Address, error) {
	hrp, conv, err := bech32.Decode(s)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	data, err := bech32.ConvertBits(conv, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(data) != 33 {
		return "", nil, fmt.Errorf("%w: body length %d", ErrInvalidAddress, len(data))
	}
	var body [32]byte
	copy(body[:], data[1:])
	switch AddressType(data[0]) {
	case AddressEd25519:
		return hrp, Ed25519Address(body), nil
	case AddressAccount:
		return hrp, AccountAddress(body), nil
	case AddressNFT:
		return hrp, NFTAddress(body), nil
	default:
		return "", nil, fmt.Errorf("%w: unknown type %d", ErrInvalidAddress, data[0])
	}
}

// addressEnvelope is the JSON interchange form of an Address.
type addressEnvelope struct {
	Type string   `json:"type"`
	Body HexBytes `json:"body"`
}

// MarshalAddress encodes an address into its JSON envelope.
func MarshalAddress(a Address) (json.RawMessage, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil address", ErrInvalidAddress)
	}
	return json.Marshal(addressEnvelope{Type: a.Type().String(), Body: a.Bytes()})
}

// UnmarshalAddress decodes an address from its JSON envelope.
func UnmarshalAddress(data json.RawMessage) (Address, error) {
	var env addressEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(env.Body) != 32 {
		return nil, fmt.Errorf("%w: body length %d", ErrInvalidAddress, len(env.Body))
	}
	var body [32]byte
	copy(body[:], env.Body)
	switch env.Type {
	case "ed25519":
		return Ed25519Address(body), nil
	case "account":
		return AccountAddress(body), nil
	case "nft":
		return NFTAddress(body), nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAddress, env.Type)
	}
}
