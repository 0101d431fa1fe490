package ledger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// OutputType discriminates the output variants.
type OutputType uint8

const (
	// OutputBasic holds plain value, optional native tokens, and mana.
	OutputBasic OutputType = iota
	// OutputAccount is the state of an account chain.
	OutputAccount
	// OutputFoundry mints and melts one class of native tokens.
	OutputFoundry
	// OutputNFT is the state of an NFT chain.
	OutputNFT
	// OutputDelegation delegates value to a validator.
	OutputDelegation
)

// String returns a human readable representation of the OutputType.
func (t OutputType) String() string {
	switch t {
	case OutputBasic:
		return "basic"
	case OutputAccount:
		return "account"
	case OutputFoundry:
		return "foundry"
	case OutputNFT:
		return "nft"
	case OutputDelegation:
		return "delegation"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// NativeToken is an amount of one native token class carried by an output.
type NativeToken struct {
	ID     NativeTokenID `json:"id"`
	Amount uint64        `json:"amount"`
}

// BlockIssuerKey is an ed25519 public key authorized to issue blocks for an
// account.
type BlockIssuerKey = HexBytes

// Output is an immutable ledger object holding value and unlock rules.
type Output interface {
	// Type returns the output variant.
	Type() OutputType
	// BaseAmount returns the base coin amount held by the output.
	BaseAmount() uint64
	// StoredMana returns the mana stored on the output.
	StoredMana() uint64
	// Tokens returns the native token balances held by the output.
	Tokens() []NativeToken
	// Owner returns the address that controls the output.
	Owner() Address
	// RequiredAddress returns the address whose unlock is required to spend
	// the output at the given slot, or nil when it cannot be expressed as a
	// standalone address (foundries unlock through their account chain).
	RequiredAddress(slot SlotIndex, minAge, maxAge SlotIndex) Address
	// Clone returns a deep copy.
	Clone() Output
}

// BasicOutput holds plain value, optional native tokens, and mana, unlocked
// by its address once any timelock has expired.
type BasicOutput struct {
	Amount       uint64
	Mana         uint64
	NativeTokens []NativeToken
	Address      Address
	// Timelock is the slot before which the output cannot be spent. Zero
	// means no timelock.
	Timelock SlotIndex
}

// AccountOutput is the current state of an account chain.
type AccountOutput struct {
	Amount          uint64
	Mana            uint64
	AccountID       AccountID
	FoundryCounter  uint32
	Address         Address
	BlockIssuerKeys []BlockIssuerKey
}

// FoundryOutput mints and melts one class of native tokens. It is controlled
// by its account chain, not by a standalone address.
type FoundryOutput struct {
	Amount        uint64
	SerialNumber  uint32
	Account       AccountAddress
	MintedTokens  uint64
	MeltedTokens  uint64
	MaximumSupply uint64
	NativeTokens  []NativeToken
}

// NFTOutput is the current state of an NFT chain.
type NFTOutput struct {
	Amount  uint64
	Mana    uint64
	NFTID   NFTID
	Address Address
	Issuer  Address
}

// DelegationOutput delegates its amount to a validator account. Creating one
// requires a commitment context input.
type DelegationOutput struct {
	Amount           uint64
	DelegatedAmount  uint64
	DelegationID     DelegationID
	ValidatorAddress AccountAddress
	Address          Address
	StartEpoch       EpochIndex
}

func (o *BasicOutput) Type() OutputType      { return OutputBasic }
func (o *AccountOutput) Type() OutputType    { return OutputAccount }
func (o *FoundryOutput) Type() OutputType    { return OutputFoundry }
func (o *NFTOutput) Type() OutputType        { return OutputNFT }
func (o *DelegationOutput) Type() OutputType { return OutputDelegation }

func (o *BasicOutput) BaseAmount() uint64      { return o.Amount }
func (o *AccountOutput) BaseAmount() uint64    { return o.Amount }
func (o *FoundryOutput) BaseAmount() uint64    { return o.Amount }
func (o *NFTOutput) BaseAmount() uint64        { return o.Amount }
func (o *DelegationOutput) BaseAmount() uint64 { return o.Amount }

func (o *BasicOutput) StoredMana() uint64      { return o.Mana }
func (o *AccountOutput) StoredMana() uint64    { return o.Mana }
func (o *FoundryOutput) StoredMana() uint64    { return 0 }
func (o *NFTOutput) StoredMana() uint64        { return o.Mana }
func (o *DelegationOutput) StoredMana() uint64 { return 0 }

func (o *BasicOutput) Tokens() []NativeToken      { return o.NativeTokens }
func (o *AccountOutput) Tokens() []NativeToken    { return nil }
func (o *FoundryOutput) Tokens() []NativeToken    { return o.NativeTokens }
func (o *NFTOutput) Tokens() []NativeToken        { return nil }
func (o *DelegationOutput) Tokens() []NativeToken { return nil }

func (o *BasicOutput) Owner() Address      { return o.Address }
func (o *AccountOutput) Owner() Address    { return o.Address }
func (o *FoundryOutput) Owner() Address    { return o.Account }
func (o *NFTOutput) Owner() Address        { return o.Address }
func (o *DelegationOutput) Owner() Address { return o.Address }

func (o *BasicOutput) RequiredAddress(slot, minAge, maxAge SlotIndex) Address {
	return o.Address
}

func (o *AccountOutput) RequiredAddress(slot, minAge, maxAge SlotIndex) Address {
	return o.Address
}

// RequiredAddress returns nil: a foundry unlocks through its account chain
// within the same transaction, so there is no standalone address the indexer
// could be queried for.
func (o *FoundryOutput) RequiredAddress(slot, minAge, maxAge SlotIndex) Address {
	return nil
}

func (o *NFTOutput) RequiredAddress(slot, minAge, maxAge SlotIndex) Address {
	return o.Address
}

func (o *DelegationOutput) RequiredAddress(slot, minAge, maxAge SlotIndex) Address {
	return o.Address
}

func cloneTokens(in []NativeToken) []NativeToken {
	if in == nil {
		return nil
	}
	out := make([]NativeToken, len(in))
	copy(out, in)
	return out
}

func cloneKeys(in []BlockIssuerKey) []BlockIssuerKey {
	if in == nil {
		return nil
	}
	out := make([]BlockIssuerKey, len(in))
	for i, k := range in {
		out[i] = append(BlockIssuerKey(nil), k...)
	}
	return out
}

func (o *BasicOutput) Clone() Output {
	c := *o
	c.NativeTokens = cloneTokens(o.NativeTokens)
	return &c
}

func (o *AccountOutput) Clone() Output {
	c := *o
	c.BlockIssuerKeys = cloneKeys(o.BlockIssuerKeys)
	return &c
}

func (o *FoundryOutput) Clone() Output {
	c := *o
	c.NativeTokens = cloneTokens(o.NativeTokens)
	return &c
}

func (o *NFTOutput) Clone() Output {
	c := *o
	return &c
}

func (o *DelegationOutput) Clone() Output {
	c := *o
	return &c
}

// ID derives the foundry id from the controlling account and serial number.
func (o *FoundryOutput) ID() FoundryID {
	buf := make([]byte, 0, ChainIDLength+4)
	buf = append(buf, o.Account[:]...)
	var serial [4]byte
	binary.BigEndian.PutUint32(serial[:], o.SerialNumber)
	buf = append(buf, serial[:]...)
	return FoundryID(blake2b.Sum256(buf))
}

// TokenID returns the id of the native token class minted by the foundry.
func (o *FoundryOutput) TokenID() NativeTokenID {
	return NativeTokenID(o.ID())
}

// HasBlockIssuerKey reports whether key is among the account's issuer keys.
func (o *AccountOutput) HasBlockIssuerKey(key BlockIssuerKey) bool {
	for _, k := range o.BlockIssuerKeys {
		if k.Equal(key) {
			return true
		}
	}
	return false
}

// outputEnvelope is the flat JSON interchange form shared by all variants.
type outputEnvelope struct {
	Type             string          `json:"type"`
	Amount           uint64          `json:"amount"`
	Mana             uint64          `json:"mana,omitempty"`
	NativeTokens     []NativeToken   `json:"nativeTokens,omitempty"`
	Address          json.RawMessage `json:"address,omitempty"`
	Timelock         SlotIndex       `json:"timelock,omitempty"`
	AccountID        *AccountID      `json:"accountId,omitempty"`
	FoundryCounter   uint32          `json:"foundryCounter,omitempty"`
	BlockIssuerKeys  []BlockIssuerKey `json:"blockIssuerKeys,omitempty"`
	SerialNumber     uint32          `json:"serialNumber,omitempty"`
	MintedTokens     uint64          `json:"mintedTokens,omitempty"`
	MeltedTokens     uint64          `json:"meltedTokens,omitempty"`
	MaximumSupply    uint64          `json:"maximumSupply,omitempty"`
	NFTID            *NFTID          `json:"nftId,omitempty"`
	Issuer           json.RawMessage `json:"issuer,omitempty"`
	DelegatedAmount  uint64          `json:"delegatedAmount,omitempty"`
	DelegationID     *DelegationID   `json:"delegationId,omitempty"`
	ValidatorAddress *AccountID      `json:"validatorAddress,omitempty"`
	StartEpoch       EpochIndex      `json:"startEpoch,omitempty"`
}

// MarshalOutput encodes an output into its tagged JSON envelope.
func MarshalOutput(o Output) (json.RawMessage, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil output", ErrInvalidOutput)
	}
	env := outputEnvelope{Type: o.Type().String(), Amount: o.BaseAmount()}
	var err error
	switch v := o.(type) {
	case *BasicOutput:
		env.Mana = v.Mana
		env.NativeTokens = v.NativeTokens
		env.Timelock = v.Timelock
		env.Address, err = MarshalAddress(v.Address)
	case *AccountOutput:
		env.Mana = v.Mana
		id := v.AccountID
		env.AccountID = &id
		env.FoundryCounter = v.FoundryCounter
		env.BlockIssuerKeys = v.BlockIssuerKeys
		env.Address, err = MarshalAddress(v.Address)
	case *FoundryOutput:
		env.SerialNumber = v.SerialNumber
		id := AccountID(v.Account)
		env.AccountID = &id
		env.MintedTokens = v.MintedTokens
		env.MeltedTokens = v.MeltedTokens
		env.MaximumSupply = v.MaximumSupply
		env.NativeTokens = v.NativeTokens
	case *NFTOutput:
		env.Mana = v.Mana
		id := v.NFTID
		env.NFTID = &id
		env.Address, err = MarshalAddress(v.Address)
		if err == nil && v.Issuer != nil {
			env.Issuer, err = MarshalAddress(v.Issuer)
		}
	case *DelegationOutput:
		env.DelegatedAmount = v.DelegatedAmount
		id := v.DelegationID
		env.DelegationID = &id
		validator := AccountID(v.ValidatorAddress)
		env.ValidatorAddress = &validator
		env.StartEpoch = v.StartEpoch
		env.Address, err = MarshalAddress(v.Address)
	default:
		return nil, fmt.Errorf("%w: unsupported variant %T", ErrInvalidOutput, o)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// UnmarshalOutput decodes an output from its tagged JSON envelope.
func UnmarshalOutput(data json.RawMessage) (Output, error) {
	var env outputEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}

	decodeAddr := func(raw json.RawMessage) (Address, error) {
		if raw == nil {
			return nil, fmt.Errorf("%w: missing address", ErrInvalidOutput)
		}
		return UnmarshalAddress(raw)
	}

	switch env.Type {
	case "basic":
		addr, err := decodeAddr(env.Address)
		if err != nil {
			return nil, err
		}
		return &BasicOutput{
			Amount:       env.Amount,
			Mana:         env.Mana,
			NativeTokens: env.NativeTokens,
			Address:      addr,
			Timelock:     env.Timelock,
		}, nil
	case "account":
		addr, err := decodeAddr(env.Address)
		if err != nil {
			return nil, err
		}
		if env.AccountID == nil {
			return nil, fmt.Errorf("%w: account output missing accountId", ErrInvalidOutput)
		}
		return &AccountOutput{
			Amount:          env.Amount,
			Mana:            env.Mana,
			AccountID:       *env.AccountID,
			FoundryCounter:  env.FoundryCounter,
			Address:         addr,
			BlockIssuerKeys: env.BlockIssuerKeys,
		}, nil
	case "foundry":
		if env.AccountID == nil {
			return nil, fmt.Errorf("%w: foundry output missing accountId", ErrInvalidOutput)
		}
		return &FoundryOutput{
			Amount:        env.Amount,
			SerialNumber:  env.SerialNumber,
			Account:       AccountAddress(*env.AccountID),
			MintedTokens:  env.MintedTokens,
			MeltedTokens:  env.MeltedTokens,
			MaximumSupply: env.MaximumSupply,
			NativeTokens:  env.NativeTokens,
		}, nil
	case "nft":
		addr, err := decodeAddr(env.Address)
		if err != nil {
			return nil, err
		}
		if env.NFTID == nil {
			return nil, fmt.Errorf("%w: nft output missing nftId", ErrInvalidOutput)
		}
		out := &NFTOutput{
			Amount:  env.Amount,
			Mana:    env.Mana,
			NFTID:   *env.NFTID,
			Address: addr,
		}
		if env.Issuer != nil {
			out.Issuer, err = UnmarshalAddress(env.Issuer)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case "delegation":
		addr, err := decodeAddr(env.Address)
		if err != nil {
			return nil, err
		}
		if env.DelegationID == nil || env.ValidatorAddress == nil {
			return nil, fmt.Errorf("%w: delegation output missing ids", ErrInvalidOutput)
		}
		return &DelegationOutput{
			Amount:           env.Amount,
			DelegatedAmount:  env.DelegatedAmount,
			DelegationID:     *env.DelegationID,
			ValidatorAddress: AccountAddress(*env.ValidatorAddress),
			Address:          addr,
			StartEpoch:       env.StartEpoch,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOutput, env.Type)
	}
}

// OutputsEqual reports deep equality of two outputs via their encodings.
func OutputsEqual(a, b Output) bool {
	ab, err := MarshalOutput(a)
	if err != nil {
		return false
	}
	bb, err := MarshalOutput(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
