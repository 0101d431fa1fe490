// Package txbuilder turns a spending intent (desired outputs, burns, state
// transitions) into a protocol-valid unsigned transaction with correct
// remainders. Selection is a pure function over already-fetched data; it
// performs no I/O.
package txbuilder

import (
	"github.com/meshledger/libmesh-go/ledger"
)

// Burn declares objects to destroy. Burning consumes the object's current
// output without creating a replacement. Burning native tokens does not
// require the foundry output which minted them.
type Burn struct {
	// BaseCoin is an amount of base coin to destroy: it is covered by the
	// selected inputs but appears in no output, remainder included.
	BaseCoin     uint64
	NativeTokens map[ledger.NativeTokenID]uint64
	NFTs         []ledger.NFTID
	Foundries    []ledger.FoundryID
	Accounts     []ledger.AccountID
	Delegations  []ledger.DelegationID
}

// NewBurn creates an empty burn intent.
func NewBurn() *Burn {
	return &Burn{NativeTokens: make(map[ledger.NativeTokenID]uint64)}
}

// AddBaseCoin adds an amount of base coin to burn.
func (b *Burn) AddBaseCoin(amount uint64) *Burn {
	b.BaseCoin += amount
	return b
}

// AddNativeTokens adds an amount of one native token class to burn.
func (b *Burn) AddNativeTokens(id ledger.NativeTokenID, amount uint64) *Burn {
	if b.NativeTokens == nil {
		b.NativeTokens = make(map[ledger.NativeTokenID]uint64)
	}
	b.NativeTokens[id] += amount
	return b
}

// AddNFT adds an NFT to burn.
func (b *Burn) AddNFT(id ledger.NFTID) *Burn {
	b.NFTs = append(b.NFTs, id)
	return b
}

// AddFoundry adds a foundry to burn.
func (b *Burn) AddFoundry(id ledger.FoundryID) *Burn {
	b.Foundries = append(b.Foundries, id)
	return b
}

// AddAccount adds an account to burn.
func (b *Burn) AddAccount(id ledger.AccountID) *Burn {
	b.Accounts = append(b.Accounts, id)
	return b
}

// AddDelegation adds a delegation to burn.
func (b *Burn) AddDelegation(id ledger.DelegationID) *Burn {
	b.Delegations = append(b.Delegations, id)
	return b
}

// Empty reports whether the intent requests nothing.
func (b *Burn) Empty() bool {
	if b == nil {
		return true
	}
	return b.BaseCoin == 0 && len(b.NativeTokens) == 0 && len(b.NFTs) == 0 &&
		len(b.Foundries) == 0 && len(b.Accounts) == 0 && len(b.Delegations) == 0
}

// AccountChange mutates an account's block issuer keys.
type AccountChange struct {
	KeysToAdd    []ledger.BlockIssuerKey `json:"keysToAdd,omitempty"`
	KeysToRemove []ledger.BlockIssuerKey `json:"keysToRemove,omitempty"`
}

// Transitions declares state changes for chain outputs. The builder includes
// each targeted chain's current output as input and emits a successor output
// with the mutated state.
type Transitions struct {
	Accounts map[ledger.AccountID]AccountChange
}

// NewTransitions creates an empty transitions intent.
func NewTransitions() *Transitions {
	return &Transitions{Accounts: make(map[ledger.AccountID]AccountChange)}
}

// AddAccount registers a change for one account.
func (t *Transitions) AddAccount(id ledger.AccountID, change AccountChange) *Transitions {
	if t.Accounts == nil {
		t.Accounts = make(map[ledger.AccountID]AccountChange)
	}
	t.Accounts[id] = change
	return t
}

// Empty reports whether the intent requests nothing.
func (t *Transitions) Empty() bool {
	return t == nil || len(t.Accounts) == 0
}

// Options carries the caller-tunable parts of a build. The zero value is a
// plain value transfer.
type Options struct {
	// RemainderAddress receives per-value-type surplus. When nil and a
	// remainder is required, selection fails.
	RemainderAddress ledger.Address

	// Commitment is a caller-supplied commitment context. When set it is
	// reused instead of re-fetched so one transaction never mixes slot
	// references.
	Commitment *ledger.CommitmentID

	// CreationSlot is the slot the transaction is built at; timelocked
	// outputs whose timelock has not expired by this slot are not selected.
	CreationSlot ledger.SlotIndex

	Burn        *Burn
	Transitions *Transitions
}
