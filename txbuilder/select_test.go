package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshledger/libmesh-go/ledger"
)

func testParams() *ledger.ProtocolParameters {
	return &ledger.ProtocolParameters{
		Version:      1,
		NetworkName:  "mesh-testnet-1",
		Bech32HRP:    "mesh",
		StorageScore: ledger.StorageScoreParameters{OffsetOutput: 100, FactorData: 1},
	}
}

func testAddr(b byte) ledger.Ed25519Address {
	var a ledger.Ed25519Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testTxID(b byte) ledger.TransactionID {
	var id ledger.TransactionID
	for i := range id {
		id[i] = b
	}
	return id
}

func testToken(b byte) ledger.NativeTokenID {
	var id ledger.NativeTokenID
	for i := range id {
		id[i] = b
	}
	return id
}

var nextInputIndex uint16

func asInput(out ledger.Output) *ledger.InputSigningData {
	nextInputIndex++
	return &ledger.InputSigningData{
		Output: out,
		OutputMetadata: ledger.OutputMetadata{
			OutputID: ledger.NewOutputID(testTxID(0xf0), nextInputIndex),
		},
	}
}

func basicInput(amount uint64, owner ledger.Address, tokens ...ledger.NativeToken) *ledger.InputSigningData {
	return asInput(&ledger.BasicOutput{Amount: amount, NativeTokens: tokens, Address: owner})
}

// ---------------------------------------------------------------------------
// Base coin selection
// ---------------------------------------------------------------------------

func TestSelect_SimpleSendWithRemainder(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 400_000, Address: testAddr(0x02)}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)

	require.Len(t, prepared.InputsData, 1)
	require.Len(t, prepared.Transaction.Outputs, 2)
	require.Len(t, prepared.Remainders, 1)

	remainder := prepared.Remainders[0].Output.(*ledger.BasicOutput)
	assert.Equal(t, uint64(600_000), remainder.Amount)
	assert.True(t, prepared.Remainders[0].Address.Equal(wallet))

	// Value conservation: inputs == outputs.
	var outSum uint64
	for _, out := range prepared.Transaction.Outputs {
		outSum += out.BaseAmount()
	}
	assert.Equal(t, uint64(1_000_000), outSum)
}

func TestSelect_ExactCoverNoRemainder(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(400_000, wallet)}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 400_000, Address: testAddr(0x02)}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)
	assert.Empty(t, prepared.Remainders)
	assert.Len(t, prepared.Transaction.Outputs, 1)
}

func TestSelect_MinimalInputSet(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet),
		basicInput(1_000_000, wallet),
		basicInput(1_000_000, wallet),
	}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 1_500_000, Address: testAddr(0x02)}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)
	assert.Len(t, prepared.InputsData, 2)
}

func TestSelect_InsufficientFunds(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 2_000_000, Address: testAddr(0x02)}}

	_, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, uint64(1_000_000), insufficient.Available)
	assert.Equal(t, uint64(2_000_000), insufficient.Required)
	assert.Nil(t, insufficient.TokenID)
}

func TestSelect_NothingToBuild(t *testing.T) {
	_, err := Select(nil, nil, Options{}, testParams())
	assert.ErrorIs(t, err, ErrNothingToBuild)
}

func TestSelect_NoAvailableInputs(t *testing.T) {
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 400_000, Address: testAddr(0x02)}}
	_, err := Select(nil, outputs, Options{}, testParams())
	assert.ErrorIs(t, err, ErrNoAvailableInputs)
}

func TestSelect_OutputBelowStorageDeposit(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 1, Address: testAddr(0x02)}}

	_, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	assert.ErrorIs(t, err, ErrBelowStorageDeposit)
}

func TestSelect_NoRemainderAddress(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 400_000, Address: testAddr(0x02)}}

	_, err := Select(available, outputs, Options{}, testParams())
	assert.ErrorIs(t, err, ErrNoRemainderAddress)
}

func TestSelect_RemainderBelowDepositToppedUp(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet),
		basicInput(1_000_000, wallet),
	}
	// Leaves a remainder of 10, below any storage deposit.
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 999_990, Address: testAddr(0x02)}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)

	assert.Len(t, prepared.InputsData, 2)
	require.Len(t, prepared.Remainders, 1)
	assert.Equal(t, uint64(1_000_010), prepared.Remainders[0].Output.BaseAmount())
}

func TestSelect_TopUpInputTokensReachRemainder(t *testing.T) {
	wallet := testAddr(0x01)
	tokenA := testToken(0xaa)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet),
		basicInput(1_000_000, wallet, ledger.NativeToken{ID: tokenA, Amount: 100}),
	}
	// Leaves a remainder of 10, below any storage deposit, so the
	// token-carrying second input is pulled in as top-up.
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 999_990, Address: testAddr(0x02)}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)
	assert.Len(t, prepared.InputsData, 2)

	require.Len(t, prepared.Remainders, 1)
	remainder := prepared.Remainders[0].Output.(*ledger.BasicOutput)
	assert.Equal(t, uint64(1_000_010), remainder.Amount)
	require.Len(t, remainder.NativeTokens, 1)
	assert.Equal(t, tokenA, remainder.NativeTokens[0].ID)
	assert.Equal(t, uint64(100), remainder.NativeTokens[0].Amount)

	// Token conservation: what the inputs carry, the outputs carry.
	inTokens := map[ledger.NativeTokenID]uint64{}
	for _, in := range prepared.InputsData {
		for _, tok := range in.Output.Tokens() {
			inTokens[tok.ID] += tok.Amount
		}
	}
	outTokens := map[ledger.NativeTokenID]uint64{}
	for _, out := range prepared.Transaction.Outputs {
		for _, tok := range out.Tokens() {
			outTokens[tok.ID] += tok.Amount
		}
	}
	assert.Equal(t, inTokens, outTokens)
}

func TestSelect_TimelockedInputSkipped(t *testing.T) {
	wallet := testAddr(0x01)
	locked := asInput(&ledger.BasicOutput{Amount: 1_000_000, Address: wallet, Timelock: 100})
	available := []*ledger.InputSigningData{locked}
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 400_000, Address: testAddr(0x02)}}

	// Before the timelock expires the input is invisible.
	_, err := Select(available, outputs, Options{RemainderAddress: wallet, CreationSlot: 50}, testParams())
	var insufficient *InsufficientFundsError
	assert.ErrorAs(t, err, &insufficient)

	// After expiry it is selectable.
	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet, CreationSlot: 150}, testParams())
	require.NoError(t, err)
	assert.Len(t, prepared.InputsData, 1)
}

// ---------------------------------------------------------------------------
// Native token selection
// ---------------------------------------------------------------------------

func TestSelect_NativeTokenCovering(t *testing.T) {
	wallet := testAddr(0x01)
	tokenA := testToken(0xaa)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet), // no tokens
		basicInput(1_000_000, wallet, ledger.NativeToken{ID: tokenA, Amount: 100}),
	}
	outputs := []ledger.Output{&ledger.BasicOutput{
		Amount:       400_000,
		Address:      testAddr(0x02),
		NativeTokens: []ledger.NativeToken{{ID: tokenA, Amount: 60}},
	}}

	prepared, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	require.NoError(t, err)

	// The token-carrying input suffices for tokens and base coin.
	require.Len(t, prepared.InputsData, 1)
	require.Len(t, prepared.Remainders, 1)
	remainder := prepared.Remainders[0].Output.(*ledger.BasicOutput)
	require.Len(t, remainder.NativeTokens, 1)
	assert.Equal(t, tokenA, remainder.NativeTokens[0].ID)
	assert.Equal(t, uint64(40), remainder.NativeTokens[0].Amount)
}

func TestSelect_InsufficientNativeTokens(t *testing.T) {
	wallet := testAddr(0x01)
	tokenA := testToken(0xaa)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet, ledger.NativeToken{ID: tokenA, Amount: 100}),
	}
	outputs := []ledger.Output{&ledger.BasicOutput{
		Amount:       400_000,
		Address:      testAddr(0x02),
		NativeTokens: []ledger.NativeToken{{ID: tokenA, Amount: 200}},
	}}

	_, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.NotNil(t, insufficient.TokenID)
	assert.Equal(t, tokenA, *insufficient.TokenID)
	assert.Equal(t, uint64(100), insufficient.Available)
	assert.Equal(t, uint64(200), insufficient.Required)
}

// ---------------------------------------------------------------------------
// Burning
// ---------------------------------------------------------------------------

func TestSelect_BurnNativeTokensWithoutFoundry(t *testing.T) {
	wallet := testAddr(0x01)
	tokenA := testToken(0xaa)
	available := []*ledger.InputSigningData{
		basicInput(1_000_000, wallet, ledger.NativeToken{ID: tokenA, Amount: 100}),
	}

	burn := NewBurn().AddNativeTokens(tokenA, 40)
	prepared, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())
	require.NoError(t, err)

	// The burned amount simply never reappears; the rest flows to the remainder.
	require.Len(t, prepared.Remainders, 1)
	remainder := prepared.Remainders[0].Output.(*ledger.BasicOutput)
	require.Len(t, remainder.NativeTokens, 1)
	assert.Equal(t, uint64(60), remainder.NativeTokens[0].Amount)
}

func TestSelect_BurnBaseCoin(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}

	burn := NewBurn().AddBaseCoin(300_000)
	prepared, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())
	require.NoError(t, err)

	// The burned coin reaches no output; only the rest returns.
	require.Len(t, prepared.Remainders, 1)
	assert.Equal(t, uint64(700_000), prepared.Remainders[0].Output.BaseAmount())

	var outSum uint64
	for _, out := range prepared.Transaction.Outputs {
		outSum += out.BaseAmount()
	}
	assert.Equal(t, uint64(700_000), outSum)
}

func TestSelect_BurnBaseCoinInsufficient(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}

	burn := NewBurn().AddBaseCoin(2_000_000)
	_, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, uint64(2_000_000), insufficient.Required)
}

func TestSelect_BurnNFT(t *testing.T) {
	wallet := testAddr(0x01)
	var nftID ledger.NFTID
	nftID[0] = 0x99
	nft := asInput(&ledger.NFTOutput{Amount: 500_000, NFTID: nftID, Address: wallet})
	available := []*ledger.InputSigningData{nft}

	burn := NewBurn().AddNFT(nftID)
	prepared, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())
	require.NoError(t, err)

	// Consumed with no successor: the only output is the remainder.
	require.Len(t, prepared.InputsData, 1)
	require.Len(t, prepared.Transaction.Outputs, 1)
	assert.Equal(t, uint64(500_000), prepared.Transaction.Outputs[0].BaseAmount())
}

func TestSelect_BurnFoundryRequiresItsOutput(t *testing.T) {
	wallet := testAddr(0x01)
	var foundryID ledger.FoundryID
	foundryID[0] = 0x77

	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	burn := NewBurn().AddFoundry(foundryID)

	_, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())

	var notFound *BurnNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "foundry", notFound.Kind)
	assert.Equal(t, foundryID.String(), notFound.ID)
}

func TestSelect_BurnAccount(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))
	account := asInput(&ledger.AccountOutput{Amount: 800_000, AccountID: accountID, Address: wallet})
	available := []*ledger.InputSigningData{account}

	burn := NewBurn().AddAccount(accountID)
	prepared, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())
	require.NoError(t, err)

	require.Len(t, prepared.Transaction.Outputs, 1)
	_, isBasic := prepared.Transaction.Outputs[0].(*ledger.BasicOutput)
	assert.True(t, isBasic, "no account successor may be created")
}

func TestSelect_BurnDelegationNotFound(t *testing.T) {
	wallet := testAddr(0x01)
	var delegationID ledger.DelegationID
	delegationID[0] = 0x66

	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	burn := NewBurn().AddDelegation(delegationID)

	_, err := Select(available, nil, Options{RemainderAddress: wallet, Burn: burn}, testParams())

	var notFound *BurnNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "delegation", notFound.Kind)
}

// ---------------------------------------------------------------------------
// Account transitions
// ---------------------------------------------------------------------------

func testCommitment() *ledger.CommitmentID {
	var c ledger.CommitmentID
	c[0] = 0xcc
	return &c
}

func TestSelect_AccountTransitionAddsKey(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))
	k1 := ledger.BlockIssuerKey{0x01}
	k2 := ledger.BlockIssuerKey{0x02}

	account := asInput(&ledger.AccountOutput{
		Amount:          800_000,
		AccountID:       accountID,
		Address:         wallet,
		BlockIssuerKeys: []ledger.BlockIssuerKey{k1},
	})
	available := []*ledger.InputSigningData{account}

	transitions := NewTransitions().AddAccount(accountID, AccountChange{KeysToAdd: []ledger.BlockIssuerKey{k2}})
	prepared, err := Select(available, nil, Options{
		RemainderAddress: wallet,
		Transitions:      transitions,
		Commitment:       testCommitment(),
	}, testParams())
	require.NoError(t, err)

	var successor *ledger.AccountOutput
	for _, out := range prepared.Transaction.Outputs {
		if acc, ok := out.(*ledger.AccountOutput); ok {
			successor = acc
		}
	}
	require.NotNil(t, successor)
	assert.Equal(t, accountID, successor.AccountID)
	assert.True(t, successor.HasBlockIssuerKey(k1))
	assert.True(t, successor.HasBlockIssuerKey(k2))
	require.Len(t, prepared.Transaction.ContextInputs, 1)
	assert.Equal(t, *testCommitment(), prepared.Transaction.ContextInputs[0].Commitment)
}

func TestSelect_AccountTransitionRemovesKey(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))
	k1 := ledger.BlockIssuerKey{0x01}
	k2 := ledger.BlockIssuerKey{0x02}

	account := asInput(&ledger.AccountOutput{
		Amount:          800_000,
		AccountID:       accountID,
		Address:         wallet,
		BlockIssuerKeys: []ledger.BlockIssuerKey{k1, k2},
	})
	available := []*ledger.InputSigningData{account}

	transitions := NewTransitions().AddAccount(accountID, AccountChange{KeysToRemove: []ledger.BlockIssuerKey{k1}})
	prepared, err := Select(available, nil, Options{
		RemainderAddress: wallet,
		Transitions:      transitions,
		Commitment:       testCommitment(),
	}, testParams())
	require.NoError(t, err)

	var successor *ledger.AccountOutput
	for _, out := range prepared.Transaction.Outputs {
		if acc, ok := out.(*ledger.AccountOutput); ok {
			successor = acc
		}
	}
	require.NotNil(t, successor)
	assert.False(t, successor.HasBlockIssuerKey(k1))
	assert.True(t, successor.HasBlockIssuerKey(k2))
}

func TestSelect_TransitionErrors(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))
	k1 := ledger.BlockIssuerKey{0x01}

	account := asInput(&ledger.AccountOutput{
		Amount:          800_000,
		AccountID:       accountID,
		Address:         wallet,
		BlockIssuerKeys: []ledger.BlockIssuerKey{k1},
	})

	tests := []struct {
		name    string
		change  AccountChange
		wantErr error
	}{
		{
			name:    "add_duplicate_key",
			change:  AccountChange{KeysToAdd: []ledger.BlockIssuerKey{k1}},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "remove_missing_key",
			change:  AccountChange{KeysToRemove: []ledger.BlockIssuerKey{{0x09}}},
			wantErr: ErrInvalidTransition,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transitions := NewTransitions().AddAccount(accountID, tc.change)
			_, err := Select([]*ledger.InputSigningData{account}, nil, Options{
				RemainderAddress: wallet,
				Transitions:      transitions,
				Commitment:       testCommitment(),
			}, testParams())
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestSelect_TransitionUnknownAccount(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}

	transitions := NewTransitions().AddAccount(ledger.AccountID(testAddr(0x55)), AccountChange{})
	_, err := Select(available, nil, Options{
		RemainderAddress: wallet,
		Transitions:      transitions,
		Commitment:       testCommitment(),
	}, testParams())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSelect_TransitionWithoutCommitment(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))
	account := asInput(&ledger.AccountOutput{Amount: 800_000, AccountID: accountID, Address: wallet})

	transitions := NewTransitions().AddAccount(accountID, AccountChange{})
	_, err := Select([]*ledger.InputSigningData{account}, nil, Options{
		RemainderAddress: wallet,
		Transitions:      transitions,
	}, testParams())
	assert.ErrorIs(t, err, ErrMissingCommitment)
}

func TestSelect_DelegationOutputWithoutCommitment(t *testing.T) {
	wallet := testAddr(0x01)
	available := []*ledger.InputSigningData{basicInput(1_000_000, wallet)}
	outputs := []ledger.Output{&ledger.DelegationOutput{
		Amount:           500_000,
		DelegatedAmount:  500_000,
		ValidatorAddress: ledger.AccountAddress(testAddr(0x08)),
		Address:          wallet,
	}}

	_, err := Select(available, outputs, Options{RemainderAddress: wallet}, testParams())
	assert.ErrorIs(t, err, ErrMissingCommitment)

	prepared, err := Select(available, outputs, Options{
		RemainderAddress: wallet,
		Commitment:       testCommitment(),
	}, testParams())
	require.NoError(t, err)
	require.Len(t, prepared.Transaction.ContextInputs, 1)
}

// ---------------------------------------------------------------------------
// Input ordering
// ---------------------------------------------------------------------------

func TestSelect_InputsOrderedByAddressType(t *testing.T) {
	wallet := testAddr(0x01)
	accountID := ledger.AccountID(testAddr(0x55))

	// An account-owned basic output and a foundry sort after ed25519-owned
	// inputs; the foundry has no standalone address and joins the account group.
	accountOwned := asInput(&ledger.BasicOutput{
		Amount:  1_000_000,
		Address: ledger.AccountAddress(accountID),
	})
	foundry := asInput(&ledger.FoundryOutput{
		Amount:       200_000,
		SerialNumber: 1,
		Account:      ledger.AccountAddress(accountID),
	})
	ed25519Owned := basicInput(1_000_000, wallet)

	burn := NewBurn().AddFoundry(foundry.Output.(*ledger.FoundryOutput).ID())
	outputs := []ledger.Output{&ledger.BasicOutput{Amount: 1_900_000, Address: testAddr(0x02)}}

	prepared, err := Select(
		[]*ledger.InputSigningData{accountOwned, foundry, ed25519Owned},
		outputs,
		Options{RemainderAddress: wallet, Burn: burn},
		testParams(),
	)
	require.NoError(t, err)
	require.Len(t, prepared.InputsData, 3)

	first := prepared.InputsData[0].Output.RequiredAddress(0, 0, 0)
	require.NotNil(t, first)
	assert.Equal(t, ledger.AddressEd25519, first.Type())

	// Transaction inputs follow the same order as the signing data.
	for i, in := range prepared.InputsData {
		assert.Equal(t, in.OutputID(), prepared.Transaction.Inputs[i])
	}
}
