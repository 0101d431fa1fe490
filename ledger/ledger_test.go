package ledger

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr(b byte) Ed25519Address {
	var a Ed25519Address
	for i := range a {
		a[i] = b
	}
	return a
}

func testTxID(b byte) TransactionID {
	var id TransactionID
	for i := range id {
		id[i] = b
	}
	return id
}

// ---------------------------------------------------------------------------
// Id tests
// ---------------------------------------------------------------------------

func TestOutputID_Composition(t *testing.T) {
	txID := testTxID(0xab)
	id := NewOutputID(txID, 7)

	assert.Equal(t, txID, id.TransactionID())
	assert.Equal(t, uint16(7), id.Index())
}

func TestOutputID_TextRoundTrip(t *testing.T) {
	id := NewOutputID(testTxID(0x11), 300)

	text, err := id.MarshalText()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "0x"))

	var decoded OutputID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}

func TestUnmarshalText_BadInput(t *testing.T) {
	var id TransactionID
	assert.ErrorIs(t, id.UnmarshalText([]byte("no-prefix")), ErrInvalidID)
	assert.ErrorIs(t, id.UnmarshalText([]byte("0xdead")), ErrInvalidID)
}

func TestChainIDsFromOutputID_Deterministic(t *testing.T) {
	id := NewOutputID(testTxID(0x22), 0)

	assert.Equal(t, AccountIDFromOutputID(id), AccountIDFromOutputID(id))
	assert.NotEqual(t, AccountIDFromOutputID(id), AccountIDFromOutputID(NewOutputID(testTxID(0x22), 1)))

	// Different chain kinds derive from the same hash of the same bytes, so
	// their raw values match; the types keep them apart.
	accountID := AccountIDFromOutputID(id)
	nftID := NFTIDFromOutputID(id)
	assert.Equal(t, accountID[:], nftID[:])
}

func TestHexBytes_RoundTrip(t *testing.T) {
	h := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"0xdeadbeef"`, string(data))

	var decoded HexBytes
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, h.Equal(decoded))
}

// ---------------------------------------------------------------------------
// Address tests
// ---------------------------------------------------------------------------

func TestAddress_Bech32RoundTrip(t *testing.T) {
	addrs := []Address{
		testAddr(0x01),
		AccountAddress(testAddr(0x02)),
		NFTAddress(testAddr(0x03)),
	}
	for _, addr := range addrs {
		encoded := addr.Bech32("mesh")
		require.True(t, strings.HasPrefix(encoded, "mesh1"), encoded)

		hrp, decoded, err := DecodeBech32(encoded)
		require.NoError(t, err)
		assert.Equal(t, "mesh", hrp)
		assert.True(t, addr.Equal(decoded))
	}
}

func TestDecodeBech32_Garbage(t *testing.T) {
	_, _, err := DecodeBech32("not bech32 at all")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_Equal(t *testing.T) {
	a := testAddr(0x01)
	assert.True(t, a.Equal(testAddr(0x01)))
	assert.False(t, a.Equal(testAddr(0x02)))
	// Same body, different type.
	assert.False(t, a.Equal(AccountAddress(testAddr(0x01))))
	assert.False(t, a.Equal(nil))
}

func TestEd25519AddressFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	a := Ed25519AddressFromPublicKey(pub)
	b := Ed25519AddressFromPublicKey(pub)
	assert.Equal(t, a, b)
	assert.Equal(t, AddressEd25519, a.Type())
}

func TestMarshalAddress_RoundTrip(t *testing.T) {
	original := AccountAddress(testAddr(0x44))
	data, err := MarshalAddress(original)
	require.NoError(t, err)

	decoded, err := UnmarshalAddress(data)
	require.NoError(t, err)
	assert.True(t, original.Equal(decoded))
}

// ---------------------------------------------------------------------------
// Output tests
// ---------------------------------------------------------------------------

func TestBasicOutput_RoundTrip(t *testing.T) {
	original := &BasicOutput{
		Amount: 1_000_000,
		Mana:   42,
		NativeTokens: []NativeToken{
			{ID: NativeTokenID(testAddr(0x05)), Amount: 77},
		},
		Address:  testAddr(0x01),
		Timelock: 123,
	}

	data, err := MarshalOutput(original)
	require.NoError(t, err)

	decoded, err := UnmarshalOutput(data)
	require.NoError(t, err)
	assert.True(t, OutputsEqual(original, decoded))
	assert.Equal(t, original, decoded)
}

func TestAccountOutput_RoundTrip(t *testing.T) {
	original := &AccountOutput{
		Amount:          2_000_000,
		AccountID:       AccountID(testAddr(0x06)),
		FoundryCounter:  3,
		Address:         testAddr(0x01),
		BlockIssuerKeys: []BlockIssuerKey{{0x01, 0x02}, {0x03, 0x04}},
	}

	data, err := MarshalOutput(original)
	require.NoError(t, err)

	decoded, err := UnmarshalOutput(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	acc := decoded.(*AccountOutput)
	assert.True(t, acc.HasBlockIssuerKey(BlockIssuerKey{0x01, 0x02}))
	assert.False(t, acc.HasBlockIssuerKey(BlockIssuerKey{0x09}))
}

func TestFoundryOutput_IDAndRoundTrip(t *testing.T) {
	original := &FoundryOutput{
		Amount:        500_000,
		SerialNumber:  1,
		Account:       AccountAddress(testAddr(0x06)),
		MintedTokens:  1000,
		MeltedTokens:  100,
		MaximumSupply: 10_000,
	}

	// Id depends on account and serial only.
	same := &FoundryOutput{SerialNumber: 1, Account: AccountAddress(testAddr(0x06))}
	assert.Equal(t, original.ID(), same.ID())
	other := &FoundryOutput{SerialNumber: 2, Account: AccountAddress(testAddr(0x06))}
	assert.NotEqual(t, original.ID(), other.ID())
	assert.Equal(t, NativeTokenID(original.ID()), original.TokenID())

	// No standalone required address.
	assert.Nil(t, original.RequiredAddress(0, 0, 0))

	data, err := MarshalOutput(original)
	require.NoError(t, err)
	decoded, err := UnmarshalOutput(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDelegationOutput_RoundTrip(t *testing.T) {
	original := &DelegationOutput{
		Amount:           3_000_000,
		DelegatedAmount:  3_000_000,
		DelegationID:     DelegationID(testAddr(0x07)),
		ValidatorAddress: AccountAddress(testAddr(0x08)),
		Address:          testAddr(0x01),
		StartEpoch:       12,
	}

	data, err := MarshalOutput(original)
	require.NoError(t, err)
	decoded, err := UnmarshalOutput(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUnmarshalOutput_UnknownType(t *testing.T) {
	_, err := UnmarshalOutput([]byte(`{"type":"mystery","amount":1}`))
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestOutputClone_Isolated(t *testing.T) {
	original := &BasicOutput{
		Amount:       100,
		NativeTokens: []NativeToken{{ID: NativeTokenID(testAddr(0x05)), Amount: 1}},
		Address:      testAddr(0x01),
	}
	clone := original.Clone().(*BasicOutput)
	clone.NativeTokens[0].Amount = 999
	assert.Equal(t, uint64(1), original.NativeTokens[0].Amount)
}

// ---------------------------------------------------------------------------
// Transaction tests
// ---------------------------------------------------------------------------

func testTransaction() *Transaction {
	return &Transaction{
		NetworkID:    42,
		CreationSlot: 10,
		Inputs:       []OutputID{NewOutputID(testTxID(0x01), 0)},
		Outputs: []Output{
			&BasicOutput{Amount: 100, Address: testAddr(0x01)},
		},
	}
}

func TestTransactionID_Deterministic(t *testing.T) {
	a, err := testTransaction().ID()
	require.NoError(t, err)
	b, err := testTransaction().ID()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, EmptyTransactionID, a)
}

func TestTransactionID_SensitiveToContent(t *testing.T) {
	base, err := testTransaction().ID()
	require.NoError(t, err)

	mutations := []func(*Transaction){
		func(tx *Transaction) { tx.NetworkID = 43 },
		func(tx *Transaction) { tx.CreationSlot = 11 },
		func(tx *Transaction) { tx.Inputs[0] = NewOutputID(testTxID(0x01), 1) },
		func(tx *Transaction) { tx.Outputs[0].(*BasicOutput).Amount = 101 },
		func(tx *Transaction) {
			tx.ContextInputs = []ContextInput{{Commitment: CommitmentID{0x01}}}
		},
	}
	for i, mutate := range mutations {
		tx := testTransaction()
		mutate(tx)
		id, err := tx.ID()
		require.NoError(t, err)
		assert.NotEqual(t, base, id, "mutation %d", i)
	}
}

func TestTransaction_JSONRoundTrip(t *testing.T) {
	original := testTransaction()
	original.ContextInputs = []ContextInput{{Commitment: CommitmentID{0xaa}}}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Transaction
	require.NoError(t, json.Unmarshal(data, &decoded))

	origID, err := original.ID()
	require.NoError(t, err)
	decodedID, err := decoded.ID()
	require.NoError(t, err)
	assert.Equal(t, origID, decodedID)
}

func TestTransactionClone_Isolated(t *testing.T) {
	original := testTransaction()
	clone := original.Clone()
	clone.Outputs[0].(*BasicOutput).Amount = 999
	assert.Equal(t, uint64(100), original.Outputs[0].(*BasicOutput).Amount)
}

// ---------------------------------------------------------------------------
// Unlock and signed transaction tests
// ---------------------------------------------------------------------------

func signTestTransaction(t *testing.T, tx *Transaction) Ed25519Signature {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	message, err := tx.SigningMessage()
	require.NoError(t, err)
	return Ed25519Signature{
		PublicKey: HexBytes(pub),
		Signature: HexBytes(ed25519.Sign(priv, message)),
	}
}

func TestSignedTransaction_Verify(t *testing.T) {
	tx := testTransaction()
	sig := signTestTransaction(t, tx)

	signed := &SignedTransaction{
		Transaction: tx,
		Unlocks:     []Unlock{&SignatureUnlock{Signature: sig}},
	}
	assert.NoError(t, signed.Verify())
}

func TestSignedTransaction_UnlockCountMismatch(t *testing.T) {
	signed := &SignedTransaction{Transaction: testTransaction()}
	assert.ErrorIs(t, signed.Verify(), ErrUnlockCountMismatch)
}

func TestSignedTransaction_BadSignature(t *testing.T) {
	tx := testTransaction()
	sig := signTestTransaction(t, tx)
	sig.Signature[0] ^= 0xff

	signed := &SignedTransaction{
		Transaction: tx,
		Unlocks:     []Unlock{&SignatureUnlock{Signature: sig}},
	}
	assert.ErrorIs(t, signed.Verify(), ErrInvalidSignature)
}

func TestSignedTransaction_ForwardReference(t *testing.T) {
	tx := testTransaction()
	tx.Inputs = append(tx.Inputs, NewOutputID(testTxID(0x02), 0))
	sig := signTestTransaction(t, tx)

	signed := &SignedTransaction{
		Transaction: tx,
		Unlocks: []Unlock{
			&ReferenceUnlock{Index: 1}, // points forward
			&SignatureUnlock{Signature: sig},
		},
	}
	assert.ErrorIs(t, signed.Verify(), ErrInvalidUnlock)
}

func TestSignedTransaction_JSONRoundTrip(t *testing.T) {
	tx := testTransaction()
	tx.Inputs = append(tx.Inputs,
		NewOutputID(testTxID(0x02), 0),
		NewOutputID(testTxID(0x03), 0),
		NewOutputID(testTxID(0x04), 0),
	)
	sig := signTestTransaction(t, tx)

	original := &SignedTransaction{
		Transaction: tx,
		Unlocks: []Unlock{
			&SignatureUnlock{Signature: sig},
			&ReferenceUnlock{Index: 0},
			&AccountUnlock{Index: 0},
			&NFTUnlock{Index: 0},
		},
	}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded SignedTransaction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.Unlocks, decoded.Unlocks)

	origID, err := original.ID()
	require.NoError(t, err)
	decodedID, err := decoded.ID()
	require.NoError(t, err)
	assert.Equal(t, origID, decodedID)
}

// ---------------------------------------------------------------------------
// Parameter tests
// ---------------------------------------------------------------------------

func testParams() *ProtocolParameters {
	return &ProtocolParameters{
		Version:           1,
		NetworkName:       "mesh-testnet-1",
		Bech32HRP:         "mesh",
		TokenSupply:       1_000_000_000,
		MinCommittableAge: 2,
		MaxCommittableAge: 8,
		StorageScore:      StorageScoreParameters{OffsetOutput: 100, FactorData: 1},
		WorkScore: WorkScoreParameters{
			Block:            10,
			Input:            2,
			ContextInput:     1,
			Output:           3,
			Allotment:        1,
			SignatureEd25519: 5,
		},
	}
}

func TestNetworkID_DerivedFromName(t *testing.T) {
	p := testParams()
	assert.Equal(t, p.NetworkID(), p.NetworkID())

	other := testParams()
	other.NetworkName = "mesh-mainnet-1"
	assert.NotEqual(t, p.NetworkID(), other.NetworkID())
}

func TestMinDeposit_GrowsWithEncodedSize(t *testing.T) {
	p := testParams()
	small := &BasicOutput{Amount: 1, Address: testAddr(0x01)}
	large := &BasicOutput{
		Amount:  1,
		Address: testAddr(0x01),
		NativeTokens: []NativeToken{
			{ID: NativeTokenID(testAddr(0x05)), Amount: 1},
			{ID: NativeTokenID(testAddr(0x06)), Amount: 2},
		},
	}
	assert.Greater(t, p.MinDeposit(large), p.MinDeposit(small))
	assert.GreaterOrEqual(t, p.MinDeposit(small), p.StorageScore.OffsetOutput)
}

func TestTransactionWorkScore(t *testing.T) {
	p := testParams()
	tx := &Transaction{
		ContextInputs: []ContextInput{{}},
		Inputs:        make([]OutputID, 2),
		Outputs: []Output{
			&BasicOutput{Amount: 1, Address: testAddr(0x01)},
			&BasicOutput{Amount: 1, Address: testAddr(0x01)},
			&BasicOutput{Amount: 1, Address: testAddr(0x01)},
		},
	}
	// block 10 + 2 inputs * 2 + 1 context * 1 + 3 outputs * 3 + 1 signature * 5
	assert.Equal(t, uint32(10+4+1+9+5), p.TransactionWorkScore(tx, 1))
}

// ---------------------------------------------------------------------------
// Block tests
// ---------------------------------------------------------------------------

func TestBlock_SigningMessageAndID(t *testing.T) {
	tx := testTransaction()
	sig := signTestTransaction(t, tx)
	block := &Block{
		ProtocolVersion:  1,
		NetworkID:        42,
		IssuingSlot:      10,
		SlotCommitmentID: CommitmentID{0x01},
		IssuerID:         AccountID(testAddr(0x06)),
		Payload: &SignedTransaction{
			Transaction: tx,
			Unlocks:     []Unlock{&SignatureUnlock{Signature: sig}},
		},
	}

	message, err := block.SigningMessage()
	require.NoError(t, err)
	assert.Len(t, message, 32)

	unsignedID, err := block.ID()
	require.NoError(t, err)

	block.Signature = &sig
	signedID, err := block.ID()
	require.NoError(t, err)
	assert.NotEqual(t, unsignedID, signedID)
}

func TestBlock_JSONRoundTrip(t *testing.T) {
	tx := testTransaction()
	sig := signTestTransaction(t, tx)
	original := &Block{
		ProtocolVersion:  1,
		NetworkID:        42,
		IssuingSlot:      10,
		SlotCommitmentID: CommitmentID{0x01},
		IssuerID:         AccountID(testAddr(0x06)),
		Payload: &SignedTransaction{
			Transaction: tx,
			Unlocks:     []Unlock{&SignatureUnlock{Signature: sig}},
		},
		Signature: &sig,
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Block
	require.NoError(t, json.Unmarshal(data, &decoded))

	origID, err := original.ID()
	require.NoError(t, err)
	decodedID, err := decoded.ID()
	require.NoError(t, err)
	assert.Equal(t, origID, decodedID)
}
