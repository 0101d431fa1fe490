package wallet

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/meshledger/libmesh-go/ledger"
	"github.com/meshledger/libmesh-go/network"
	"github.com/meshledger/libmesh-go/txbuilder"
)

// PrepareTransaction selects inputs from the wallet's tracked outputs and
// builds an unsigned transaction for the given outputs and intent. Defaults
// are filled from the wallet and the node: the remainder goes back to the
// wallet address, the creation slot is the current slot, and a commitment
// context is fetched when the intent requires one and the caller supplied
// none. Selected inputs are reserved until the transaction settles.
func (w *Wallet) PrepareTransaction(ctx context.Context, outputs []ledger.Output, opts txbuilder.Options) (*txbuilder.PreparedTransactionData, error) {
	params, err := w.node.ProtocolParameters(ctx)
	if err != nil {
		return nil, err
	}
	if opts.RemainderAddress == nil {
		opts.RemainderAddress = w.address
	}
	if opts.CreationSlot == 0 {
		slot, err := w.node.SlotIndex(ctx)
		if err != nil {
			return nil, err
		}
		opts.CreationSlot = slot
	}
	if opts.Commitment == nil && needsCommitment(outputs, opts) {
		commitment, err := w.node.LatestCommitmentID(ctx)
		if err != nil {
			return nil, err
		}
		opts.Commitment = &commitment
	}

	// Selection and reservation happen under one lock so concurrent prepares
	// see disjoint input sets.
	w.mu.Lock()
	defer w.mu.Unlock()

	available, err := w.store.AvailableInputs()
	if err != nil {
		return nil, err
	}
	prepared, err := txbuilder.Select(available, outputs, opts, params)
	if err != nil {
		return nil, err
	}
	for i, in := range prepared.InputsData {
		if err := w.store.Reserve(in.OutputID()); err != nil {
			for _, reserved := range prepared.InputsData[:i] {
				_ = w.store.Release(reserved.OutputID())
			}
			return nil, err
		}
	}

	txID, _ := prepared.Transaction.ID()
	logrus.WithFields(logrus.Fields{
		"transaction": txID,
		"inputs":      len(prepared.InputsData),
		"outputs":     len(prepared.Transaction.Outputs),
	}).Debug("wallet: prepared transaction")
	return prepared, nil
}

func needsCommitment(outputs []ledger.Output, opts txbuilder.Options) bool {
	if !opts.Transitions.Empty() {
		return true
	}
	for _, out := range outputs {
		if _, ok := out.(*ledger.DelegationOutput); ok {
			return true
		}
	}
	return false
}

// SignTransaction produces one unlock per input through the secret manager.
// Inputs arrive ordered by address type, so ed25519-controlled inputs are
// signed first and chain-controlled inputs can reference the unlock of their
// controlling chain output.
func (w *Wallet) SignTransaction(ctx context.Context, prepared *txbuilder.PreparedTransactionData) (*txbuilder.SignedTransactionData, error) {
	if prepared == nil || prepared.Transaction == nil {
		return nil, ErrNilParam
	}
	message, err := prepared.Transaction.SigningMessage()
	if err != nil {
		return nil, err
	}

	type addrKey struct {
		t    ledger.AddressType
		body [32]byte
	}
	keyOf := func(a ledger.Address) addrKey {
		var k addrKey
		k.t = a.Type()
		copy(k.body[:], a.Bytes())
		return k
	}

	signedAt := make(map[addrKey]uint16)
	chainAt := make(map[addrKey]uint16)
	unlocks := make([]ledger.Unlock, len(prepared.InputsData))

	for i, in := range prepared.InputsData {
		addr := in.Output.RequiredAddress(prepared.Transaction.CreationSlot, 0, 0)
		if addr == nil {
			// Foundries unlock through their controlling account chain.
			foundry, ok := in.Output.(*ledger.FoundryOutput)
			if !ok {
				return nil, fmt.Errorf("%w: input %d has no required address", ErrMissingChainInput, i)
			}
			addr = foundry.Account
		}

		key := keyOf(addr)
		switch addr.Type() {
		case ledger.AddressEd25519:
			if at, ok := signedAt[key]; ok {
				unlocks[i] = &ledger.ReferenceUnlock{Index: at}
				break
			}
			if !addr.Equal(w.address) {
				return nil, fmt.Errorf("%w: input %d requires %s", ErrAddressNotOwned, i, addr)
			}
			sig, err := w.secret.SignEssence(ctx, message, w.path)
			if err != nil {
				return nil, err
			}
			unlocks[i] = &ledger.SignatureUnlock{Signature: *sig}
			signedAt[key] = uint16(i)
		case ledger.AddressAccount:
			at, ok := chainAt[key]
			if !ok {
				return nil, fmt.Errorf("%w: input %d requires account %s", ErrMissingChainInput, i, addr)
			}
			unlocks[i] = &ledger.AccountUnlock{Index: at}
		case ledger.AddressNFT:
			at, ok := chainAt[key]
			if !ok {
				return nil, fmt.Errorf("%w: input %d requires nft %s", ErrMissingChainInput, i, addr)
			}
			unlocks[i] = &ledger.NFTUnlock{Index: at}
		}

		// A chain input, once unlocked, can control later inputs addressed to
		// its chain address.
		switch v := in.Output.(type) {
		case *ledger.AccountOutput:
			chainAt[keyOf(ledger.AccountAddress(v.AccountID))] = uint16(i)
		case *ledger.NFTOutput:
			chainAt[keyOf(ledger.NFTAddress(v.NFTID))] = uint16(i)
		}
	}

	payload := &ledger.SignedTransaction{
		Transaction: prepared.Transaction,
		Unlocks:     unlocks,
	}
	return &txbuilder.SignedTransactionData{
		Payload:    payload,
		InputsData: prepared.InputsData,
	}, nil
}

// SubmitBlock wraps the signed transaction in a block, checks issuance
// feasibility against the issuer's block issuance credits, signs the block,
// and posts it. A nil issuerID selects the wallet's first account;
// allowNegativeBIC skips the feasibility check for this submission only (the
// wallet-level setting skips it for all).
func (w *Wallet) SubmitBlock(ctx context.Context, signed *txbuilder.SignedTransactionData, issuerID *ledger.AccountID, allowNegativeBIC bool) (ledger.BlockID, error) {
	if signed == nil || signed.Payload == nil {
		return ledger.BlockID{}, ErrNilParam
	}
	var issuer ledger.AccountID
	if issuerID != nil {
		issuer = *issuerID
	} else {
		var err error
		issuer, err = w.issuerAccount()
		if err != nil {
			return ledger.BlockID{}, err
		}
	}
	params, err := w.node.ProtocolParameters(ctx)
	if err != nil {
		return ledger.BlockID{}, err
	}

	signatureCount := 0
	for _, u := range signed.Payload.Unlocks {
		if u.Type() == ledger.UnlockSignature {
			signatureCount++
		}
	}
	workScore := params.TransactionWorkScore(signed.Payload.Transaction, signatureCount)

	if !w.allowNegativeBIC && !allowNegativeBIC {
		congestion, err := w.node.AccountCongestion(ctx, issuer, workScore)
		if err != nil {
			return ledger.BlockID{}, err
		}
		required := congestion.ReferenceManaCost * uint64(workScore)
		available := congestion.BlockIssuanceCredits
		if available < 0 || required > uint64(available) {
			return ledger.BlockID{}, &InsufficientCreditsError{
				Available: available,
				Required:  required,
			}
		}
	}

	slot, err := w.node.SlotIndex(ctx)
	if err != nil {
		return ledger.BlockID{}, err
	}
	commitment, err := w.node.LatestCommitmentID(ctx)
	if err != nil {
		return ledger.BlockID{}, err
	}

	block := &ledger.Block{
		ProtocolVersion:  params.Version,
		NetworkID:        params.NetworkID(),
		IssuingSlot:      slot,
		SlotCommitmentID: commitment,
		IssuerID:         issuer,
		Payload:          signed.Payload,
	}
	blockMessage, err := block.SigningMessage()
	if err != nil {
		return ledger.BlockID{}, err
	}
	sig, err := w.secret.SignEssence(ctx, blockMessage, w.path)
	if err != nil {
		return ledger.BlockID{}, err
	}
	block.Signature = sig

	return w.node.PostBlock(ctx, block)
}

// SignAndSubmit signs the prepared transaction, submits it, and waits for
// acceptance. On acceptance the spent inputs are marked spent and the
// wallet-owned created outputs enter the output store; on any failure the
// input reservations are released so the funds are selectable again.
func (w *Wallet) SignAndSubmit(ctx context.Context, prepared *txbuilder.PreparedTransactionData, acceptOpts network.AcceptanceOptions) (ledger.TransactionID, error) {
	signed, err := w.SignTransaction(ctx, prepared)
	if err != nil {
		w.releaseInputs(prepared.InputsData)
		return ledger.TransactionID{}, err
	}
	txID, err := signed.Payload.ID()
	if err != nil {
		w.releaseInputs(prepared.InputsData)
		return ledger.TransactionID{}, err
	}

	blockID, err := w.SubmitBlock(ctx, signed, nil, false)
	if err != nil {
		w.releaseInputs(prepared.InputsData)
		return ledger.TransactionID{}, err
	}
	logrus.WithFields(logrus.Fields{
		"transaction": txID,
		"block":       blockID,
	}).Info("wallet: block submitted")

	if err := network.WaitForTransactionAcceptance(ctx, w.node, txID, acceptOpts); err != nil {
		w.releaseInputs(prepared.InputsData)
		return txID, err
	}

	w.settle(txID, blockID, signed)
	return txID, nil
}

func (w *Wallet) releaseInputs(inputs []*ledger.InputSigningData) {
	for _, in := range inputs {
		_ = w.store.Release(in.OutputID())
	}
}

// settle records the accepted transaction's effect on the output store.
func (w *Wallet) settle(txID ledger.TransactionID, blockID ledger.BlockID, signed *txbuilder.SignedTransactionData) {
	for _, in := range signed.InputsData {
		_ = w.store.MarkSpent(in.OutputID())
	}
	for i, out := range signed.Payload.Transaction.Outputs {
		owner := out.Owner()
		if owner == nil || !owner.Equal(w.address) {
			continue
		}
		outputID := ledger.NewOutputID(txID, uint16(i))
		_ = w.store.PutOutput(&ledger.InputSigningData{
			Output: out,
			OutputMetadata: ledger.OutputMetadata{
				OutputID:     outputID,
				BlockID:      blockID,
				IncludedSlot: signed.Payload.Transaction.CreationSlot,
			},
		})
	}
}
