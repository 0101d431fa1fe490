package wallet

import (
	"context"

	"github.com/meshledger/libmesh-go/ledger"
	"github.com/meshledger/libmesh-go/network"
	"github.com/meshledger/libmesh-go/txbuilder"
)

// SendParams describes a plain value transfer.
type SendParams struct {
	// To receives the funds.
	To ledger.Address
	// Amount is the base coin amount to send.
	Amount uint64
	// NativeTokens to include in the sent output.
	NativeTokens []ledger.NativeToken
	// Timelock, when non-zero, locks the sent output until that slot.
	Timelock ledger.SlotIndex
}

// PrepareSend builds the unsigned transaction for a value transfer.
func (w *Wallet) PrepareSend(ctx context.Context, params SendParams) (*txbuilder.PreparedTransactionData, error) {
	if params.To == nil {
		return nil, ErrNilParam
	}
	out := &ledger.BasicOutput{
		Amount:       params.Amount,
		NativeTokens: params.NativeTokens,
		Address:      params.To,
		Timelock:     params.Timelock,
	}
	return w.PrepareTransaction(ctx, []ledger.Output{out}, txbuilder.Options{})
}

// Send transfers value and waits for acceptance.
func (w *Wallet) Send(ctx context.Context, params SendParams, acceptOpts network.AcceptanceOptions) (ledger.TransactionID, error) {
	prepared, err := w.PrepareSend(ctx, params)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	return w.SignAndSubmit(ctx, prepared, acceptOpts)
}

// PrepareBurn builds the unsigned transaction destroying the objects named
// by the burn intent. The freed base coin returns to the wallet address.
func (w *Wallet) PrepareBurn(ctx context.Context, burn *txbuilder.Burn) (*txbuilder.PreparedTransactionData, error) {
	if burn.Empty() {
		return nil, txbuilder.ErrNothingToBuild
	}
	return w.PrepareTransaction(ctx, nil, txbuilder.Options{Burn: burn})
}

// Burn destroys the named objects and waits for acceptance.
func (w *Wallet) Burn(ctx context.Context, burn *txbuilder.Burn, acceptOpts network.AcceptanceOptions) (ledger.TransactionID, error) {
	prepared, err := w.PrepareBurn(ctx, burn)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	return w.SignAndSubmit(ctx, prepared, acceptOpts)
}

// CreateDelegationParams describes a new delegation.
type CreateDelegationParams struct {
	// Address owns the delegation output. Nil defaults to the wallet address.
	Address ledger.Address
	// DelegatedAmount is the base coin amount to delegate.
	DelegatedAmount uint64
	// ValidatorAddress is the validator account receiving the delegation.
	ValidatorAddress ledger.AccountAddress
}

// PrepareCreateDelegation builds the unsigned transaction creating a
// delegation output. The delegation output is placed first, so its eventual
// id derives from output index zero of the accepted transaction.
func (w *Wallet) PrepareCreateDelegation(ctx context.Context, params CreateDelegationParams) (*txbuilder.PreparedTransactionData, error) {
	addr := params.Address
	if addr == nil {
		addr = w.address
	}
	out := &ledger.DelegationOutput{
		Amount:           params.DelegatedAmount,
		DelegatedAmount:  params.DelegatedAmount,
		ValidatorAddress: params.ValidatorAddress,
		Address:          addr,
	}
	return w.PrepareTransaction(ctx, []ledger.Output{out}, txbuilder.Options{})
}

// CreateDelegation creates a delegation, waits for acceptance, and returns
// the id the ledger assigned to the new delegation.
func (w *Wallet) CreateDelegation(ctx context.Context, params CreateDelegationParams, acceptOpts network.AcceptanceOptions) (ledger.DelegationID, error) {
	prepared, err := w.PrepareCreateDelegation(ctx, params)
	if err != nil {
		return ledger.DelegationID{}, err
	}
	txID, err := w.SignAndSubmit(ctx, prepared, acceptOpts)
	if err != nil {
		return ledger.DelegationID{}, err
	}
	return ledger.DelegationIDFromOutputID(ledger.NewOutputID(txID, 0)), nil
}

// ModifyAccountParams describes a block-issuer-key change on one account.
type ModifyAccountParams struct {
	AccountID    ledger.AccountID
	KeysToAdd    []ledger.BlockIssuerKey
	KeysToRemove []ledger.BlockIssuerKey
}

// PrepareModifyAccountBlockIssuerKeys builds the unsigned transaction
// transitioning the account to a successor output with the changed key set.
func (w *Wallet) PrepareModifyAccountBlockIssuerKeys(ctx context.Context, params ModifyAccountParams) (*txbuilder.PreparedTransactionData, error) {
	transitions := txbuilder.NewTransitions().AddAccount(params.AccountID, txbuilder.AccountChange{
		KeysToAdd:    params.KeysToAdd,
		KeysToRemove: params.KeysToRemove,
	})
	return w.PrepareTransaction(ctx, nil, txbuilder.Options{Transitions: transitions})
}

// ModifyAccountBlockIssuerKeys changes an account's block issuer keys and
// waits for acceptance.
func (w *Wallet) ModifyAccountBlockIssuerKeys(ctx context.Context, params ModifyAccountParams, acceptOpts network.AcceptanceOptions) (ledger.TransactionID, error) {
	prepared, err := w.PrepareModifyAccountBlockIssuerKeys(ctx, params)
	if err != nil {
		return ledger.TransactionID{}, err
	}
	return w.SignAndSubmit(ctx, prepared, acceptOpts)
}
