package network

import (
	"context"

	"github.com/meshledger/libmesh-go/ledger"
)

// MockNodeService is a test double for NodeService. All function fields must
// be set before the corresponding method is called.
type MockNodeService struct {
	TransactionMetadataFn func(ctx context.Context, id ledger.TransactionID) (*TransactionMetadata, error)
	OutputFn              func(ctx context.Context, id ledger.OutputID) (*ledger.InputSigningData, error)
	ProtocolParametersFn  func(ctx context.Context) (*ledger.ProtocolParameters, error)
	SlotIndexFn           func(ctx context.Context) (ledger.SlotIndex, error)
	OutputIDsByAddressFn  func(ctx context.Context, address string) ([]ledger.OutputID, error)
	AccountCongestionFn   func(ctx context.Context, id ledger.AccountID, workScore uint32) (*AccountCongestion, error)
	PostBlockFn           func(ctx context.Context, block *ledger.Block) (ledger.BlockID, error)
	LatestCommitmentIDFn  func(ctx context.Context) (ledger.CommitmentID, error)
}

var _ NodeService = (*MockNodeService)(nil)

func (m *MockNodeService) TransactionMetadata(ctx context.Context, id ledger.TransactionID) (*TransactionMetadata, error) {
	return m.TransactionMetadataFn(ctx, id)
}
func (m *MockNodeService) Output(ctx context.Context, id ledger.OutputID) (*ledger.InputSigningData, error) {
	return m.OutputFn(ctx, id)
}
func (m *MockNodeService) ProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error) {
	return m.ProtocolParametersFn(ctx)
}
func (m *MockNodeService) SlotIndex(ctx context.Context) (ledger.SlotIndex, error) {
	return m.SlotIndexFn(ctx)
}
func (m *MockNodeService) OutputIDsByAddress(ctx context.Context, address string) ([]ledger.OutputID, error) {
	return m.OutputIDsByAddressFn(ctx, address)
}
func (m *MockNodeService) AccountCongestion(ctx context.Context, id ledger.AccountID, workScore uint32) (*AccountCongestion, error) {
	return m.AccountCongestionFn(ctx, id, workScore)
}
func (m *MockNodeService) PostBlock(ctx context.Context, block *ledger.Block) (ledger.BlockID, error) {
	return m.PostBlockFn(ctx, block)
}
func (m *MockNodeService) LatestCommitmentID(ctx context.Context) (ledger.CommitmentID, error) {
	return m.LatestCommitmentIDFn(ctx)
}
