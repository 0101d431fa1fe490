package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

// Compile-time interface check.
var _ NodeService = (*RPCClient)(nil)

// TransactionMetadata implements NodeService.
func (c *RPCClient) TransactionMetadata(ctx context.Context, id ledger.TransactionID) (*TransactionMetadata, error) {
	var meta TransactionMetadata
	if err := c.Call(ctx, "getTransactionMetadata", []interface{}{id.String()}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Output implements NodeService.
func (c *RPCClient) Output(ctx context.Context, id ledger.OutputID) (*ledger.InputSigningData, error) {
	var raw struct {
		Output   json.RawMessage       `json:"output"`
		Metadata ledger.OutputMetadata `json:"outputMetadata"`
	}
	if err := c.Call(ctx, "getOutput", []interface{}{id.String()}, &raw); err != nil {
		return nil, err
	}
	out, err := ledger.UnmarshalOutput(raw.Output)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &ledger.InputSigningData{Output: out, OutputMetadata: raw.Metadata}, nil
}

// ProtocolParameters implements NodeService.
func (c *RPCClient) ProtocolParameters(ctx context.Context) (*ledger.ProtocolParameters, error) {
	var params ledger.ProtocolParameters
	if err := c.Call(ctx, "getProtocolParameters", nil, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// SlotIndex implements NodeService.
func (c *RPCClient) SlotIndex(ctx context.Context) (ledger.SlotIndex, error) {
	var slot ledger.SlotIndex
	if err := c.Call(ctx, "getSlotIndex", nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// OutputIDsByAddress implements NodeService.
func (c *RPCClient) OutputIDsByAddress(ctx context.Context, address string) ([]ledger.OutputID, error) {
	var ids []ledger.OutputID
	if err := c.Call(ctx, "getOutputIdsByAddress", []interface{}{address}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AccountCongestion implements NodeService.
func (c *RPCClient) AccountCongestion(ctx context.Context, id ledger.AccountID, workScore uint32) (*AccountCongestion, error) {
	var congestion AccountCongestion
	if err := c.Call(ctx, "getAccountCongestion", []interface{}{id.String(), workScore}, &congestion); err != nil {
		return nil, err
	}
	return &congestion, nil
}

// PostBlock implements NodeService.
func (c *RPCClient) PostBlock(ctx context.Context, block *ledger.Block) (ledger.BlockID, error) {
	var id ledger.BlockID
	if err := c.Call(ctx, "postBlock", []interface{}{block}, &id); err != nil {
		return ledger.BlockID{}, err
	}
	return id, nil
}

// LatestCommitmentID implements NodeService.
func (c *RPCClient) LatestCommitmentID(ctx context.Context) (ledger.CommitmentID, error) {
	var id ledger.CommitmentID
	if err := c.Call(ctx, "getLatestCommitment", nil, &id); err != nil {
		return ledger.CommitmentID{}, err
	}
	return id, nil
}
