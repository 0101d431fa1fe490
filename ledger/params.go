package ledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// WorkScoreParameters are the protocol weights used to price block issuance.
type WorkScoreParameters struct {
	Block            uint32 `json:"block"`
	Input            uint32 `json:"input"`
	ContextInput     uint32 `json:"contextInput"`
	Output           uint32 `json:"output"`
	Allotment        uint32 `json:"allotment"`
	SignatureEd25519 uint32 `json:"signatureEd25519"`
}

// StorageScoreParameters price the permanent ledger footprint of an output.
type StorageScoreParameters struct {
	// OffsetOutput is the flat deposit every output must carry.
	OffsetOutput uint64 `json:"offsetOutput"`
	// FactorData is the per-encoded-byte deposit.
	FactorData uint64 `json:"factorData"`
}

// ProtocolParameters are the current network constants. They are supplied by
// the node and consumed read-only.
type ProtocolParameters struct {
	Version           uint8                  `json:"version"`
	NetworkName       string                 `json:"networkName"`
	Bech32HRP         string                 `json:"bech32Hrp"`
	TokenSupply       uint64                 `json:"tokenSupply"`
	MinCommittableAge SlotIndex              `json:"minCommittableAge"`
	MaxCommittableAge SlotIndex              `json:"maxCommittableAge"`
	StorageScore      StorageScoreParameters `json:"storageScoreParameters"`
	WorkScore         WorkScoreParameters    `json:"workScoreParameters"`
}

// NetworkID derives the numeric network id from the network name.
func (p *ProtocolParameters) NetworkID() uint64 {
	h := blake2b.Sum256([]byte(p.NetworkName))
	return binary.LittleEndian.Uint64(h[:8])
}

// CommittableAgeRange returns the window of slot ages a commitment context
// input may reference.
func (p *ProtocolParameters) CommittableAgeRange() (min, max SlotIndex) {
	return p.MinCommittableAge, p.MaxCommittableAge
}

// MinDeposit returns the minimum base coin amount the output must hold to
// pay for its ledger footprint.
func (p *ProtocolParameters) MinDeposit(o Output) uint64 {
	encoded, err := MarshalOutput(o)
	if err != nil {
		return p.StorageScore.OffsetOutput
	}
	return p.StorageScore.OffsetOutput + p.StorageScore.FactorData*uint64(len(encoded))
}

// TransactionWorkScore computes the work score of a transaction payload from
// the protocol weights. Exact integers, no rounding.
func (p *ProtocolParameters) TransactionWorkScore(tx *Transaction, signatureCount int) uint32 {
	w := p.WorkScore
	score := w.Block
	score += w.Input * uint32(len(tx.Inputs))
	score += w.ContextInput * uint32(len(tx.ContextInputs))
	score += w.Output * uint32(len(tx.Outputs))
	score += w.SignatureEd25519 * uint32(signatureCount)
	return score
}
