package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Block wraps a payload for issuance by an account. The issuer pays for the
// block's work score out of its block issuance credits.
type Block struct {
	ProtocolVersion  uint8
	NetworkID        uint64
	IssuingSlot      SlotIndex
	SlotCommitmentID CommitmentID
	IssuerID         AccountID
	Payload          *SignedTransaction // nil for an empty block
	Signature        *Ed25519Signature  // nil until signed
}

// SigningMessage returns the digest the issuer signs: the header fields plus
// the payload's transaction id.
func (b *Block) SigningMessage() ([]byte, error) {
	var buf bytes.Buffer
	var scratch [8]byte

	buf.WriteByte(b.ProtocolVersion)
	binary.BigEndian.PutUint64(scratch[:], b.NetworkID)
	buf.Write(scratch[:8])
	binary.BigEndian.PutUint32(scratch[:4], uint32(b.IssuingSlot))
	buf.Write(scratch[:4])
	buf.Write(b.SlotCommitmentID[:])
	buf.Write(b.IssuerID[:])
	if b.Payload != nil {
		txID, err := b.Payload.ID()
		if err != nil {
			return nil, err
		}
		buf.Write(txID[:])
	}

	digest := blake2b.Sum256(buf.Bytes())
	return digest[:], nil
}

// ID returns the block id: blake2b-256 over the signing message plus the
// issuer signature.
func (b *Block) ID() (BlockID, error) {
	message, err := b.SigningMessage()
	if err != nil {
		return BlockID{}, err
	}
	var buf bytes.Buffer
	buf.Write(message)
	if b.Signature != nil {
		buf.Write(b.Signature.PublicKey)
		buf.Write(b.Signature.Signature)
	}
	return BlockID(blake2b.Sum256(buf.Bytes())), nil
}

// blockEnvelope is the JSON interchange form of a Block.
type blockEnvelope struct {
	ProtocolVersion  uint8              `json:"protocolVersion"`
	NetworkID        uint64             `json:"networkId"`
	IssuingSlot      SlotIndex          `json:"issuingSlot"`
	SlotCommitmentID CommitmentID       `json:"slotCommitmentId"`
	IssuerID         AccountID          `json:"issuerId"`
	Payload          *SignedTransaction `json:"payload,omitempty"`
	Signature        *Ed25519Signature  `json:"signature,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockEnvelope{
		ProtocolVersion:  b.ProtocolVersion,
		NetworkID:        b.NetworkID,
		IssuingSlot:      b.IssuingSlot,
		SlotCommitmentID: b.SlotCommitmentID,
		IssuerID:         b.IssuerID,
		Payload:          b.Payload,
		Signature:        b.Signature,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env blockEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("ledger: decode block: %w", err)
	}
	b.ProtocolVersion = env.ProtocolVersion
	b.NetworkID = env.NetworkID
	b.IssuingSlot = env.IssuingSlot
	b.SlotCommitmentID = env.SlotCommitmentID
	b.IssuerID = env.IssuerID
	b.Payload = env.Payload
	b.Signature = env.Signature
	return nil
}
