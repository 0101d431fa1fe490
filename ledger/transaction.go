package ledger

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ContextInput references ledger state a transaction depends on. Only the
// commitment kind exists today; delegation outputs and block-issuer account
// transitions require one.
type ContextInput struct {
	Commitment CommitmentID `json:"commitmentId"`
}

// Transaction is the unsigned transaction essence: what is consumed, what is
// created, and the ledger context the transaction was built against.
type Transaction struct {
	NetworkID     uint64
	CreationSlot  SlotIndex
	ContextInputs []ContextInput
	Inputs        []OutputID
	Outputs       []Output
}

// Encode returns the deterministic byte encoding of the essence. Fixed-width
// fields are big-endian; outputs are length-prefixed envelope bytes, which
// are stable because struct field order fixes the JSON field order.
func (t *Transaction) Encode() ([]byte, error) {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], t.NetworkID)
	buf.Write(scratch[:8])
	binary.BigEndian.PutUint32(scratch[:4], uint32(t.CreationSlot))
	buf.Write(scratch[:4])

	binary.BigEndian.PutUint16(scratch[:2], uint16(len(t.ContextInputs)))
	buf.Write(scratch[:2])
	for _, ci := range t.ContextInputs {
		buf.Write(ci.Commitment[:])
	}

	binary.BigEndian.PutUint16(scratch[:2], uint16(len(t.Inputs)))
	buf.Write(scratch[:2])
	for _, in := range t.Inputs {
		buf.Write(in[:])
	}

	binary.BigEndian.PutUint16(scratch[:2], uint16(len(t.Outputs)))
	buf.Write(scratch[:2])
	for _, out := range t.Outputs {
		encoded, err := MarshalOutput(out)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(scratch[:4], uint32(len(encoded)))
		buf.Write(scratch[:4])
		buf.Write(encoded)
	}

	return buf.Bytes(), nil
}

// ID returns the transaction id: blake2b-256 over the encoded essence.
func (t *Transaction) ID() (TransactionID, error) {
	encoded, err := t.Encode()
	if err != nil {
		return EmptyTransactionID, err
	}
	return TransactionID(blake2b.Sum256(encoded)), nil
}

// SigningMessage returns the digest every input's signature commits to.
func (t *Transaction) SigningMessage() ([]byte, error) {
	id, err := t.ID()
	if err != nil {
		return nil, err
	}
	return id[:], nil
}

// Clone returns a deep copy of the essence.
func (t *Transaction) Clone() *Transaction {
	c := &Transaction{
		NetworkID:    t.NetworkID,
		CreationSlot: t.CreationSlot,
	}
	if t.ContextInputs != nil {
		c.ContextInputs = make([]ContextInput, len(t.ContextInputs))
		copy(c.ContextInputs, t.ContextInputs)
	}
	if t.Inputs != nil {
		c.Inputs = make([]OutputID, len(t.Inputs))
		copy(c.Inputs, t.Inputs)
	}
	if t.Outputs != nil {
		c.Outputs = make([]Output, len(t.Outputs))
		for i, o := range t.Outputs {
			c.Outputs[i] = o.Clone()
		}
	}
	return c
}

// transactionEnvelope is the JSON interchange form of a Transaction.
type transactionEnvelope struct {
	NetworkID     uint64            `json:"networkId"`
	CreationSlot  SlotIndex         `json:"creationSlot"`
	ContextInputs []ContextInput    `json:"contextInputs,omitempty"`
	Inputs        []OutputID        `json:"inputs"`
	Outputs       []json.RawMessage `json:"outputs"`
}

// MarshalJSON implements json.Marshaler.
func (t *Transaction) MarshalJSON() ([]byte, error) {
	env := transactionEnvelope{
		NetworkID:     t.NetworkID,
		CreationSlot:  t.CreationSlot,
		ContextInputs: t.ContextInputs,
		Inputs:        t.Inputs,
	}
	env.Outputs = make([]json.RawMessage, len(t.Outputs))
	for i, o := range t.Outputs {
		encoded, err := MarshalOutput(o)
		if err != nil {
			return nil, err
		}
		env.Outputs[i] = encoded
	}
	return json.Marshal(env)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var env transactionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	t.NetworkID = env.NetworkID
	t.CreationSlot = env.CreationSlot
	t.ContextInputs = env.ContextInputs
	t.Inputs = env.Inputs
	t.Outputs = make([]Output, len(env.Outputs))
	for i, raw := range env.Outputs {
		out, err := UnmarshalOutput(raw)
		if err != nil {
			return err
		}
		t.Outputs[i] = out
	}
	return nil
}
