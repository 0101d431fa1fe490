package txbuilder

import (
	"encoding/json"
	"fmt"

	"github.com/meshledger/libmesh-go/ledger"
)

// PreparedTransactionData is an unsigned transaction together with the input
// information a secret manager needs to produce unlocks. Inputs are ordered
// by address type. It supports a field-named JSON interchange form for
// offline signing workflows.
type PreparedTransactionData struct {
	Transaction *ledger.Transaction
	InputsData  []*ledger.InputSigningData
	Remainders  []RemainderData
}

// RemainderData is a remainder output paired with the address that owns it.
// It exists only inside a PreparedTransactionData.
type RemainderData struct {
	Output  ledger.Output
	Address ledger.Address
}

// SignedTransactionData pairs the signed payload with the inputs it spends.
// Immutable once created.
type SignedTransactionData struct {
	Payload    *ledger.SignedTransaction
	InputsData []*ledger.InputSigningData
}

type remainderEnvelope struct {
	Output  json.RawMessage `json:"output"`
	Address json.RawMessage `json:"address"`
}

// MarshalJSON implements json.Marshaler.
func (r RemainderData) MarshalJSON() ([]byte, error) {
	out, err := ledger.MarshalOutput(r.Output)
	if err != nil {
		return nil, err
	}
	addr, err := ledger.MarshalAddress(r.Address)
	if err != nil {
		return nil, err
	}
	return json.Marshal(remainderEnvelope{Output: out, Address: addr})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RemainderData) UnmarshalJSON(data []byte) error {
	var env remainderEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("txbuilder: decode remainder: %w", err)
	}
	out, err := ledger.UnmarshalOutput(env.Output)
	if err != nil {
		return err
	}
	addr, err := ledger.UnmarshalAddress(env.Address)
	if err != nil {
		return err
	}
	r.Output = out
	r.Address = addr
	return nil
}

type preparedEnvelope struct {
	Transaction *ledger.Transaction        `json:"transaction"`
	InputsData  []*ledger.InputSigningData `json:"inputsData"`
	// Remainders is omitted entirely when empty rather than encoded as [].
	Remainders []RemainderData `json:"remainders,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p *PreparedTransactionData) MarshalJSON() ([]byte, error) {
	return json.Marshal(preparedEnvelope{
		Transaction: p.Transaction,
		InputsData:  p.InputsData,
		Remainders:  p.Remainders,
	})
}

// PreparedTransactionDataFromJSON decodes the interchange form. Protocol
// parameters resolve parameter-dependent fields: the transaction's network
// id must match the parameters it is decoded under.
func PreparedTransactionDataFromJSON(data []byte, params *ledger.ProtocolParameters) (*PreparedTransactionData, error) {
	var env preparedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("txbuilder: decode prepared transaction: %w", err)
	}
	if env.Transaction == nil {
		return nil, fmt.Errorf("txbuilder: decode prepared transaction: missing transaction")
	}
	if got, want := env.Transaction.NetworkID, params.NetworkID(); got != want {
		return nil, fmt.Errorf("txbuilder: decode prepared transaction: network id %d does not match parameters (%d)", got, want)
	}
	return &PreparedTransactionData{
		Transaction: env.Transaction,
		InputsData:  env.InputsData,
		Remainders:  env.Remainders,
	}, nil
}

type signedEnvelope struct {
	Payload    *ledger.SignedTransaction  `json:"payload"`
	InputsData []*ledger.InputSigningData `json:"inputsData"`
}

// MarshalJSON implements json.Marshaler.
func (s *SignedTransactionData) MarshalJSON() ([]byte, error) {
	return json.Marshal(signedEnvelope{Payload: s.Payload, InputsData: s.InputsData})
}

// SignedTransactionDataFromJSON decodes the interchange form under the given
// protocol parameters.
func SignedTransactionDataFromJSON(data []byte, params *ledger.ProtocolParameters) (*SignedTransactionData, error) {
	var env signedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("txbuilder: decode signed transaction: %w", err)
	}
	if env.Payload == nil || env.Payload.Transaction == nil {
		return nil, fmt.Errorf("txbuilder: decode signed transaction: missing payload")
	}
	if got, want := env.Payload.Transaction.NetworkID, params.NetworkID(); got != want {
		return nil, fmt.Errorf("txbuilder: decode signed transaction: network id %d does not match parameters (%d)", got, want)
	}
	return &SignedTransactionData{Payload: env.Payload, InputsData: env.InputsData}, nil
}
