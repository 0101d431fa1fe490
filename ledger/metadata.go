package ledger

import (
	"encoding/json"
	"fmt"
)

// OutputMetadata holds the chain-position and spend-status facts about a
// confirmed output.
type OutputMetadata struct {
	OutputID     OutputID     `json:"outputId"`
	BlockID      BlockID      `json:"blockId"`
	IncludedSlot SlotIndex    `json:"includedSlot"`
	Spent        bool         `json:"spent,omitempty"`
	CommitmentID CommitmentID `json:"commitmentId"`
}

// InputSigningData pairs an output with its metadata; it is the unit
// consumed as a transaction input. The output must be unspent at selection
// time.
type InputSigningData struct {
	Output         Output
	OutputMetadata OutputMetadata
}

// OutputID returns the id of the underlying output.
func (d *InputSigningData) OutputID() OutputID {
	return d.OutputMetadata.OutputID
}

// inputSigningDataEnvelope is the JSON interchange form of InputSigningData.
type inputSigningDataEnvelope struct {
	Output         json.RawMessage `json:"output"`
	OutputMetadata OutputMetadata  `json:"outputMetadata"`
}

// MarshalJSON implements json.Marshaler.
func (d *InputSigningData) MarshalJSON() ([]byte, error) {
	encoded, err := MarshalOutput(d.Output)
	if err != nil {
		return nil, err
	}
	return json.Marshal(inputSigningDataEnvelope{
		Output:         encoded,
		OutputMetadata: d.OutputMetadata,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *InputSigningData) UnmarshalJSON(data []byte) error {
	var env inputSigningDataEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	out, err := UnmarshalOutput(env.Output)
	if err != nil {
		return err
	}
	d.Output = out
	d.OutputMetadata = env.OutputMetadata
	return nil
}
