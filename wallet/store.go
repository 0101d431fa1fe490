package wallet

import (
	"sync"

	"github.com/meshledger/libmesh-go/ledger"
)

// OutputStore tracks the wallet's known outputs and their spend status.
// Reserve marks an output as claimed by an in-flight transaction so
// concurrent prepares cannot double-select it.
type OutputStore interface {
	PutOutput(in *ledger.InputSigningData) error
	AvailableInputs() ([]*ledger.InputSigningData, error)
	Reserve(id ledger.OutputID) error
	Release(id ledger.OutputID) error
	MarkSpent(id ledger.OutputID) error
}

// MemoryStore is an in-process OutputStore. It loses state on restart; use
// the walletdb package for persistence.
type MemoryStore struct {
	mu      sync.Mutex
	records map[ledger.OutputID]*memoryRecord
	order   []ledger.OutputID
}

type memoryRecord struct {
	input    *ledger.InputSigningData
	spent    bool
	reserved bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[ledger.OutputID]*memoryRecord)}
}

var _ OutputStore = (*MemoryStore)(nil)

// PutOutput stores an output, preserving the flags of an existing record.
func (s *MemoryStore) PutOutput(in *ledger.InputSigningData) error {
	if in == nil {
		return ErrNilParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := in.OutputID()
	if rec, ok := s.records[id]; ok {
		rec.input = in
		return nil
	}
	s.records[id] = &memoryRecord{input: in}
	s.order = append(s.order, id)
	return nil
}

// AvailableInputs returns all outputs that are neither spent nor reserved,
// in insertion order.
func (s *MemoryStore) AvailableInputs() ([]*ledger.InputSigningData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledger.InputSigningData
	for _, id := range s.order {
		rec := s.records[id]
		if !rec.spent && !rec.reserved {
			out = append(out, rec.input)
		}
	}
	return out, nil
}

// Reserve marks the output as claimed by an in-flight transaction.
func (s *MemoryStore) Reserve(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *memoryRecord) { rec.reserved = true })
}

// Release drops the output's reservation.
func (s *MemoryStore) Release(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *memoryRecord) { rec.reserved = false })
}

// MarkSpent marks the output as spent and clears any reservation.
func (s *MemoryStore) MarkSpent(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *memoryRecord) {
		rec.spent = true
		rec.reserved = false
	})
}

func (s *MemoryStore) setFlags(id ledger.OutputID, mutate func(*memoryRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	mutate(rec)
	return nil
}
