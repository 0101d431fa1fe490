// Package walletdb persists the wallet's known outputs and their
// spent/reserved status in a bbolt database, so a restarted process cannot
// double-select inputs that an in-flight transaction already claimed.
package walletdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/meshledger/libmesh-go/ledger"
	"github.com/meshledger/libmesh-go/wallet"
)

var (
	bucketOutputs = []byte("outputs")
	bucketMeta    = []byte("meta")

	keySchemaVersion = []byte("schemaVersion")
)

// schemaVersion is bumped when the record encoding changes incompatibly.
const schemaVersion = 1

var _ wallet.OutputStore = (*Store)(nil)

// record is the stored form of one output.
type record struct {
	Input    *ledger.InputSigningData `json:"input"`
	Spent    bool                     `json:"spent,omitempty"`
	Reserved bool                     `json:"reserved,omitempty"`
}

// Store wraps a bbolt database holding the wallet's output set.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt database at dbPath. The parent directory
// is created if it does not exist.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("walletdb: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("walletdb: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketOutputs); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if stored := meta.Get(keySchemaVersion); stored != nil {
			if len(stored) != 1 || stored[0] != schemaVersion {
				return fmt.Errorf("%w: have %v, want %d", ErrSchemaVersion, stored, schemaVersion)
			}
			return nil
		}
		return meta.Put(keySchemaVersion, []byte{schemaVersion})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("walletdb: init: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// PutOutput stores an output keyed by its output id. An existing record's
// spent/reserved flags are preserved.
func (s *Store) PutOutput(in *ledger.InputSigningData) error {
	if in == nil {
		return ErrNilParam
	}
	id := in.OutputID()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketOutputs)
		rec := record{Input: in}
		if existing := b.Get(id[:]); existing != nil {
			var old record
			if err := json.Unmarshal(existing, &old); err == nil {
				rec.Spent = old.Spent
				rec.Reserved = old.Reserved
			}
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("walletdb: encode output: %w", err)
		}
		return b.Put(id[:], data)
	})
}

// Output returns the stored output for id.
func (s *Store) Output(id ledger.OutputID) (*ledger.InputSigningData, error) {
	var in *ledger.InputSigningData
	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		in = rec.Input
		return nil
	})
	return in, err
}

// AvailableInputs returns all outputs that are neither spent nor reserved,
// in key order.
func (s *Store) AvailableInputs() ([]*ledger.InputSigningData, error) {
	var out []*ledger.InputSigningData
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutputs).ForEach(func(_, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("walletdb: decode output: %w", err)
			}
			if !rec.Spent && !rec.Reserved {
				out = append(out, rec.Input)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reserve marks the output as provisionally claimed by an in-flight
// transaction.
func (s *Store) Reserve(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *record) { rec.Reserved = true })
}

// Release drops the output's reservation.
func (s *Store) Release(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *record) { rec.Reserved = false })
}

// MarkSpent marks the output as spent and clears any reservation.
func (s *Store) MarkSpent(id ledger.OutputID) error {
	return s.setFlags(id, func(rec *record) {
		rec.Spent = true
		rec.Reserved = false
	})
}

func (s *Store) setFlags(id ledger.OutputID, mutate func(*record)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		mutate(&rec)
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("walletdb: encode output: %w", err)
		}
		return tx.Bucket(bucketOutputs).Put(id[:], data)
	})
}

func getRecord(tx *bbolt.Tx, id ledger.OutputID) (record, error) {
	data := tx.Bucket(bucketOutputs).Get(id[:])
	if data == nil {
		return record{}, fmt.Errorf("%w: output %s", ErrNotFound, id)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("walletdb: decode output: %w", err)
	}
	return rec, nil
}
