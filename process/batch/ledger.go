package batch

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const ledgerBucket = "processed"

// Entry records what happened to one file's content.
type Entry struct {
	File   string    `json:"file"`
	ScanID uint      `json:"scan_id"`
	Amount string    `json:"amount"`
	At     time.Time `json:"at"`
}

// Ledger remembers processed content by sha256 so a file is never scanned
// twice, even after a rename or a copy back into the inbox.
type Ledger struct {
	db *bbolt.DB
}

func OpenLedger(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ledgerBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger bucket: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Lookup returns the entry for hash, if any.
func (l *Ledger) Lookup(hash string) (Entry, bool, error) {
	var e Entry
	var found bool
	err := l.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ledgerBucket)).Get([]byte(hash))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &e)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading ledger: %w", err)
	}
	return e, found, nil
}

func (l *Ledger) Record(hash string, e Entry) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling ledger entry: %w", err)
		}
		return tx.Bucket([]byte(ledgerBucket)).Put([]byte(hash), data)
	})
}

// Len returns the number of recorded hashes.
func (l *Ledger) Len() (int, error) {
	var n int
	err := l.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(ledgerBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func (l *Ledger) Close() error {
	return l.db.Close()
}
