package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/iliyamo/account-allocator/internal/model"
)

const (
	accountsBucket = "accounts"
	markersBucket  = "markers"
)

// Bolt implements Store over an embedded BoltDB file. It serves single-node
// deployments where running MySQL would be overkill: the whole table lives
// in one file and no external process is required. Rows are keyed by their
// big-endian encoded position so a cursor walk yields table order.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file and ensures the buckets
// exist. The one-second timeout avoids hanging forever on a stale file
// lock left by a crashed process.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, wrapErr(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(accountsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(markersBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, wrapErr(err)
	}
	return &Bolt{db: db}, nil
}

// Close releases the database file lock.
func (s *Bolt) Close() error { return s.db.Close() }

// SeedRows replaces the table content with the given rows, numbering them
// from zero in slice order, and resets every marker to NEUTRAL. Intended
// for provisioning a fresh file from an exported account list.
func (s *Bolt) SeedRows(rows []model.AccountRecord) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(accountsBucket)); err != nil {
			return err
		}
		if err := tx.DeleteBucket([]byte(markersBucket)); err != nil {
			return err
		}
		b, err := tx.CreateBucket([]byte(accountsBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucket([]byte(markersBucket)); err != nil {
			return err
		}
		for i, r := range rows {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put(rowKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapErr(err)
}

// ReadAllRows walks the accounts bucket in key order.
func (s *Bolt) ReadAllRows(ctx context.Context) ([]model.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr(err)
	}
	var out []model.AccountRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(accountsBucket)).ForEach(func(k, v []byte) error {
			var r model.AccountRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, r)
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

// ReadRow fetches one row by position, ErrRowOutOfRange when absent.
func (s *Bolt) ReadRow(ctx context.Context, row int) (model.AccountRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.AccountRecord{}, wrapErr(err)
	}
	var r model.AccountRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(accountsBucket)).Get(rowKey(row))
		if v == nil {
			return ErrRowOutOfRange
		}
		return json.Unmarshal(v, &r)
	})
	if err == ErrRowOutOfRange {
		return model.AccountRecord{}, err
	}
	if err != nil {
		return model.AccountRecord{}, wrapErr(err)
	}
	return r, nil
}

// WriteCell loads the row, mutates the addressed field and stores it back.
// The read-modify-write runs inside one Update transaction, so it is atomic
// with respect to other Bolt writers.
func (s *Bolt) WriteCell(ctx context.Context, row int, field model.Field, value string) error {
	if err := ctx.Err(); err != nil {
		return wrapErr(err)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(accountsBucket))
		v := b.Get(rowKey(row))
		if v == nil {
			return ErrRowOutOfRange
		}
		var r model.AccountRecord
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		switch field {
		case model.FieldState:
			r.State = value
		case model.FieldAssignee:
			r.Assignee = value
		case model.FieldRegion:
			r.Region = value
		default:
			return fmt.Errorf("unwritable field %q", field)
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		return b.Put(rowKey(row), data)
	})
	if err == ErrRowOutOfRange {
		return err
	}
	return wrapErr(err)
}

// SetRowMarker stores the marker in its own bucket keyed by row position.
func (s *Bolt) SetRowMarker(ctx context.Context, row int, marker model.RowMarker) error {
	if err := ctx.Err(); err != nil {
		return wrapErr(err)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(accountsBucket)).Get(rowKey(row)) == nil {
			return ErrRowOutOfRange
		}
		return tx.Bucket([]byte(markersBucket)).Put(rowKey(row), []byte(marker))
	})
	if err == ErrRowOutOfRange {
		return err
	}
	return wrapErr(err)
}

// RowMarker reads a row's marker, defaulting to NEUTRAL when never set.
func (s *Bolt) RowMarker(row int) (model.RowMarker, error) {
	marker := model.MarkerNeutral
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(markersBucket)).Get(rowKey(row)); v != nil {
			marker = model.RowMarker(v)
		}
		return nil
	})
	if err != nil {
		return "", wrapErr(err)
	}
	return marker, nil
}

// rowKey encodes a row position as a big-endian uint64 so bucket cursors
// iterate rows in table order.
func rowKey(row int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(row))
	return k
}
