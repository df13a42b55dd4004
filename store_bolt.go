package savedata

import (
	"errors"
	"fmt"
	"io"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

// DefaultBucket is the bolt bucket holding save entries.
const DefaultBucket = "prefs"

// BoltOptions configure OpenBolt.
type BoltOptions struct {
	Bucket    string
	IsTesting bool
	MmapSize  int
	ReadOnly  bool
}

// BoltStore is a Store persisted in a bolt file. Entries live in memory
// between commits; Commit writes all pending puts and deletes in a single
// bolt transaction.
type BoltStore struct {
	*EntryTable

	bdb    *bbolt.DB
	bucket string
}

// OpenBolt opens (creating if needed) a bolt-backed store. Entries are
// positioned in bolt key order.
func OpenBolt(path string, opt BoltOptions) (*BoltStore, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	bopt.ReadOnly = opt.ReadOnly
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}
	if opt.Bucket == "" {
		opt.Bucket = DefaultBucket
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("savedata: %w", err)
	}

	var entries []Entry
	load := func(btx *bbolt.Tx) error {
		b := btx.Bucket(unsafeBytesFromString(opt.Bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			entries = append(entries, Entry{Key: string(k), Value: string(v)})
			return nil
		})
	}
	if opt.ReadOnly {
		err = bdb.View(load)
	} else {
		err = bdb.Update(func(btx *bbolt.Tx) error {
			if _, err := btx.CreateBucketIfNotExists([]byte(opt.Bucket)); err != nil {
				return err
			}
			return load(btx)
		})
	}
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("savedata: loading %s: %w", path, err)
	}

	return &BoltStore{
		EntryTable: NewEntryTable(entries),
		bdb:        bdb,
		bucket:     opt.Bucket,
	}, nil
}

// Bolt returns the underlying bolt database.
func (s *BoltStore) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *BoltStore) Commit() error {
	if !s.HasPending() {
		return nil
	}
	puts, dels := s.Pending()
	err := s.bdb.Update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists(unsafeBytesFromString(s.bucket))
		if err != nil {
			return err
		}
		for _, k := range dels {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for _, e := range puts {
			if err := b.Put([]byte(e.Key), []byte(e.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	} else if err != nil {
		return fmt.Errorf("savedata: commit: %w", err)
	}
	s.ClearPending()
	return nil
}

// Snapshot writes a consistent copy of the bolt file to w.
func (s *BoltStore) Snapshot(w io.Writer) (int64, error) {
	var n int64
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		var err error
		n, err = btx.WriteTo(w)
		return err
	})
	return n, err
}

// Size returns the size of the bolt file in bytes.
func (s *BoltStore) Size() int64 {
	var size int64
	_ = s.bdb.View(func(btx *bbolt.Tx) error {
		size = btx.Size()
		return nil
	})
	return size
}

func (s *BoltStore) Close() error {
	return s.bdb.Close()
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
