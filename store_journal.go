package savedata

import (
	"fmt"
	"io"

	"github.com/hnb-rabear/RCore-sub006/journal"
)

// TableStore is a Store that exposes its entries and buffered mutations,
// like every store built on EntryTable.
type TableStore interface {
	Store
	Entries() []Entry
	Pending() (puts []Entry, dels []string)
	HasPending() bool
}

// changeSet is the journal record of one commit.
type changeSet struct {
	Puts []Entry  `msgpack:"p"`
	Dels []string `msgpack:"d"`
}

// JournaledStore appends every committed change set to a journal before
// committing the wrapped store, so the save can be rebuilt with
// ReplayJournal if the store file is lost.
type JournaledStore struct {
	TableStore
	j *journal.Journal
}

func NewJournaledStore(s TableStore, j *journal.Journal) *JournaledStore {
	return &JournaledStore{TableStore: s, j: j}
}

func (s *JournaledStore) Journal() *journal.Journal {
	return s.j
}

func (s *JournaledStore) Commit() error {
	if s.HasPending() {
		puts, dels := s.Pending()
		blob, err := MsgPack.Encode(changeSet{Puts: puts, Dels: dels})
		if err != nil {
			return err
		}
		if err := s.j.WriteRecord(blob); err != nil {
			return fmt.Errorf("savedata: journal: %w", err)
		}
		if err := s.j.Commit(); err != nil {
			return fmt.Errorf("savedata: journal: %w", err)
		}
	}
	return s.TableStore.Commit()
}

// Close closes the journal and then the wrapped store.
func (s *JournaledStore) Close() error {
	jerr := s.j.Close()
	if c, ok := s.TableStore.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return jerr
}

// ReplayJournal applies every change set journaled in dir to dst, commits
// it and returns the number of change sets applied.
func ReplayJournal(dir string, opt journal.Options, dst Store) (int, error) {
	var n int
	err := journal.Replay(dir, opt, func(c journal.Commit) error {
		for _, rec := range c.Records {
			var cs changeSet
			if err := MsgPack.Decode(rec, &cs); err != nil {
				return err
			}
			for _, k := range cs.Dels {
				dst.Delete(k)
			}
			for _, e := range cs.Puts {
				dst.Set(e.Key, e.Value)
			}
			n++
		}
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("savedata: replay: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return n, dst.Commit()
}
