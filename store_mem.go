package savedata

import "sync"

// MemStore is a transient in-memory Store intended for tests and tooling.
//
// Commit copies the live entries into a committed snapshot; Reopen returns a
// new store built from that snapshot, which is how tests simulate a fresh
// process reading what the previous one saved.
type MemStore struct {
	*EntryTable

	mu        sync.Mutex
	committed []Entry
	commits   int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{EntryTable: NewEntryTable(nil)}
}

// NewMemStoreWith returns a MemStore pre-populated with committed entries.
func NewMemStoreWith(entries []Entry) *MemStore {
	return &MemStore{
		EntryTable: NewEntryTable(entries),
		committed:  append([]Entry(nil), entries...),
	}
}

func (s *MemStore) Commit() error {
	snap := s.Entries()
	s.ClearPending()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = snap
	s.commits++
	return nil
}

// Commits returns the number of Commit calls so far.
func (s *MemStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Reopen returns a new store holding only what was committed.
func (s *MemStore) Reopen() *MemStore {
	s.mu.Lock()
	snap := append([]Entry(nil), s.committed...)
	s.mu.Unlock()
	return NewMemStoreWith(snap)
}
