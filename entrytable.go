package savedata

import (
	"slices"
	"sync"
)

// Entry is a single key-value pair of a store.
type Entry struct {
	Key   string
	Value string
}

// EntryTable is the positional in-memory half of every Store implementation.
// It keeps entries in insertion order (new keys are appended), maps keys to
// positions and remembers which keys were written or deleted since the last
// ClearPending, so that backends only need to implement Commit.
type EntryTable struct {
	mu      sync.Mutex
	entries []Entry
	pos     map[string]int
	puts    map[string]struct{}
	dels    map[string]struct{}
}

// NewEntryTable returns a table holding the given committed entries. Later
// entries win over earlier ones with the same key.
func NewEntryTable(entries []Entry) *EntryTable {
	t := &EntryTable{
		pos:  make(map[string]int, len(entries)),
		puts: make(map[string]struct{}),
		dels: make(map[string]struct{}),
	}
	for _, e := range entries {
		if i, found := t.pos[e.Key]; found {
			t.entries[i].Value = e.Value
			continue
		}
		t.pos[e.Key] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

func (t *EntryTable) Get(key string) (string, int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, found := t.pos[key]
	if !found {
		return "", -1, false
	}
	return t.entries[i].Value, i, true
}

func (t *EntryTable) GetAt(index int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return "", false
	}
	return t.entries[index].Value, true
}

// KeyAt returns the key stored at a position.
func (t *EntryTable) KeyAt(index int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return "", false
	}
	return t.entries[index].Key, true
}

func (t *EntryTable) Set(key, value string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, found := t.pos[key]
	if found {
		t.entries[i].Value = value
	} else {
		i = len(t.entries)
		t.pos[key] = i
		t.entries = append(t.entries, Entry{key, value})
	}
	t.puts[key] = struct{}{}
	delete(t.dels, key)
	return i
}

func (t *EntryTable) SetAt(index int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.entries) {
		return ErrBadIndex
	}
	t.entries[index].Value = value
	t.puts[t.entries[index].Key] = struct{}{}
	return nil
}

func (t *EntryTable) RemoveIndexes(indexes []int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	doomed := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(t.entries) {
			doomed = append(doomed, i)
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	slices.Sort(doomed)
	doomed = slices.Compact(doomed)

	for _, i := range doomed {
		t.markDeletedLocked(t.entries[i].Key)
	}

	// Walk backwards so earlier positions stay valid while removing.
	for j := len(doomed) - 1; j >= 0; j-- {
		i := doomed[j]
		t.entries = slices.Delete(t.entries, i, i+1)
	}
	t.reindexLocked()
	return len(doomed)
}

func (t *EntryTable) Delete(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, found := t.pos[key]
	if !found {
		return false
	}
	t.markDeletedLocked(key)
	t.entries = slices.Delete(t.entries, i, i+1)
	t.reindexLocked()
	return true
}

func (t *EntryTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a copy of all live entries in positional order.
func (t *EntryTable) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.entries)
}

// Pending returns the entries written and the keys deleted since the last
// ClearPending. Puts are in positional order, deletes are sorted.
func (t *EntryTable) Pending() (puts []Entry, dels []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if _, ok := t.puts[e.Key]; ok {
			puts = append(puts, e)
		}
	}
	for k := range t.dels {
		dels = append(dels, k)
	}
	slices.Sort(dels)
	return puts, dels
}

// HasPending reports whether Commit has anything to flush.
func (t *EntryTable) HasPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.puts) > 0 || len(t.dels) > 0
}

// ClearPending forgets the pending mutations; backends call it after a
// successful flush.
func (t *EntryTable) ClearPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.puts)
	clear(t.dels)
}

func (t *EntryTable) markDeletedLocked(key string) {
	delete(t.pos, key)
	delete(t.puts, key)
	t.dels[key] = struct{}{}
}

func (t *EntryTable) reindexLocked() {
	clear(t.pos)
	for i, e := range t.entries {
		t.pos[e.Key] = i
	}
}
