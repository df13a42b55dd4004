package savedata

import "errors"

var (
	// ErrBadIndex is returned by Store.SetAt when the index does not address
	// a live entry (e.g. it was cached before a compaction).
	ErrBadIndex = errors.New("bad store index")

	// ErrClosed is returned by stores that have been closed.
	ErrClosed = errors.New("store closed")
)

// Store is the backing key-value store (bolt, in-memory, SQL).
//
// Keys are flat strings; all hierarchy lives in the dotted key path. Every
// key gets a positional index when first written or looked up. Indexes are
// dense: removing entries shifts every later position down, so callers must
// drop their cached indexes after RemoveIndexes.
//
// Mutations are buffered until Commit.
type Store interface {
	// Get looks up the value by key and returns its current index.
	Get(key string) (value string, index int, ok bool)

	// GetAt returns the value at a position.
	GetAt(index int) (string, bool)

	// Set stores the value and returns the index of the entry.
	Set(key, value string) int

	// SetAt overwrites the value at a position. Returns ErrBadIndex for
	// out-of-range positions.
	SetAt(index int, value string) error

	// RemoveIndexes removes the entries at the given positions (in any order,
	// duplicates ignored) and returns the number of entries removed.
	RemoveIndexes(indexes []int) int

	// Delete removes the entry with the given key.
	Delete(key string) bool

	// Len returns the number of live entries.
	Len() int

	// Commit flushes all buffered mutations.
	Commit() error
}
