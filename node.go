package savedata

import "go.uber.org/zap"

// Node is an element of the save tree: a leaf persisted as one store entry,
// or a Group of nodes.
type Node interface {
	// ID is unique among siblings.
	ID() string

	// Key is the dotted key path, assigned by Load.
	Key() string

	// Load assigns the key path and hydrates the node from db's store.
	Load(db *DB, parentKey string)

	// Stage writes dirty values to the store and reports whether anything
	// was written.
	Stage() bool

	// Reload discards in-memory state and re-hydrates from the store.
	Reload()

	// Reset restores defaults.
	Reset()

	// CollectCleanable appends the store indexes of leaves holding their
	// default value.
	CollectCleanable(dst []int) []int

	// InvalidateIndex drops cached store indexes.
	InvalidateIndex()

	// Flatten appends the leaves of the subtree in depth-first order.
	Flatten(dst []Node) []Node
}

// PauseHandler is implemented by nodes interested in application pause.
type PauseHandler interface {
	OnPause(paused bool)
}

// QuitHandler is implemented by nodes interested in application shutdown.
type QuitHandler interface {
	OnQuit()
}

func joinKey(parentKey, id string) string {
	if parentKey == "" {
		return id
	}
	return parentKey + "." + id
}

// leaf is the state shared by all persisted leaves.
type leaf struct {
	id    string
	key   string
	index int
	dirty bool
	db    *DB
}

func newLeaf(id string) leaf {
	return leaf{id: id, index: -1}
}

func (l *leaf) ID() string { return l.id }

func (l *leaf) Key() string { return l.key }

// Dirty reports whether the leaf has changes not yet staged.
func (l *leaf) Dirty() bool { return l.dirty }

// Index returns the store position of the leaf, resolving it by key if it
// is not cached. Returns -1 when the leaf has no store entry.
func (l *leaf) Index() int {
	if l.index < 0 && l.db != nil && l.key != "" {
		if _, i, ok := l.db.store.Get(l.key); ok {
			l.index = i
		}
	}
	return l.index
}

func (l *leaf) InvalidateIndex() {
	l.index = -1
}

func (l *leaf) bind(db *DB, parentKey string) {
	key := joinKey(parentKey, l.id)
	if l.key != "" && l.key != key {
		db.log.Warn("leaf key already assigned, keeping it", zap.String("key", l.key), zap.String("new_key", key))
	} else {
		l.key = key
	}
	l.db = db
	l.index = -1
}

func (l *leaf) loaded() bool {
	return l.db != nil
}

// read returns the persisted string, caching the resolved index.
func (l *leaf) read() (string, bool) {
	if l.index >= 0 {
		if v, ok := l.db.store.GetAt(l.index); ok {
			return v, true
		}
		l.index = -1
	}
	v, i, ok := l.db.store.Get(l.key)
	if !ok {
		return "", false
	}
	l.index = i
	return v, true
}

// write stores s, via the cached index when there is one.
func (l *leaf) write(s string) {
	l.db.metrics.writes.Inc()
	if l.index >= 0 {
		err := l.db.store.SetAt(l.index, s)
		if err == nil {
			return
		}
		l.db.log.Warn("cached index rejected, writing by key", zap.String("key", l.key), zap.Int("index", l.index), zap.Error(err))
	}
	l.index = l.db.store.Set(l.key, s)
	if l.db.verbose {
		l.db.log.Debug("resolved index", zap.String("key", l.key), zap.Int("index", l.index))
	}
}

// hydrationFailed reports a persisted value that could not be parsed.
func (l *leaf) hydrationFailed(raw string, err error) {
	l.db.metrics.hydrationFailures.Inc()
	l.db.log.Warn("falling back to default", zap.Error(leafErrf(l.key, err, "cannot parse %q", truncateForLog(raw))))
}

func truncateForLog(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
