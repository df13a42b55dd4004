package savedata

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DB is the context object shared by every node of a save tree: the store,
// the logger, the blob encoding, metrics and the async stager. Construct one
// per process and pass it to Load.
type DB struct {
	store   Store
	log     *zap.Logger
	verbose bool
	enc     Encoding
	metrics *metrics

	saveOnPause bool

	stager Stager

	// critical serializes compaction against staging.
	critical sync.Mutex

	// compacted is set when CleanData removed entries not yet committed.
	compacted bool

	roots []Node
}

type Options struct {
	Logger   *zap.Logger
	Verbose  bool
	Encoding Encoding

	// Registerer receives the DB metrics; nil keeps them unregistered.
	Registerer prometheus.Registerer

	// SaveOnPause saves loaded roots when the application pauses or quits.
	SaveOnPause bool

	// IsTesting trades durability for speed in OpenBolt.
	IsTesting bool
}

// New returns a DB over an existing store.
func New(store Store, opt Options) *DB {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &DB{
		store:       store,
		log:         log,
		verbose:     opt.Verbose,
		enc:         opt.Encoding,
		metrics:     newMetrics(opt.Registerer),
		saveOnPause: opt.SaveOnPause,
	}
}

// Open opens a bolt-backed DB at path.
func Open(path string, opt Options) (*DB, error) {
	store, err := OpenBolt(path, BoltOptions{IsTesting: opt.IsTesting})
	if err != nil {
		return nil, err
	}
	return New(store, opt), nil
}

func (db *DB) Store() Store { return db.store }

func (db *DB) Logger() *zap.Logger { return db.log }

func (db *DB) Encoding() Encoding { return db.enc }

func (db *DB) Stager() *Stager { return &db.stager }

// Load assigns key paths under root and hydrates every leaf. The root is
// remembered so that compaction can invalidate its indexes.
func (db *DB) Load(root Node) {
	root.Load(db, "")
	if !slices.Contains(db.roots, root) {
		db.roots = append(db.roots, root)
	}
	if db.verbose {
		db.log.Debug("loaded", zap.String("root", root.Key()), zap.Int("entries", db.store.Len()))
	}
}

// Stage flushes dirty leaves of root without committing.
func (db *DB) Stage(root Node) (bool, error) {
	if db.stager.Active() {
		return false, ErrSweepActive
	}
	db.critical.Lock()
	defer db.critical.Unlock()
	return root.Stage(), nil
}

// Save stages root and commits the store if anything changed (or a
// compaction is waiting to be committed).
func (db *DB) Save(root Node) (bool, error) {
	changed, err := db.Stage(root)
	if err != nil {
		return false, err
	}
	if !changed && !db.compacted {
		return false, nil
	}
	return changed, db.Commit()
}

// SaveAsync stages root one leaf per Stager.Step and commits after the last
// leaf if anything changed. Returns false if a sweep is already running.
func (db *DB) SaveAsync(root Node, done func(changed bool, err error)) bool {
	leaves := root.Flatten(nil)
	return db.stager.Start(leaves, func(changed bool) {
		if takeStructural(root) {
			changed = true
		}
		var err error
		if changed || db.compacted {
			err = db.Commit()
		}
		if done != nil {
			done(changed, err)
		}
	})
}

// Commit flushes the store.
func (db *DB) Commit() error {
	db.metrics.commits.Inc()
	if err := db.store.Commit(); err != nil {
		db.log.Error("commit failed", zap.Error(err))
		return err
	}
	db.compacted = false
	return nil
}

// Reload discards in-memory state of root and re-hydrates it.
func (db *DB) Reload(root Node) {
	root.Reload()
}

// Reset restores defaults across root (new game). Nothing is written until
// the next Save.
func (db *DB) Reset(root Node) {
	root.Reset()
}

// CleanData removes the store entries of leaves under root holding their
// default value and returns how many were removed.
//
// The pass runs as a critical section: once entries are removed, every
// cached index of every loaded root is dropped, even if removal panics.
func (db *DB) CleanData(root Node) (n int, err error) {
	if db.stager.Active() {
		return 0, ErrSweepActive
	}
	db.critical.Lock()
	defer db.critical.Unlock()

	indexes := root.CollectCleanable(nil)
	if len(indexes) == 0 {
		return 0, nil
	}

	defer func() {
		root.InvalidateIndex()
		for _, r := range db.roots {
			r.InvalidateIndex()
		}
	}()
	n = db.store.RemoveIndexes(indexes)
	if n > 0 {
		db.compacted = true
	}

	db.metrics.compactions.Inc()
	db.metrics.removedEntries.Add(float64(n))
	if db.verbose {
		db.log.Debug("compacted", zap.String("root", root.Key()), zap.Int("removed", n))
	}
	return n, nil
}

// Compact runs CleanData on root and commits the removals.
func (db *DB) Compact(root Node) (int, error) {
	n, err := db.CleanData(root)
	if err != nil || n == 0 {
		return n, err
	}
	return n, db.Commit()
}

// Pause broadcasts the pause state to root, saving it first when the DB was
// opened with SaveOnPause.
func (db *DB) Pause(root Node, paused bool) {
	if p, ok := root.(interface{ Pause(bool) }); ok {
		p.Pause(paused)
	}
	if paused && db.saveOnPause {
		if _, err := db.Save(root); err != nil {
			db.log.Error("save on pause failed", zap.Error(err))
		}
	}
}

// Quit broadcasts shutdown and performs the final save.
func (db *DB) Quit(root Node) error {
	if q, ok := root.(interface{ Quit() }); ok {
		q.Quit()
	}
	if db.stager.Active() {
		db.stager.Drain()
	}
	_, err := db.Save(root)
	return err
}

// Close closes the store if it holds resources.
func (db *DB) Close() error {
	if c, ok := db.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("savedata: closing: %w", err)
		}
	}
	return nil
}

func takeStructural(n Node) bool {
	changed := false
	if g, ok := n.(interface{ takeStructural() bool }); ok {
		changed = g.takeStructural()
	}
	if g, ok := n.(interface{ Children() []Node }); ok {
		for _, c := range g.Children() {
			if takeStructural(c) {
				changed = true
			}
		}
	}
	return changed
}
