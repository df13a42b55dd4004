package savedata

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Group is a composite node owning an ordered list of children. It builds
// key paths for its subtree and drives the recursive lifecycle.
//
// Groups are meant to be embedded into application structs that keep typed
// handles to their leaves:
//
//	type Wallet struct {
//		savedata.Group
//		Coins *savedata.Value[int]
//	}
type Group struct {
	id         string
	key        string
	db         *DB
	children   []Node
	byID       map[string]Node
	structural bool
	rejected   []error
}

// NewGroup returns a group with the given children. Children with duplicate
// ids are skipped and logged once the group is loaded.
func NewGroup(id string, children ...Node) *Group {
	g := &Group{}
	g.Init(id, children...)
	return g
}

// Init initializes an embedded Group.
func (g *Group) Init(id string, children ...Node) {
	g.id = id
	g.byID = make(map[string]Node, len(children))
	for _, c := range children {
		_ = g.Add(c)
	}
}

func (g *Group) ID() string { return g.id }

func (g *Group) Key() string { return g.key }

// Children returns the children in registration order.
func (g *Group) Children() []Node { return g.children }

// Child returns the child with the given id.
func (g *Group) Child(id string) Node { return g.byID[id] }

// DB returns the DB the group was loaded with, or nil.
func (g *Group) DB() *DB { return g.db }

// Add registers a child. A sibling id collision is logged (on Load if the
// group is not loaded yet) and the child is not inserted. Children added after Load are hydrated immediately and mark
// the group as structurally changed.
func (g *Group) Add(child Node) error {
	if g.byID == nil {
		g.byID = make(map[string]Node)
	}
	id := child.ID()
	if _, found := g.byID[id]; found {
		err := fmt.Errorf("%w: %q in %q", ErrDuplicateID, id, g.displayKey())
		if g.db != nil {
			g.db.log.Error("rejected child", zap.Error(err))
		} else {
			g.rejected = append(g.rejected, err)
		}
		return err
	}
	g.byID[id] = child
	g.children = append(g.children, child)
	if g.db != nil {
		child.Load(g.db, g.key)
		g.structural = true
	}
	return nil
}

// Remove unregisters a child. The child's store entries are left alone;
// compact or delete them separately.
func (g *Group) Remove(id string) bool {
	child, found := g.byID[id]
	if !found {
		return false
	}
	delete(g.byID, id)
	for i, c := range g.children {
		if c == child {
			g.children = append(g.children[:i], g.children[i+1:]...)
			break
		}
	}
	g.structural = true
	return true
}

// MarkStructureChanged forces the next Stage to report a change.
func (g *Group) MarkStructureChanged() {
	g.structural = true
}

func (g *Group) Load(db *DB, parentKey string) {
	key := joinKey(parentKey, g.id)
	if g.key != "" && g.key != key {
		db.log.Warn("group key already assigned, keeping it", zap.String("key", g.key), zap.String("new_key", key))
	} else {
		g.key = key
	}
	g.db = db
	for _, err := range g.rejected {
		db.log.Error("rejected child", zap.Error(err))
	}
	g.rejected = nil
	for _, c := range g.children {
		c.Load(db, g.key)
	}
	g.structural = false
}

// Stage stages every child and reports whether anything changed. The
// structural flag is consumed regardless of the outcome.
func (g *Group) Stage() bool {
	changed := false
	for _, c := range g.children {
		if c.Stage() {
			changed = true
		}
	}
	if g.takeStructural() {
		changed = true
	}
	return changed
}

func (g *Group) takeStructural() bool {
	s := g.structural
	g.structural = false
	return s
}

// Save stages the subtree and commits the store if anything changed.
func (g *Group) Save() (bool, error) {
	if g.db == nil {
		return false, leafErrf(g.displayKey(), errNotLoaded, "cannot save")
	}
	return g.db.Save(g)
}

func (g *Group) Reload() {
	for _, c := range g.children {
		c.Reload()
	}
	g.structural = false
}

func (g *Group) Reset() {
	for _, c := range g.children {
		c.Reset()
	}
}

// Pause broadcasts the pause state to children implementing PauseHandler.
func (g *Group) Pause(paused bool) {
	for _, c := range g.children {
		if h, ok := c.(PauseHandler); ok {
			h.OnPause(paused)
		}
		if sub, ok := c.(interface{ Pause(bool) }); ok {
			sub.Pause(paused)
		}
	}
}

// Quit broadcasts shutdown to children implementing QuitHandler.
func (g *Group) Quit() {
	for _, c := range g.children {
		if h, ok := c.(QuitHandler); ok {
			h.OnQuit()
		}
		if sub, ok := c.(interface{ Quit() }); ok {
			sub.Quit()
		}
	}
}

func (g *Group) CollectCleanable(dst []int) []int {
	for _, c := range g.children {
		dst = c.CollectCleanable(dst)
	}
	return dst
}

func (g *Group) InvalidateIndex() {
	for _, c := range g.children {
		c.InvalidateIndex()
	}
}

func (g *Group) Flatten(dst []Node) []Node {
	for _, c := range g.children {
		dst = c.Flatten(dst)
	}
	return dst
}

// CleanData removes the store entries of every leaf in the subtree that
// holds its default value, and returns the number of entries removed.
//
// Removing entries shifts the positions of all later entries, so every
// cached index in the subtree is dropped afterwards, not only the removed
// ones.
func (g *Group) CleanData() int {
	if g.db == nil {
		return 0
	}
	n, err := g.db.CleanData(g)
	if err != nil {
		g.db.log.Warn("compaction skipped", zap.String("key", g.key), zap.Error(err))
	}
	return n
}

func (g *Group) displayKey() string {
	if g.key != "" {
		return g.key
	}
	return g.id
}

func (g *Group) logger() *zap.Logger {
	if g.db == nil {
		return zap.NewNop()
	}
	return g.db.log
}

// Find returns the node with the given full key in the subtree, or nil.
func (g *Group) Find(key string) Node {
	for _, c := range g.children {
		if c.Key() == key {
			return c
		}
		if sub, ok := c.(interface{ Find(string) Node }); ok && strings.HasPrefix(key, c.Key()+".") {
			if n := sub.Find(key); n != nil {
				return n
			}
		}
	}
	return nil
}
