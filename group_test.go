package savedata

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// pauseRecorder is a bare node that records lifecycle broadcasts.
type pauseRecorder struct {
	id     string
	paused []bool
	quit   bool
}

func (p *pauseRecorder) ID() string { return p.id }
func (p *pauseRecorder) Key() string { return "" }
func (p *pauseRecorder) Load(db *DB, parentKey string) {}
func (p *pauseRecorder) Stage() bool { return false }
func (p *pauseRecorder) Reload() {}
func (p *pauseRecorder) Reset() {}
func (p *pauseRecorder) CollectCleanable(dst []int) []int { return dst }
func (p *pauseRecorder) InvalidateIndex() {}
func (p *pauseRecorder) Flatten(dst []Node) []Node { return dst }
func (p *pauseRecorder) OnPause(paused bool) { p.paused = append(p.paused, paused) }
func (p *pauseRecorder) OnQuit() { p.quit = true }

func TestGroupRejectsDuplicateIDs(t *testing.T) {
	first := NewInt("a", 1)
	g := NewGroup("g", first, NewInt("a", 2))
	deepEqual(t, len(g.Children()), 1)
	isTrue(t, g.Child("a") == Node(first), "first child kept")

	err := g.Add(NewString("a", ""))
	isTrue(t, errors.Is(err, ErrDuplicateID), "errors.Is(err, ErrDuplicateID)")
	deepEqual(t, len(g.Children()), 1)
}

func TestGroupLogsDuplicateIDsOnLoad(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	db := New(NewMemStore(), Options{Logger: zap.New(core)})
	g := NewGroup("g", NewInt("a", 0), NewInt("a", 1))
	nested := NewGroup("n", NewString("s", ""), NewString("s", ""))
	inv := NewInventory[*InventoryRecord]("inv")
	isTrue(t, inv.Add(NewInt("last_id", 0)) != nil, "inventory Add of a taken id fails")
	deepEqual(t, logs.Len(), 0)

	db.Load(NewGroup("", g, nested, inv))
	deepEqual(t, len(g.Children()), 1)
	rejected := logs.FilterMessage("rejected child").All()
	deepEqual(t, len(rejected), 3)
	for _, e := range rejected {
		err, _ := e.Context[0].Interface.(error)
		isTrue(t, errors.Is(err, ErrDuplicateID), "logged error wraps ErrDuplicateID")
	}

	db.Load(g)
	deepEqual(t, logs.FilterMessage("rejected child").Len(), 3)

	isTrue(t, g.Add(NewInt("a", 2)) != nil, "Add after Load fails")
	deepEqual(t, logs.FilterMessage("rejected child").Len(), 4)
}

func TestGroupSameIDInDifferentParents(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	x, y := NewInt("n", 0), NewInt("n", 0)
	root := NewGroup("", NewGroup("a", x), NewGroup("b", y))
	db.Load(root)
	x.Set(1)
	y.Set(2)
	must(db.Save(root))

	v, _, _ := store.Get("a.n")
	deepEqual(t, v, "1")
	v, _, _ = store.Get("b.n")
	deepEqual(t, v, "2")
}

func TestGroupAddAfterLoad(t *testing.T) {
	store := NewMemStoreWith([]Entry{{"g.late", "7"}})
	db := memDB(store)
	g := NewGroup("g", NewInt("early", 0))
	db.Load(g)
	isFalse(t, g.Stage(), "Stage of unchanged group")

	late := NewInt("late", 0)
	ensure(g.Add(late))
	deepEqual(t, late.Key(), "g.late")
	deepEqual(t, late.Get(), 7)
	isTrue(t, g.Stage(), "Stage after Add")
	isFalse(t, g.Stage(), "second Stage after Add")

	isTrue(t, g.Remove("late"), "Remove")
	isFalse(t, g.Remove("late"), "second Remove")
	isTrue(t, g.Stage(), "Stage after Remove")
	deepEqual(t, store.Len(), 1)
}

func TestGroupStructuralChangeCommits(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	g := NewGroup("g", NewInt("a", 0))
	db.Load(g)
	g.MarkStructureChanged()
	isTrue(t, must(g.Save()), "Save after MarkStructureChanged")
	deepEqual(t, store.Commits(), 1)
	isFalse(t, must(g.Save()), "second Save")
}

func TestGroupSaveBeforeLoad(t *testing.T) {
	g := NewGroup("g")
	_, err := g.Save()
	isTrue(t, errors.Is(err, errNotLoaded), "errors.Is(err, errNotLoaded)")
	deepEqual(t, err.Error(), "g: cannot save: not loaded")
	deepEqual(t, g.CleanData(), 0)
}

func TestGroupFind(t *testing.T) {
	db := memDB(NewMemStore())
	x := NewInt("x", 0)
	sub := NewGroup("sub", x)
	root := NewGroup("root", NewInt("a", 0), sub)
	db.Load(root)

	isTrue(t, root.Find("root.sub.x") == Node(x), "Find leaf")
	isTrue(t, root.Find("root.sub") == Node(sub), "Find group")
	isTrue(t, root.Find("root.sub.y") == nil, "Find missing")
	isTrue(t, root.Find("root.subx") == nil, "Find sibling prefix")
}

func TestGroupBroadcastsHooks(t *testing.T) {
	outer, inner := &pauseRecorder{id: "outer"}, &pauseRecorder{id: "inner"}
	root := NewGroup("", outer, NewGroup("sub", inner))

	root.Pause(true)
	root.Pause(false)
	root.Quit()
	deepEqual(t, outer.paused, []bool{true, false})
	deepEqual(t, inner.paused, []bool{true, false})
	isTrue(t, outer.quit && inner.quit, "quit delivered")
}

func TestGroupFlattenOrder(t *testing.T) {
	root := NewGroup("",
		NewInt("a", 0),
		NewGroup("g", NewInt("b", 0), NewGroup("h", NewInt("c", 0))),
		NewInt("d", 0),
	)
	var ids []string
	for _, n := range root.Flatten(nil) {
		ids = append(ids, n.ID())
	}
	deepEqual(t, ids, []string{"a", "b", "c", "d"})
}
