package savedata

import (
	"testing"
)

func TestObjectDetectsInPlaceMutation(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	o := NewObject("p", &Profile{Name: "anon"})
	db.Load(NewGroup("", o))
	isFalse(t, o.Changed(), "Changed after Load")

	o.Get().Friends = append(o.Get().Friends, "alice")
	isTrue(t, o.Changed(), "Changed after mutation")
	isTrue(t, o.Stage(), "Stage")
	isFalse(t, o.Stage(), "second Stage")
	isFalse(t, o.Dirty(), "Dirty after Stage")
	deepEqual(t, store.Len(), 1)
}

func TestObjectNilTransitions(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	o := NewObject[*Profile]("p", nil)
	db.Load(NewGroup("", o))
	isTrue(t, o.Get() == nil, "nil default")
	isFalse(t, o.Changed(), "Changed at nil default")

	o.Set(&Profile{})
	isTrue(t, o.Stage(), "Stage nil to value")

	o.Set(nil)
	isTrue(t, o.Stage(), "Stage value to nil")

	o2 := NewObject("p", &Profile{Name: "default"})
	memDB(store).Load(NewGroup("", o2))
	isTrue(t, o2.Get() == nil, "persisted nil read back")
}

func TestObjectResetDoesNotShareDefault(t *testing.T) {
	def := &Profile{Name: "anon"}
	o := NewObject("p", def)
	o.Get().Name = "changed"
	deepEqual(t, def.Name, "anon")

	o.Reset()
	deepEqual(t, o.Get().Name, "anon")
	isTrue(t, o.Get() != def, "fresh default copy")
}

func TestObjectCleanable(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	o := NewObject("p", &Profile{Name: "anon"})
	root := NewGroup("", o)
	db.Load(root)
	isFalse(t, o.Cleanable(), "Cleanable without entry")

	o.Get().Name = "x"
	must(db.Save(root))
	isFalse(t, o.Cleanable(), "Cleanable at non-default")

	o.Get().Name = "anon"
	isTrue(t, o.Cleanable(), "Cleanable at default")
	deepEqual(t, must(db.Compact(root)), 1)
	isFalse(t, o.Changed(), "Changed after compaction")
	deepEqual(t, store.Reopen().Len(), 0)
}

func TestObjectMapValues(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	o := NewObject[map[string]any]("m", nil)
	db.Load(NewGroup("", o))
	o.Set(map[string]any{"b": 2, "a": "x"})
	isTrue(t, o.Stage(), "Stage")

	o2 := NewObject[map[string]any]("m", nil)
	memDB(store).Load(NewGroup("", o2))
	isFalse(t, o2.Changed(), "Changed after reload")
	deepEqual(t, o2.Get()["a"], any("x"))
}

func TestObjectMapOrderDoesNotDirty(t *testing.T) {
	db := memDB(NewMemStore())
	o := NewObject("p", &Profile{})
	db.Load(NewGroup("", o))
	o.Get().Stats = make(map[string]int)
	for i, k := range []string{"str", "dex", "con", "int", "wis", "cha", "luck", "hp"} {
		o.Get().Stats[k] = i
	}
	isTrue(t, o.Stage(), "Stage")
	for range 20 {
		isFalse(t, o.Changed(), "Changed without mutation")
	}
}

type Ledger struct {
	Owner   string         `msgpack:"owner"`
	Entries map[int]string `msgpack:"entries"`
}

func TestObjectIntKeyedMapDoesNotDirty(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	m := NewObject[map[int]int]("m", nil)
	l := NewObject("l", &Ledger{})
	db.Load(NewGroup("", m, l))

	vals := make(map[int]int)
	for i := range 50 {
		vals[i*7] = i
	}
	m.Set(vals)
	l.Get().Entries = make(map[int]string)
	for i := range 50 {
		l.Get().Entries[i] = string(rune('a' + i%26))
	}
	isTrue(t, m.Stage(), "Stage map")
	isTrue(t, l.Stage(), "Stage struct")
	for range 20 {
		isFalse(t, m.Changed(), "map Changed without mutation")
		isFalse(t, m.Stage(), "map Stage without mutation")
		isFalse(t, l.Changed(), "struct Changed without mutation")
		isFalse(t, l.Stage(), "struct Stage without mutation")
	}

	m.Get()[1000] = 1
	isTrue(t, m.Stage(), "Stage after insert")
	isFalse(t, m.Stage(), "second Stage after insert")

	m2 := NewObject[map[int]int]("m", nil)
	memDB(store).Load(NewGroup("", m2))
	isFalse(t, m2.Changed(), "Changed after reload")
	deepEqual(t, len(m2.Get()), 51)
}

func TestObjectIntKeyedMapCleanable(t *testing.T) {
	def := make(map[int]string)
	for i := range 50 {
		def[i] = "x"
	}
	store := NewMemStoreWith([]Entry{{"m", "\x80"}})
	db := memDB(store)
	m := NewObject("m", def)
	db.Load(NewGroup("", m))
	isFalse(t, m.Cleanable(), "Cleanable with empty map stored")

	live := make(map[int]string)
	for i := 49; i >= 0; i-- {
		live[i] = "x"
	}
	m.Set(live)
	for range 20 {
		isTrue(t, m.Cleanable(), "Cleanable with default content")
	}
}
