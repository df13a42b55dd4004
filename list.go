package savedata

import (
	"slices"

	"go.uber.org/zap"
)

// List is an ordered sequence persisted as a single blob.
//
// Every mutating method dirties the whole leaf; there is no per-element
// diffing. Elements obtained through At or Items and mutated in place are
// not observed: call MarkDirty afterwards.
type List[T any] struct {
	leaf
	def   []T
	items []T
}

func NewList[T any](id string, def ...T) *List[T] {
	return &List[T]{
		leaf:  newLeaf(id),
		def:   def,
		items: slices.Clone(def),
	}
}

func (l *List[T]) Len() int { return len(l.items) }

func (l *List[T]) At(i int) T { return l.items[i] }

// Items returns a copy of the elements.
func (l *List[T]) Items() []T { return slices.Clone(l.items) }

func (l *List[T]) SetAt(i int, v T) {
	l.items[i] = v
	l.dirty = true
}

func (l *List[T]) Append(v ...T) {
	l.items = append(l.items, v...)
	l.dirty = true
}

func (l *List[T]) Insert(i int, v ...T) {
	l.items = slices.Insert(l.items, i, v...)
	l.dirty = true
}

func (l *List[T]) RemoveAt(i int) T {
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	l.dirty = true
	return v
}

// Pop removes and returns the last element.
func (l *List[T]) Pop() (T, bool) {
	n := len(l.items)
	if n == 0 {
		var zero T
		return zero, false
	}
	return l.RemoveAt(n - 1), true
}

func (l *List[T]) IndexFunc(f func(T) bool) int {
	return slices.IndexFunc(l.items, f)
}

// RemoveFunc removes all elements matching f and returns how many were removed.
func (l *List[T]) RemoveFunc(f func(T) bool) int {
	n := len(l.items)
	l.items = slices.DeleteFunc(l.items, f)
	removed := n - len(l.items)
	if removed > 0 {
		l.dirty = true
	}
	return removed
}

func (l *List[T]) Clear() {
	l.items = l.items[:0]
	l.dirty = true
}

func (l *List[T]) SetItems(items []T) {
	l.items = slices.Clone(items)
	l.dirty = true
}

func (l *List[T]) SortStableFunc(cmp func(a, b T) int) {
	slices.SortStableFunc(l.items, cmp)
	l.dirty = true
}

// MarkDirty forces the next Stage to rewrite the list.
func (l *List[T]) MarkDirty() {
	l.dirty = true
}

func (l *List[T]) Load(db *DB, parentKey string) {
	l.bind(db, parentKey)
	l.hydrate()
}

func (l *List[T]) hydrate() {
	l.dirty = false
	l.items = slices.Clone(l.def)
	raw, ok := l.read()
	if !ok {
		return
	}
	var items []T
	if err := l.db.enc.Decode([]byte(raw), &items); err != nil {
		l.hydrationFailed(raw, err)
		return
	}
	l.items = items
}

func (l *List[T]) Stage() bool {
	if !l.dirty || !l.loaded() {
		return false
	}
	blob, err := l.db.enc.Encode(l.items)
	if err != nil {
		l.db.log.Error("cannot encode list", zap.String("key", l.key), zap.Error(err))
		return false
	}
	l.write(string(blob))
	l.dirty = false
	return true
}

func (l *List[T]) Reload() {
	if !l.loaded() {
		return
	}
	l.index = -1
	l.hydrate()
}

func (l *List[T]) Reset() {
	l.items = slices.Clone(l.def)
	l.dirty = true
}

// Cleanable is always false: arbitrary elements cannot be compared to the
// default cheaply.
func (l *List[T]) Cleanable() bool { return false }

func (l *List[T]) CollectCleanable(dst []int) []int { return dst }

func (l *List[T]) Flatten(dst []Node) []Node {
	return append(dst, l)
}
