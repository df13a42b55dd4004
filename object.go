package savedata

import (
	"reflect"

	"go.uber.org/zap"
)

// Object is a leaf holding an arbitrary value persisted as one blob.
//
// Instead of a dirty flag, Object keeps a fingerprint of the last staged (or
// loaded) value and compares the live value against it, so mutations made
// in place through Get are detected without an explicit Set. The price is an
// encode per Stage and per Changed call; hot values that are mutated only through setters should
// use Value or List instead. Only fields the encoding sees (exported ones)
// take part in the comparison.
type Object[T any] struct {
	leaf
	def    T
	val    T
	sum    uint64
	sumNil bool
}

func NewObject[T any](id string, def T) *Object[T] {
	o := &Object[T]{
		leaf: newLeaf(id),
		def:  def,
	}
	o.val = o.freshDefault()
	o.remember()
	return o
}

// Get returns the live value. Pointer-typed values may be mutated in place.
func (o *Object[T]) Get() T { return o.val }

func (o *Object[T]) Set(v T) { o.val = v }

// Changed reports whether the live value differs from the last staged one.
func (o *Object[T]) Changed() bool {
	nilNow := isNil(o.val)
	if nilNow != o.sumNil {
		return true
	}
	if nilNow {
		return false
	}
	sum, err := fingerprint(o.val)
	if err != nil {
		if o.db != nil {
			o.db.log.Error("cannot encode object", zap.String("key", o.key), zap.Error(err))
		}
		return false
	}
	return sum != o.sum
}

// Dirty is an alias of Changed.
func (o *Object[T]) Dirty() bool { return o.Changed() }

// remember makes the live value the comparison baseline.
func (o *Object[T]) remember() {
	o.sumNil = isNil(o.val)
	o.sum, _ = fingerprint(o.val)
}

func (o *Object[T]) Load(db *DB, parentKey string) {
	o.bind(db, parentKey)
	o.hydrate()
}

func (o *Object[T]) hydrate() {
	o.val = o.freshDefault()
	raw, ok := o.read()
	if ok {
		var v T
		if err := o.db.enc.Decode([]byte(raw), &v); err != nil {
			o.hydrationFailed(raw, err)
		} else {
			o.val = v
		}
	}
	o.remember()
}

func (o *Object[T]) Stage() bool {
	if !o.loaded() {
		return false
	}
	nilNow := isNil(o.val)
	blob, sum, err := o.db.enc.encodeFingerprinted(o.val)
	if err != nil {
		o.db.log.Error("cannot encode object", zap.String("key", o.key), zap.Error(err))
		return false
	}
	if nilNow == o.sumNil && (nilNow || sum == o.sum) {
		return false
	}
	o.write(string(blob))
	o.sum, o.sumNil = sum, nilNow
	return true
}

func (o *Object[T]) Reload() {
	if !o.loaded() {
		return
	}
	o.index = -1
	o.hydrate()
}

func (o *Object[T]) Reset() {
	o.val = o.freshDefault()
}

// Cleanable reports whether the live value encodes the same as the default
// and the leaf has a store entry.
func (o *Object[T]) Cleanable() bool {
	if o.Index() < 0 {
		return false
	}
	if isNil(o.val) || isNil(o.def) {
		return isNil(o.val) && isNil(o.def)
	}
	cur, err1 := fingerprint(o.val)
	def, err2 := fingerprint(o.def)
	return err1 == nil && err2 == nil && cur == def
}

func (o *Object[T]) CollectCleanable(dst []int) []int {
	if !o.Cleanable() {
		return dst
	}
	o.remember()
	return append(dst, o.index)
}

func (o *Object[T]) Flatten(dst []Node) []Node {
	return append(dst, o)
}

// freshDefault returns a structural copy of the default so that in-place
// mutation of the live value never leaks into it.
func (o *Object[T]) freshDefault() T {
	if isNil(o.def) {
		return o.def
	}
	v, err := cloneValue(o.def)
	if err != nil {
		return o.def
	}
	return v
}

func cloneValue[T any](v T) (T, error) {
	var out T
	blob, err := defaultEncoding.Encode(v)
	if err != nil {
		return out, err
	}
	err = defaultEncoding.Decode(blob, &out)
	return out, err
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
