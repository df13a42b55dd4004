package savedata

import (
	"fmt"
	"time"
)

// Value is an atomic leaf persisted as the string form of a scalar.
//
// Set is a no-op when the new value equals the current one, so only real
// changes ever reach the store.
type Value[T any] struct {
	leaf
	codec Scalar[T]
	def   T
	val   T
}

// NewValue returns a leaf using a custom scalar codec.
func NewValue[T any](id string, def T, codec Scalar[T]) *Value[T] {
	if codec.Normalize != nil {
		def = codec.Normalize(def)
	}
	return &Value[T]{
		leaf:  newLeaf(id),
		codec: codec,
		def:   def,
		val:   def,
	}
}

// NewBool returns a bool value stored as "true" or "false".
func NewBool(id string, def bool) *Value[bool] {
	return NewValue(id, def, BoolScalar)
}

// NewInt returns an int value stored in decimal.
func NewInt(id string, def int) *Value[int] {
	return NewValue(id, def, IntScalar)
}

// NewInt64 returns an int64 value stored in decimal.
func NewInt64(id string, def int64) *Value[int64] {
	return NewValue(id, def, Int64Scalar)
}

// NewFloat returns a float64 value stored in the shortest form that parses
// back to the same number.
func NewFloat(id string, def float64) *Value[float64] {
	return NewValue(id, def, FloatScalar)
}

// NewString returns a string value stored verbatim.
func NewString(id string, def string) *Value[string] {
	return NewValue(id, def, StringScalar)
}

// NewTime returns a time value. The default and every value passed to Set
// are truncated to microseconds, and the value is stored as the decimal
// microsecond offset from the zero time.Time (see TimeToUint64). Reads come
// back in UTC.
func NewTime(id string, def time.Time) *Value[time.Time] {
	return NewValue(id, def, TimeScalar)
}

func (v *Value[T]) Get() T { return v.val }

func (v *Value[T]) Default() T { return v.def }

func (v *Value[T]) Set(val T) {
	if v.codec.Normalize != nil {
		val = v.codec.Normalize(val)
	}
	if v.codec.Equal(v.val, val) {
		return
	}
	v.val = val
	v.dirty = true
}

// IsDefault reports whether the current value equals the default.
func (v *Value[T]) IsDefault() bool {
	return v.codec.Equal(v.val, v.def)
}

func (v *Value[T]) Load(db *DB, parentKey string) {
	v.bind(db, parentKey)
	v.hydrate()
}

func (v *Value[T]) hydrate() {
	v.dirty = false
	v.val = v.def
	raw, ok := v.read()
	if !ok {
		return
	}
	val, err := v.codec.Parse(raw)
	if err != nil {
		v.hydrationFailed(raw, err)
		return
	}
	if v.codec.Normalize != nil {
		val = v.codec.Normalize(val)
	}
	v.val = val
}

func (v *Value[T]) Stage() bool {
	if !v.dirty || !v.loaded() {
		return false
	}
	v.write(v.codec.Format(v.val))
	v.dirty = false
	return true
}

func (v *Value[T]) Reload() {
	if !v.loaded() {
		return
	}
	v.index = -1
	v.hydrate()
}

func (v *Value[T]) Reset() {
	if v.IsDefault() {
		return
	}
	v.val = v.def
	v.dirty = true
}

// Cleanable reports whether the leaf has a store entry that can be removed
// without changing what a later Load reads.
func (v *Value[T]) Cleanable() bool {
	return v.IsDefault() && v.Index() >= 0
}

func (v *Value[T]) CollectCleanable(dst []int) []int {
	if !v.Cleanable() {
		return dst
	}
	// The removed entry reads back as the default, so nothing is pending.
	v.dirty = false
	return append(dst, v.index)
}

func (v *Value[T]) Flatten(dst []Node) []Node {
	return append(dst, v)
}

func (v *Value[T]) String() string {
	return fmt.Sprintf("%s=%s", v.key, v.codec.Format(v.val))
}
