package savedata

import (
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestValueSetIsIdempotent(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	v := NewInt("v", 3)
	db.Load(NewGroup("", v))

	v.Set(3)
	isFalse(t, v.Dirty(), "Dirty after setting default")
	isFalse(t, v.Stage(), "Stage after setting default")
	deepEqual(t, store.Len(), 0)

	v.Set(4)
	isTrue(t, v.Dirty(), "Dirty after change")
	isTrue(t, v.Stage(), "first Stage")
	isFalse(t, v.Stage(), "second Stage")

	v.Set(4)
	isFalse(t, v.Stage(), "Stage after re-setting current value")
	deepEqual(t, testutil.ToFloat64(db.metrics.writes), 1.0)
}

func TestValueStageUsesCachedIndex(t *testing.T) {
	store := NewMemStore()
	store.Set("other", "x")
	db := memDB(store)
	v := NewString("name", "")
	db.Load(NewGroup("", v))
	deepEqual(t, v.Index(), -1)

	v.Set("a")
	v.Stage()
	deepEqual(t, v.Index(), 1)

	v.Set("b")
	v.Stage()
	val, idx, _ := store.Get("name")
	deepEqual(t, val, "b")
	deepEqual(t, idx, 1)
	deepEqual(t, store.Len(), 2)
}

func TestValueStaleIndexFallsBackToKey(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	v := NewInt("n", 0)
	db.Load(NewGroup("", v))
	v.Set(1)
	v.Stage()

	v.index = 42
	v.Set(2)
	v.Stage()
	val, idx, _ := store.Get("n")
	deepEqual(t, val, "2")
	deepEqual(t, v.index, idx)
}

func TestValueStageBeforeLoad(t *testing.T) {
	v := NewBool("b", false)
	v.Set(true)
	isFalse(t, v.Stage(), "Stage before Load")
	isTrue(t, v.Dirty(), "Dirty kept until loaded")
}

func TestValueReset(t *testing.T) {
	db := memDB(NewMemStore())
	v := NewFloat("f", 2.5)
	db.Load(NewGroup("", v))

	v.Reset()
	isFalse(t, v.Dirty(), "Dirty after Reset at default")

	v.Set(1)
	v.Stage()
	v.Reset()
	isTrue(t, v.Dirty(), "Dirty after Reset")
	deepEqual(t, v.Get(), 2.5)
}

func TestValueCleanable(t *testing.T) {
	db := memDB(NewMemStore())
	v := NewInt("n", 0)
	db.Load(NewGroup("", v))
	isFalse(t, v.Cleanable(), "Cleanable without entry")

	v.Set(1)
	v.Stage()
	isFalse(t, v.Cleanable(), "Cleanable at non-default")

	v.Set(0)
	isTrue(t, v.Cleanable(), "Cleanable at default with entry")
}

func TestValueFloatNaN(t *testing.T) {
	db := memDB(NewMemStore())
	v := NewFloat("f", 0)
	db.Load(NewGroup("", v))
	v.Set(math.NaN())
	v.Stage()
	v.Set(math.NaN())
	isFalse(t, v.Dirty(), "Dirty after setting NaN twice")
}

func TestTimeScalar(t *testing.T) {
	deepEqual(t, TimeScalar.Format(time.Time{}), "0")

	zero, err := TimeScalar.Parse("0")
	ensure(err)
	isTrue(t, zero.IsZero(), "parsed zero IsZero")

	tm := time.Date(2030, 1, 2, 3, 4, 5, 6000, time.FixedZone("X", 3600))
	back, err := TimeScalar.Parse(TimeScalar.Format(tm))
	ensure(err)
	isTrue(t, back.Equal(tm), "time round trip")

	_, err = TimeScalar.Parse("2024-01-01")
	isTrue(t, err != nil, "formatted string rejected")
}

func TestTimeValueTruncatesToMicros(t *testing.T) {
	v := NewTime("t", time.Time{})
	tm := time.Date(2030, 1, 2, 3, 4, 5, 999, time.UTC)
	v.Set(tm)
	deepEqual(t, v.Get().Nanosecond(), 0)

	u := NewTime("u", time.Time{})
	u.Set(time.Time{}.Add(500))
	isFalse(t, u.Dirty(), "Dirty after sub-microsecond change")
}

func TestScalarParsers(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"bool", func() error { _, err := BoolScalar.Parse("yes"); return err }},
		{"int", func() error { _, err := IntScalar.Parse("1.5"); return err }},
		{"int64", func() error { _, err := Int64Scalar.Parse("x"); return err }},
		{"float", func() error { _, err := FloatScalar.Parse(""); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fn() == nil {
				t.Fatalf("parse error = nil, wanted error")
			}
		})
	}
	deepEqual(t, FloatScalar.Format(0.1), "0.1")
	deepEqual(t, Int64Scalar.Format(-9), "-9")
}
