package savedata

import (
	"math"
	"testing"
)

func TestBigNormalize(t *testing.T) {
	tests := []struct {
		in  Big
		out Big
	}{
		{Big{0, 5}, Big{}},
		{Big{1, 0}, Big{1, 0}},
		{Big{250, 0}, Big{2.5, 2}},
		{Big{0.05, 3}, Big{5, 1}},
		{Big{-420, 1}, Big{-4.2, 3}},
	}
	for _, tt := range tests {
		got := tt.in.Normalize()
		if math.Abs(got.Mantissa-tt.out.Mantissa) > 1e-12 || got.Exponent != tt.out.Exponent {
			t.Errorf("** %v.Normalize() = %v, wanted %v", tt.in, got, tt.out)
		}
	}
}

func TestBigArithmetic(t *testing.T) {
	a, b := NewBig(3e20), NewBig(2e20)
	deepEqual(t, a.Add(b).Exponent, 20)
	isTrue(t, math.Abs(a.Add(b).Mantissa-5) < 1e-12, "3e20 + 2e20 = 5e20")
	deepEqual(t, a.Cmp(b), 1)
	deepEqual(t, b.Cmp(a), -1)
	deepEqual(t, a.Cmp(a), 0)

	huge := NewBig(1e40)
	deepEqual(t, huge.Add(NewBig(1)), huge)

	p := NewBig(2e10).Mul(NewBig(3e5))
	deepEqual(t, p.Exponent, 15)
	isTrue(t, math.Abs(p.Mantissa-6) < 1e-12, "2e10 * 3e5 = 6e15")

	deepEqual(t, Big{}.Add(NewBig(7)), NewBig(7))
	deepEqual(t, NewBig(1500).String(), "1.5e3")
	deepEqual(t, NewBig(0).String(), "0")
}

func TestBigNumberStagesBothPrimitives(t *testing.T) {
	store := NewMemStore()
	db := memDB(store)
	n := NewBigNumber("gold", Big{})
	root := NewGroup("", n)
	db.Load(root)

	n.Set(Big{Mantissa: 3, Exponent: 0})
	isTrue(t, n.Stage(), "Stage after mantissa change")
	deepEqual(t, store.Len(), 1)

	n.Set(Big{Mantissa: 3, Exponent: 0})
	isFalse(t, n.Stage(), "Stage after same value")

	n.Set(Big{Mantissa: 3, Exponent: 9})
	isTrue(t, n.Stage(), "Stage after exponent change")
	deepEqual(t, store.Len(), 2)

	n2 := NewBigNumber("gold", Big{})
	memDB(store).Load(NewGroup("", n2))
	deepEqual(t, n2.Get(), Big{3, 9})
	deepEqual(t, n2.Default(), Big{})
}
