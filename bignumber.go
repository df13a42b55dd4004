package savedata

import (
	"fmt"
	"math"
)

// Big is a number too large for float64 bookkeeping in idle-style games,
// represented as Mantissa × 10^Exponent.
type Big struct {
	Mantissa float64
	Exponent int
}

// NewBig converts v into a normalized Big.
func NewBig(v float64) Big {
	return Big{Mantissa: v}.Normalize()
}

// Normalize returns the same number with 1 <= |Mantissa| < 10, or zero.
func (b Big) Normalize() Big {
	switch {
	case b.Mantissa == 0:
		return Big{}
	case math.IsNaN(b.Mantissa), math.IsInf(b.Mantissa, 0):
		return b
	}
	shift := int(math.Floor(math.Log10(math.Abs(b.Mantissa))))
	m := b.Mantissa / math.Pow10(shift)
	// Guard against rounding pushing the mantissa to 10.
	if math.Abs(m) >= 10 {
		m /= 10
		shift++
	}
	return Big{Mantissa: m, Exponent: b.Exponent + shift}
}

func (b Big) IsZero() bool { return b.Mantissa == 0 }

// Float64 returns the value as float64, which may overflow to ±Inf.
func (b Big) Float64() float64 {
	return b.Mantissa * math.Pow10(b.Exponent)
}

func (b Big) Add(o Big) Big {
	if b.IsZero() {
		return o.Normalize()
	}
	if o.IsZero() {
		return b.Normalize()
	}
	b, o = b.Normalize(), o.Normalize()
	if b.Exponent < o.Exponent {
		b, o = o, b
	}
	diff := b.Exponent - o.Exponent
	if diff > 17 {
		return b
	}
	return Big{Mantissa: b.Mantissa + o.Mantissa/math.Pow10(diff), Exponent: b.Exponent}.Normalize()
}

func (b Big) Sub(o Big) Big {
	return b.Add(Big{Mantissa: -o.Mantissa, Exponent: o.Exponent})
}

func (b Big) Mul(o Big) Big {
	return Big{Mantissa: b.Mantissa * o.Mantissa, Exponent: b.Exponent + o.Exponent}.Normalize()
}

// Cmp returns -1, 0 or +1.
func (b Big) Cmp(o Big) int {
	d := b.Sub(o)
	switch {
	case d.Mantissa < 0:
		return -1
	case d.Mantissa > 0:
		return 1
	default:
		return 0
	}
}

func (b Big) String() string {
	if b.Exponent == 0 {
		return fmt.Sprintf("%g", b.Mantissa)
	}
	return fmt.Sprintf("%ge%d", b.Mantissa, b.Exponent)
}

// BigNumber is a compound leaf: a group of a mantissa and an exponent leaf
// exposed as one Big value.
type BigNumber struct {
	Group
	mantissa *Value[float64]
	exponent *Value[int]
}

func NewBigNumber(id string, def Big) *BigNumber {
	n := &BigNumber{
		mantissa: NewFloat("m", def.Mantissa),
		exponent: NewInt("e", def.Exponent),
	}
	n.Init(id, n.mantissa, n.exponent)
	return n
}

func (n *BigNumber) Get() Big {
	return Big{Mantissa: n.mantissa.Get(), Exponent: n.exponent.Get()}
}

// Set assigns both primitives; each tracks its own dirtiness.
func (n *BigNumber) Set(v Big) {
	n.mantissa.Set(v.Mantissa)
	n.exponent.Set(v.Exponent)
}

func (n *BigNumber) Default() Big {
	return Big{Mantissa: n.mantissa.Default(), Exponent: n.exponent.Default()}
}
