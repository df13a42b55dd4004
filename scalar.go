package savedata

import (
	"math"
	"strconv"
	"time"
)

// Scalar converts a leaf value to and from its store representation.
type Scalar[T any] struct {
	Format func(v T) string
	Parse  func(s string) (T, error)
	Equal  func(a, b T) bool

	// Normalize, if set, is applied to every value assigned to the leaf.
	Normalize func(v T) T
}

func equalComparable[T comparable](a, b T) bool { return a == b }

var (
	BoolScalar = Scalar[bool]{
		Format: strconv.FormatBool,
		Parse:  strconv.ParseBool,
		Equal:  equalComparable[bool],
	}

	IntScalar = Scalar[int]{
		Format: strconv.Itoa,
		Parse:  strconv.Atoi,
		Equal:  equalComparable[int],
	}

	Int64Scalar = Scalar[int64]{
		Format: func(v int64) string { return strconv.FormatInt(v, 10) },
		Parse:  func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) },
		Equal:  equalComparable[int64],
	}

	FloatScalar = Scalar[float64]{
		Format: func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) },
		Parse:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		Equal: func(a, b float64) bool {
			return a == b || (math.IsNaN(a) && math.IsNaN(b))
		},
	}

	StringScalar = Scalar[string]{
		Format: func(v string) string { return v },
		Parse:  func(s string) (string, error) { return s, nil },
		Equal:  equalComparable[string],
	}

	// TimeScalar stores times as a microsecond count offset so that 0 is
	// the zero time.Time.
	TimeScalar = Scalar[time.Time]{
		Format: func(v time.Time) string { return strconv.FormatUint(TimeToUint64(v), 10) },
		Parse: func(s string) (time.Time, error) {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return Uint64ToTime(u), nil
		},
		Equal:     func(a, b time.Time) bool { return a.Equal(b) },
		Normalize: func(v time.Time) time.Time { return v.Truncate(time.Microsecond) },
	}
)

// TimeOffsetMicros is the offset added to Time.UnixMicro(), chosen such that
// time.Time{}.UnixMicro() = -TimeOffsetMicros. With it, 0 micros correspond
// to the zero time instead of the Unix epoch.
const TimeOffsetMicros = 62_135_596_800_000_000

func TimeToUint64(t time.Time) uint64 {
	return uint64(t.UnixMicro()) + TimeOffsetMicros
}

func Uint64ToTime(u uint64) time.Time {
	return time.UnixMicro(int64(u) - TimeOffsetMicros).UTC()
}
