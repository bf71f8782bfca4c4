// Package interval implements the numeric abstract domain used by the
// optimisation passes: a (possibly empty) real range together with the
// finest bit position it is known to resolve.
//
// An Interval is a value type. Every operation returns a new Interval; none
// mutates its receiver or arguments.
package interval

import (
	"math"
	"strconv"
	"strings"
)

// DefaultLSB is the precision assumed when none is recorded.
const DefaultLSB = -24

// unsetLSB is normalised to DefaultLSB by New.
const unsetLSB = math.MinInt32

// Interval is a closed range [Lo, Hi] with a precision tag.
// Empty intervals carry NaN bounds.
type Interval struct {
	lo  float64
	hi  float64
	lsb int
}

// Full returns the widest bounded interval with the default precision.
func Full() Interval {
	return Interval{lo: -math.MaxFloat64, hi: math.MaxFloat64, lsb: DefaultLSB}
}

// New builds an interval from two bounds in any order.
// A NaN bound yields an empty interval that keeps the given precision.
func New(n, m float64, lsb int) Interval {
	if lsb == unsetLSB {
		lsb = DefaultLSB
	}
	if math.IsNaN(n) || math.IsNaN(m) {
		return Interval{lo: math.NaN(), hi: math.NaN(), lsb: lsb}
	}
	return Interval{lo: math.Min(n, m), hi: math.Max(n, m), lsb: lsb}
}

// Range is New with the default precision.
func Range(n, m float64) Interval {
	return New(n, m, DefaultLSB)
}

// Empty returns the empty interval.
func Empty() Interval {
	return Interval{lo: math.NaN(), hi: math.NaN(), lsb: 0}
}

// Singleton returns the exact interval for a literal. The precision keeps 32
// significant bits below the magnitude of x; zero is exact at bit 0.
func Singleton(x float64) Interval {
	if x == 0 {
		return Interval{lo: 0, hi: 0, lsb: 0}
	}
	m := int(math.Floor(math.Log2(math.Abs(x))))
	return New(x, x, m-32)
}

// SaturatedIntCast narrows d to int32, clamping to the representable range.
// NaN saturates to math.MaxInt32.
func SaturatedIntCast(d float64) int32 {
	if math.IsNaN(d) {
		return math.MaxInt32
	}
	return int32(math.Min(math.MaxInt32, math.Max(d, math.MinInt32)))
}

func (i Interval) Lo() float64   { return i.lo }
func (i Interval) Hi() float64   { return i.hi }
func (i Interval) LSB() int      { return i.lsb }
func (i Interval) Size() float64 { return i.hi - i.lo }

func (i Interval) IsEmpty() bool     { return math.IsNaN(i.lo) || math.IsNaN(i.hi) }
func (i Interval) IsUnbounded() bool { return math.IsInf(i.lo, 0) || math.IsInf(i.hi, 0) }
func (i Interval) IsBounded() bool   { return !i.IsUnbounded() }
func (i Interval) Has(x float64) bool {
	return i.lo <= x && i.hi >= x
}
func (i Interval) Is(x float64) bool { return i.lo == x && i.hi == x }
func (i Interval) HasZero() bool     { return i.Has(0) }
func (i Interval) IsZero() bool      { return i.Is(0) }

// IsConst reports a non-empty single point.
func (i Interval) IsConst() bool {
	return i.lo == i.hi && !math.IsNaN(i.lo)
}

// IsPowerOf2 is only meaningful for constant intervals.
func (i Interval) IsPowerOf2() bool {
	n := truncHi(i.hi)
	return i.IsConst() && n&(-n) == n
}

// IsBitmask reports a constant of the form 2^k-1.
func (i Interval) IsBitmask() bool {
	n := truncHi(i.hi) + 1
	return i.IsConst() && n&(-n) == n
}

// truncHi mirrors a C++ int(double) narrowing, wrapping like two's complement.
func truncHi(x float64) int32 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return math.MinInt32
	}
	return int32(int64(x))
}

// MSB estimates the position of the most significant magnitude bit, sign
// excluded. Unbounded ranges saturate at 31; ranges below 1 give a negative
// position counting implicit leading zeroes.
func (i Interval) MSB() int {
	if i.IsEmpty() || (i.lo == 0 && i.hi == 0) {
		return 0
	}
	r := math.Max(math.Abs(i.lo), math.Abs(i.hi))
	if math.IsInf(r, 0) {
		return 31
	}
	return int(math.Ceil(math.Log2(r)))
}

// Equal treats all empty intervals as equal and ignores precision.
func (i Interval) Equal(j Interval) bool {
	return (i.IsEmpty() && j.IsEmpty()) || (i.lo == j.lo && i.hi == j.hi)
}

// SubsetOf is the partial order: i is contained in j. The empty interval is
// contained in every interval.
func (i Interval) SubsetOf(j Interval) bool {
	if i.IsEmpty() {
		return true
	}
	return i.lo >= j.lo && i.hi <= j.hi
}

// StrictSubsetOf is SubsetOf without equality.
func (i Interval) StrictSubsetOf(j Interval) bool {
	return i.SubsetOf(j) && !i.Equal(j)
}

// Intersection is the meet of i and j, keeping the finest precision.
func Intersection(i, j Interval) Interval {
	if i.IsEmpty() {
		return i
	}
	if j.IsEmpty() {
		return j
	}
	l := math.Max(i.lo, j.lo)
	h := math.Min(i.hi, j.hi)
	if l > h {
		return Empty()
	}
	return New(l, h, min(i.lsb, j.lsb))
}

// Reunion is the join (convex hull) of i and j, keeping the finest precision.
func Reunion(i, j Interval) Interval {
	if i.IsEmpty() {
		return j
	}
	if j.IsEmpty() {
		return i
	}
	return New(math.Min(i.lo, j.lo), math.Max(i.hi, j.hi), min(i.lsb, j.lsb))
}

// String renders [lo,hi] or [] for the empty interval.
func (i Interval) String() string {
	if i.IsEmpty() {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(formatBound(i.lo))
	b.WriteByte(',')
	b.WriteString(formatBound(i.hi))
	b.WriteByte(']')
	return b.String()
}

// Format renders the constructor form interval(lo,hi,lsb).
func (i Interval) Format() string {
	if i.IsEmpty() {
		return "interval()"
	}
	return "interval(" + formatBound(i.lo) + "," + formatBound(i.hi) + "," + strconv.Itoa(i.lsb) + ")"
}

func formatBound(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
