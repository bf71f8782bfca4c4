package interval

import "math"

// Add returns the interval of x+y for x in i, y in j.
func Add(i, j Interval) Interval {
	if i.IsEmpty() || j.IsEmpty() {
		return Empty()
	}
	return New(i.lo+j.lo, i.hi+j.hi, min(i.lsb, j.lsb))
}

// Sub returns the interval of x-y.
func Sub(i, j Interval) Interval {
	if i.IsEmpty() || j.IsEmpty() {
		return Empty()
	}
	return New(i.lo-j.hi, i.hi-j.lo, min(i.lsb, j.lsb))
}

// Neg returns the interval of -x.
func Neg(i Interval) Interval {
	if i.IsEmpty() {
		return i
	}
	return New(-i.hi, -i.lo, i.lsb)
}

// Mul returns the interval of x*y. The product of the two precisions bounds
// the resolution of the result.
func Mul(i, j Interval) Interval {
	if i.IsEmpty() || j.IsEmpty() {
		return Empty()
	}
	a := mulBound(i.lo, j.lo)
	b := mulBound(i.lo, j.hi)
	c := mulBound(i.hi, j.lo)
	d := mulBound(i.hi, j.hi)
	lo := math.Min(math.Min(a, b), math.Min(c, d))
	hi := math.Max(math.Max(a, b), math.Max(c, d))
	return New(lo, hi, i.lsb+j.lsb)
}

// mulBound treats 0*inf as 0, the limit that keeps the hull tight.
func mulBound(x, y float64) float64 {
	if x == 0 || y == 0 {
		return 0
	}
	return x * y
}

// Div returns the interval of x/y. A divisor range containing zero makes the
// result unbounded.
func Div(i, j Interval) Interval {
	if i.IsEmpty() || j.IsEmpty() {
		return Empty()
	}
	if j.IsZero() {
		return Empty()
	}
	if j.HasZero() {
		return New(math.Inf(-1), math.Inf(1), min(i.lsb, j.lsb))
	}
	inv := New(1/j.hi, 1/j.lo, min(i.lsb, j.lsb))
	res := Mul(i, inv)
	return New(res.lo, res.hi, min(i.lsb, j.lsb))
}

// Acos maps i through acos. Values outside [-1,1] are clipped first;
// outOfDomain reports whether any were present.
func Acos(i Interval) (res Interval, outOfDomain bool) {
	if i.IsEmpty() {
		return i, false
	}
	outOfDomain = i.lo < -1 || i.hi > 1
	dom := Intersection(i, New(-1, 1, i.lsb))
	if dom.IsEmpty() {
		return Empty(), outOfDomain
	}
	// acos is decreasing on [-1,1]
	return New(math.Acos(dom.hi), math.Acos(dom.lo), dom.lsb), outOfDomain
}
