package passes

import "firopt/internal/fir"

// constKind classifies a cloned value for folding.
type constKind uint8

const (
	notConstant constKind = iota
	constFloat
	constInt
)

// constant is a literal seen by the folder, or notConstant.
type constant struct {
	kind constKind
	f    float64
	i    int32
}

func classify(v *fir.Value) constant {
	if v == nil {
		return constant{}
	}
	switch v.Kind {
	case fir.ValueFloat:
		return constant{kind: constFloat, f: v.Float}
	case fir.ValueInt32:
		return constant{kind: constInt, i: v.Int32}
	}
	return constant{}
}

// positive is the select condition rule: strictly greater than zero.
func (c constant) positive() bool {
	if c.kind == constFloat {
		return c.f > 0
	}
	return c.i > 0
}
