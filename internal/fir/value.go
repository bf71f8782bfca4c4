package fir

import "fmt"

// ValueKind enumerates expression kinds. Every value produces a typed result.
type ValueKind uint8

const (
	// ValueLoad reads a variable.
	ValueLoad ValueKind = iota
	// ValueFloat is a float literal.
	ValueFloat
	// ValueInt32 is a 32-bit integer literal.
	ValueInt32
	// ValueBinop applies a binary operator.
	ValueBinop
	// ValueCast converts to another type.
	ValueCast
	// ValueSelect is a ternary select.
	ValueSelect
	// ValueCall calls a function for its result.
	ValueCall
)

var valueKindNames = [...]string{
	ValueLoad:   "load",
	ValueFloat:  "float",
	ValueInt32:  "int32",
	ValueBinop:  "binop",
	ValueCast:   "cast",
	ValueSelect: "select",
	ValueCall:   "call",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return fmt.Sprintf("value(%d)", uint8(k))
}

func (k ValueKind) MarshalText() ([]byte, error) {
	if int(k) >= len(valueKindNames) {
		return nil, fmt.Errorf("fir: unknown value kind %d", uint8(k))
	}
	return []byte(valueKindNames[k]), nil
}

func (k *ValueKind) UnmarshalText(b []byte) error {
	for i, name := range valueKindNames {
		if name == string(b) {
			*k = ValueKind(i) //nolint:gosec // G115: bounded by valueKindNames length
			return nil
		}
	}
	return fmt.Errorf("fir: unknown value kind %q", b)
}

// Opcode enumerates binary operators.
type Opcode uint8

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
)

var opcodeNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpRem: "%",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpEq:  "==",
	OpNe:  "!=",
	OpAnd: "&",
	OpOr:  "|",
	OpXor: "^",
	OpShl: "<<",
	OpShr: ">>",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

func (op Opcode) MarshalText() ([]byte, error) {
	if int(op) >= len(opcodeNames) {
		return nil, fmt.Errorf("fir: unknown opcode %d", uint8(op))
	}
	return []byte(opcodeNames[op]), nil
}

func (op *Opcode) UnmarshalText(b []byte) error {
	for i, name := range opcodeNames {
		if name == string(b) {
			*op = Opcode(i) //nolint:gosec // G115: bounded by opcodeNames length
			return nil
		}
	}
	return fmt.Errorf("fir: unknown opcode %q", b)
}

// Arithmetic reports the four operators the constant folder evaluates.
func (op Opcode) Arithmetic() bool {
	return op <= OpDiv
}

// Value is an expression node.
type Value struct {
	Kind ValueKind `json:"kind"`

	Load   LoadValue   `json:"load,omitzero"`
	Float  float64     `json:"float,omitempty"`
	Int32  int32       `json:"int32,omitempty"`
	Binop  BinopValue  `json:"binop,omitzero"`
	Cast   CastValue   `json:"cast,omitzero"`
	Select SelectValue `json:"select,omitzero"`
	Call   CallValue   `json:"call,omitzero"`
}

// LoadValue reads Addr.
type LoadValue struct {
	Addr Address `json:"addr"`
}

// BinopValue is Left Op Right.
type BinopValue struct {
	Op    Opcode `json:"op"`
	Left  *Value `json:"left"`
	Right *Value `json:"right"`
}

// CastValue converts Value to Type.
type CastValue struct {
	Type  Type   `json:"type"`
	Value *Value `json:"value"`
}

// SelectValue is Cond ? Then : Else.
type SelectValue struct {
	Cond *Value `json:"cond"`
	Then *Value `json:"then"`
	Else *Value `json:"else"`
}

// CallValue calls Name with Args. Method marks calls through the
// per-instance receiver.
type CallValue struct {
	Name   string   `json:"name"`
	Args   []*Value `json:"args"`
	Method bool     `json:"method,omitempty"`
}

// IsLiteral reports float and int32 literals.
func (v *Value) IsLiteral() bool {
	return v != nil && (v.Kind == ValueFloat || v.Kind == ValueInt32)
}
