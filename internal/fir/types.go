package fir

import "fmt"

// TypeKind enumerates the basic types of the IR.
type TypeKind uint8

const (
	// TypeVoid is the result type of procedures.
	TypeVoid TypeKind = iota
	// TypeInt32 is a signed 32-bit integer.
	TypeInt32
	// TypeFloat is the sample type (float or double at emission time).
	TypeFloat
	// TypeDouble is a 64-bit float.
	TypeDouble
	// TypeBool is a boolean.
	TypeBool
	// TypeObjPtr is an opaque pointer to the per-instance state object.
	TypeObjPtr
	// TypeFloatPtr is a pointer to samples.
	TypeFloatPtr
	// TypeInt32Ptr is a pointer to integers.
	TypeInt32Ptr
)

var typeKindNames = [...]string{
	TypeVoid:     "void",
	TypeInt32:    "int32",
	TypeFloat:    "float",
	TypeDouble:   "double",
	TypeBool:     "bool",
	TypeObjPtr:   "obj*",
	TypeFloatPtr: "float*",
	TypeInt32Ptr: "int32*",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return fmt.Sprintf("type(%d)", uint8(k))
}

func (k TypeKind) MarshalText() ([]byte, error) {
	if int(k) >= len(typeKindNames) {
		return nil, fmt.Errorf("fir: unknown type kind %d", uint8(k))
	}
	return []byte(typeKindNames[k]), nil
}

func (k *TypeKind) UnmarshalText(b []byte) error {
	for i, name := range typeKindNames {
		if name == string(b) {
			*k = TypeKind(i) //nolint:gosec // G115: bounded by typeKindNames length
			return nil
		}
	}
	return fmt.Errorf("fir: unknown type %q", b)
}

// Type is a type descriptor.
type Type struct {
	Kind TypeKind `json:"kind"`
}

// Basic returns the descriptor for a basic kind.
func Basic(k TypeKind) Type { return Type{Kind: k} }

func (t Type) String() string { return t.Kind.String() }

// Param is a named, typed function parameter.
type Param struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}
