package fir

import "fmt"

// Access classifies where a variable lives and how long it lives.
type Access uint8

const (
	// AccessStack is a local of the enclosing function declared outside any loop.
	AccessStack Access = iota
	// AccessLoop is local to a loop body.
	AccessLoop
	// AccessFunArgs is a parameter of the current function.
	AccessFunArgs
	// AccessStruct is a field of the per-instance state object.
	AccessStruct
	// AccessStaticStruct is a field shared by all instances.
	AccessStaticStruct
	// AccessGlobal is a process-wide global or constant.
	AccessGlobal
	// AccessLink is a compiler-internal alias that must be resolved before
	// the optimisation passes run.
	AccessLink
)

var accessNames = [...]string{
	AccessStack:        "stack",
	AccessLoop:         "loop",
	AccessFunArgs:      "funargs",
	AccessStruct:       "struct",
	AccessStaticStruct: "static",
	AccessGlobal:       "global",
	AccessLink:         "link",
}

func (a Access) String() string {
	if int(a) < len(accessNames) {
		return accessNames[a]
	}
	return fmt.Sprintf("access(%d)", uint8(a))
}

func (a Access) MarshalText() ([]byte, error) {
	if int(a) >= len(accessNames) {
		return nil, fmt.Errorf("fir: unknown access %d", uint8(a))
	}
	return []byte(accessNames[a]), nil
}

func (a *Access) UnmarshalText(b []byte) error {
	for i, name := range accessNames {
		if name == string(b) {
			*a = Access(i) //nolint:gosec // G115: bounded by accessNames length
			return nil
		}
	}
	return fmt.Errorf("fir: unknown access %q", b)
}

// Local reports stack and loop storage, the two classes owned by a function body.
func (a Access) Local() bool {
	return a == AccessStack || a == AccessLoop
}

// Address names a variable. Index is set for an element of an array variable.
type Address struct {
	Name   string `json:"name"`
	Access Access `json:"access"`
	Index  *Value `json:"index,omitempty"`
}

// Named returns a scalar address.
func Named(name string, access Access) Address {
	return Address{Name: name, Access: access}
}

// Indexed returns an array element address.
func Indexed(name string, access Access, index *Value) Address {
	return Address{Name: name, Access: access, Index: index}
}

// WithAccess returns a copy of a with a different access class.
func (a Address) WithAccess(access Access) Address {
	a.Access = access
	return a
}
