// Package symbols holds the variable type table shared by the passes.
//
// The table is filled once per module, before any pass runs, and is only
// read afterwards. Passes see it through the VarTypes interface so tests can
// substitute a fabricated table.
package symbols

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"firopt/internal/fir"
)

// VarTypes resolves the declared type of a variable by name.
type VarTypes interface {
	VarType(name string) (fir.Type, bool)
}

// Hints provide optional capacity suggestions for the table.
type Hints struct{ Vars uint }

// Table maps variable names to their declared types.
type Table struct {
	types map[string]fir.Type
	order []string
}

// NewTable builds an empty table.
func NewTable(h Hints) *Table {
	n, err := safecast.Conv[int](h.Vars)
	if err != nil {
		panic(fmt.Errorf("symbols: capacity overflow: %w", err))
	}
	return &Table{
		types: make(map[string]fir.Type, n),
		order: make([]string, 0, n),
	}
}

// Declare records the type of name. Redeclaring a name with the same type is
// allowed; a different type is an error and keeps the first declaration.
func (t *Table) Declare(name string, typ fir.Type) error {
	if prev, ok := t.types[name]; ok {
		if prev != typ {
			return fmt.Errorf("variable %s declared as %s and %s", name, prev, typ)
		}
		return nil
	}
	t.types[name] = typ
	t.order = append(t.order, name)
	return nil
}

// VarType implements VarTypes.
func (t *Table) VarType(name string) (fir.Type, bool) {
	if t == nil {
		return fir.Type{}, false
	}
	typ, ok := t.types[name]
	return typ, ok
}

// Len returns the number of declared variables.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Names returns the declared names in declaration order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Map is a VarTypes backed by a plain map, convenient for tests.
type Map map[string]fir.Type

// VarType implements VarTypes.
func (m Map) VarType(name string) (fir.Type, bool) {
	typ, ok := m[name]
	return typ, ok
}

// FromModule collects every declared variable and function parameter of m.
// Conflicting declarations are reported together; the table is still usable.
func FromModule(m *fir.Module) (*Table, error) {
	t := NewTable(Hints{Vars: 64})
	if m == nil {
		return t, nil
	}
	var errs []error
	declare := func(name string, typ fir.Type) {
		if err := t.Declare(name, typ); err != nil {
			errs = append(errs, err)
		}
	}
	in := &fir.Inspector{
		DeclareVar: func(s *fir.Stmt) {
			declare(s.DeclareVar.Addr.Name, s.DeclareVar.Type)
		},
	}
	in.Block(m.Globals)
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		for _, p := range f.Params {
			declare(p.Name, p.Type)
		}
		in.Block(f.Body)
	}
	return t, errors.Join(errs...)
}
