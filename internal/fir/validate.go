package fir

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of a module.
// Returns error if any invariant is violated.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.Globals != nil {
		if err := ValidateBlock(m.Globals); err != nil {
			errs = append(errs, fmt.Errorf("globals: %w", err))
		}
	}
	seen := make(map[string]bool, len(m.Funcs))
	for i, f := range m.Funcs {
		if f == nil {
			errs = append(errs, fmt.Errorf("func #%d: nil function", i))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("function %s: duplicate definition", f.Name))
		}
		seen[f.Name] = true
		if err := validateFun(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateBlock checks the invariants of a single block.
func ValidateBlock(b *Block) error {
	v := &validator{}
	v.block(b, "body")
	return errors.Join(v.errs...)
}

func validateFun(f *FunDef) error {
	v := &validator{}
	if f.Name == "" {
		v.errorf("fn", "empty name")
	}
	params := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		if p.Name == "" {
			v.errorf("params", "unnamed parameter")
		}
		if params[p.Name] {
			v.errorf("params", "duplicate parameter %s", p.Name)
		}
		params[p.Name] = true
		if p.Type.Kind == TypeVoid {
			v.errorf("params", "parameter %s has void type", p.Name)
		}
	}
	if f.Body == nil {
		v.errorf("fn", "missing body")
	} else {
		v.block(f.Body, "body")
	}
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) errorf(ctx, format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf("%s: %s", ctx, fmt.Sprintf(format, args...)))
}

func (v *validator) block(b *Block, ctx string) {
	if b == nil {
		v.errorf(ctx, "nil block")
		return
	}
	for i, s := range b.Stmts {
		v.stmt(s, fmt.Sprintf("%s stmt %d", ctx, i))
	}
}

func (v *validator) addr(a Address, ctx string) {
	if a.Name == "" {
		v.errorf(ctx, "unnamed address")
	}
	if a.Access > AccessLink {
		v.errorf(ctx, "address %s has unknown access %d", a.Name, a.Access)
	}
	if a.Index != nil {
		v.value(a.Index, ctx+" index")
	}
}

func (v *validator) stmt(s *Stmt, ctx string) {
	if s == nil {
		v.errorf(ctx, "nil statement")
		return
	}
	switch s.Kind {
	case StmtDeclareVar:
		v.addr(s.DeclareVar.Addr, ctx)
		if s.DeclareVar.Type.Kind == TypeVoid {
			v.errorf(ctx, "variable %s declared void", s.DeclareVar.Addr.Name)
		}
		if s.DeclareVar.Value != nil {
			v.value(s.DeclareVar.Value, ctx)
		}
	case StmtStore:
		v.addr(s.Store.Addr, ctx)
		v.value(s.Store.Value, ctx)
	case StmtDeclareFun:
		if s.DeclareFun == nil {
			v.errorf(ctx, "nil function")
		} else if err := validateFun(s.DeclareFun); err != nil {
			v.errs = append(v.errs, fmt.Errorf("%s: function %s: %w", ctx, s.DeclareFun.Name, err))
		}
	case StmtDrop:
		if s.Drop.Value != nil {
			v.value(s.Drop.Value, ctx)
		}
	case StmtReturn:
		if s.Return.Value != nil {
			v.value(s.Return.Value, ctx)
		}
	case StmtBlock:
		v.block(s.Block, ctx)
	case StmtForLoop:
		l := s.ForLoop
		if l.Init == nil || l.Init.Kind != StmtDeclareVar {
			v.errorf(ctx, "for loop init must declare the loop variable")
		} else {
			v.stmt(l.Init, ctx+" init")
		}
		v.value(l.End, ctx+" end")
		if l.Increment == nil || l.Increment.Kind != StmtStore {
			v.errorf(ctx, "for loop increment must be a store")
		} else {
			v.stmt(l.Increment, ctx+" increment")
		}
		v.block(l.Body, ctx)
	case StmtIf:
		v.value(s.If.Cond, ctx+" cond")
		v.block(s.If.Then, ctx+" then")
		if s.If.Else != nil {
			v.block(s.If.Else, ctx+" else")
		}
	default:
		v.errorf(ctx, "unknown statement kind %d", s.Kind)
	}
}

func (v *validator) value(val *Value, ctx string) {
	if val == nil {
		v.errorf(ctx, "missing value")
		return
	}
	switch val.Kind {
	case ValueLoad:
		v.addr(val.Load.Addr, ctx)
	case ValueFloat, ValueInt32:
	case ValueBinop:
		if val.Binop.Op > OpShr {
			v.errorf(ctx, "unknown opcode %d", val.Binop.Op)
		}
		v.value(val.Binop.Left, ctx)
		v.value(val.Binop.Right, ctx)
	case ValueCast:
		if val.Cast.Type.Kind == TypeVoid {
			v.errorf(ctx, "cast to void")
		}
		v.value(val.Cast.Value, ctx)
	case ValueSelect:
		v.value(val.Select.Cond, ctx)
		v.value(val.Select.Then, ctx)
		v.value(val.Select.Else, ctx)
	case ValueCall:
		if val.Call.Name == "" {
			v.errorf(ctx, "call without callee")
		}
		for _, a := range val.Call.Args {
			v.value(a, ctx)
		}
	default:
		v.errorf(ctx, "unknown value kind %d", val.Kind)
	}
}
