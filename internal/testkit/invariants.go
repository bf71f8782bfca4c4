// Package testkit holds IR invariant checks shared by the pass tests.
package testkit

import (
	"errors"
	"fmt"

	"firopt/internal/fir"
)

// CheckDisjoint reports every node reachable from both a and b. A pass
// that clones must never hand back a node of its input.
func CheckDisjoint(a, b *fir.Block) error {
	seen := make(map[any]bool)
	collect(a, func(n any) { seen[n] = true })
	var errs []error
	collect(b, func(n any) {
		if seen[n] {
			errs = append(errs, fmt.Errorf("shared node %s", describe(n)))
		}
	})
	return errors.Join(errs...)
}

// CheckSelfContained verifies that f reads and writes only its own
// parameters and locals besides state fields and globals: every argument
// access names a parameter and every stack or loop access names a variable
// declared inside f.
func CheckSelfContained(f *fir.FunDef) error {
	if f == nil {
		return errors.New("nil function")
	}
	params := make(map[string]bool, len(f.Params))
	for _, p := range f.Params {
		params[p.Name] = true
	}
	locals := make(map[string]bool)
	(&fir.Inspector{
		DeclareVar: func(s *fir.Stmt) { locals[s.DeclareVar.Addr.Name] = true },
	}).Block(f.Body)

	var errs []error
	check := func(a fir.Address) {
		switch {
		case a.Access == fir.AccessFunArgs && !params[a.Name]:
			errs = append(errs, fmt.Errorf("%s: argument %s is not a parameter", f.Name, a.Name))
		case a.Access.Local() && !locals[a.Name]:
			errs = append(errs, fmt.Errorf("%s: %s %s is not declared", f.Name, a.Access, a.Name))
		case a.Access == fir.AccessLink:
			errs = append(errs, fmt.Errorf("%s: link %s survived", f.Name, a.Name))
		}
	}
	(&fir.Inspector{
		Load:  func(v *fir.Value) { check(v.Load.Addr) },
		Store: func(s *fir.Stmt) { check(s.Store.Addr) },
	}).Block(f.Body)
	return errors.Join(errs...)
}

func describe(n any) string {
	switch n := n.(type) {
	case *fir.Stmt:
		return "stmt " + fir.FormatStmt(n)
	case *fir.Value:
		return "value " + fir.FormatValue(n)
	case *fir.Block:
		return fmt.Sprintf("block of %d statements", n.Len())
	case *fir.FunDef:
		return "function " + n.Name
	}
	return fmt.Sprintf("%T", n)
}

func collect(b *fir.Block, visit func(any)) {
	if b == nil {
		return
	}
	visit(b)
	for _, s := range b.Stmts {
		collectStmt(s, visit)
	}
}

func collectStmt(s *fir.Stmt, visit func(any)) {
	if s == nil {
		return
	}
	visit(s)
	switch s.Kind {
	case fir.StmtDeclareVar:
		collectAddr(s.DeclareVar.Addr, visit)
		collectValue(s.DeclareVar.Value, visit)
	case fir.StmtStore:
		collectAddr(s.Store.Addr, visit)
		collectValue(s.Store.Value, visit)
	case fir.StmtDeclareFun:
		if s.DeclareFun != nil {
			visit(s.DeclareFun)
			collect(s.DeclareFun.Body, visit)
		}
	case fir.StmtDrop:
		collectValue(s.Drop.Value, visit)
	case fir.StmtReturn:
		collectValue(s.Return.Value, visit)
	case fir.StmtBlock:
		collect(s.Block, visit)
	case fir.StmtForLoop:
		collectStmt(s.ForLoop.Init, visit)
		collectValue(s.ForLoop.End, visit)
		collectStmt(s.ForLoop.Increment, visit)
		collect(s.ForLoop.Body, visit)
	case fir.StmtIf:
		collectValue(s.If.Cond, visit)
		collect(s.If.Then, visit)
		collect(s.If.Else, visit)
	}
}

func collectAddr(a fir.Address, visit func(any)) {
	collectValue(a.Index, visit)
}

func collectValue(v *fir.Value, visit func(any)) {
	if v == nil {
		return
	}
	visit(v)
	switch v.Kind {
	case fir.ValueLoad:
		collectAddr(v.Load.Addr, visit)
	case fir.ValueBinop:
		collectValue(v.Binop.Left, visit)
		collectValue(v.Binop.Right, visit)
	case fir.ValueCast:
		collectValue(v.Cast.Value, visit)
	case fir.ValueSelect:
		collectValue(v.Select.Cond, visit)
		collectValue(v.Select.Then, visit)
		collectValue(v.Select.Else, visit)
	case fir.ValueCall:
		for _, a := range v.Call.Args {
			collectValue(a, visit)
		}
	}
}
