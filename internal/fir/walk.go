package fir

import "fmt"

// Inspector walks a tree without rebuilding it. Children are always visited
// first, in source order; the hook for a node runs after its children.
// For a store, the index of the destination is visited, then the stored
// value, then the Store hook. A for loop visits init, end, increment and
// body in that order.
type Inspector struct {
	DeclareVar func(s *Stmt)
	Store      func(s *Stmt)
	Load       func(v *Value)
	Call       func(v *Value)
	ForLoop    func(s *Stmt)
}

// Block walks every statement of b.
func (in *Inspector) Block(b *Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		in.Stmt(s)
	}
}

func (in *Inspector) addr(a Address) {
	if a.Index != nil {
		in.Value(a.Index)
	}
}

// Stmt walks s.
func (in *Inspector) Stmt(s *Stmt) {
	if s == nil {
		return
	}
	switch s.Kind {
	case StmtDeclareVar:
		in.addr(s.DeclareVar.Addr)
		in.Value(s.DeclareVar.Value)
		if in.DeclareVar != nil {
			in.DeclareVar(s)
		}
	case StmtStore:
		in.addr(s.Store.Addr)
		in.Value(s.Store.Value)
		if in.Store != nil {
			in.Store(s)
		}
	case StmtDeclareFun:
		if s.DeclareFun != nil {
			in.Block(s.DeclareFun.Body)
		}
	case StmtDrop:
		in.Value(s.Drop.Value)
	case StmtReturn:
		in.Value(s.Return.Value)
	case StmtBlock:
		in.Block(s.Block)
	case StmtForLoop:
		in.Stmt(s.ForLoop.Init)
		in.Value(s.ForLoop.End)
		in.Stmt(s.ForLoop.Increment)
		in.Block(s.ForLoop.Body)
		if in.ForLoop != nil {
			in.ForLoop(s)
		}
	case StmtIf:
		in.Value(s.If.Cond)
		in.Block(s.If.Then)
		in.Block(s.If.Else)
	default:
		panic(fmt.Errorf("fir: walk of unknown statement kind %s", s.Kind))
	}
}

// Value walks v.
func (in *Inspector) Value(v *Value) {
	if v == nil {
		return
	}
	switch v.Kind {
	case ValueLoad:
		in.addr(v.Load.Addr)
		if in.Load != nil {
			in.Load(v)
		}
	case ValueFloat, ValueInt32:
	case ValueBinop:
		in.Value(v.Binop.Left)
		in.Value(v.Binop.Right)
	case ValueCast:
		in.Value(v.Cast.Value)
	case ValueSelect:
		in.Value(v.Select.Cond)
		in.Value(v.Select.Then)
		in.Value(v.Select.Else)
	case ValueCall:
		for _, a := range v.Call.Args {
			in.Value(a)
		}
		if in.Call != nil {
			in.Call(v)
		}
	default:
		panic(fmt.Errorf("fir: walk of unknown value kind %s", v.Kind))
	}
}
