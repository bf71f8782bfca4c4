package fir

import "fmt"

// Cloner deep-copies IR trees. The zero Cloner performs a plain structural
// copy. A pass overrides a node kind by setting the matching hook; the hook
// receives the Cloner so it can clone children through the same pass, and
// may fall back to the structural copy with the Copy* methods.
//
// Value hooks return a value and statement hooks return a statement, so a
// pass cannot change the category of a node. A statement being elided is
// replaced by Nop().
type Cloner struct {
	Address func(c *Cloner, a Address) Address

	Load   func(c *Cloner, v *Value) *Value
	Binop  func(c *Cloner, v *Value) *Value
	Cast   func(c *Cloner, v *Value) *Value
	Select func(c *Cloner, v *Value) *Value
	Call   func(c *Cloner, v *Value) *Value

	DeclareVar func(c *Cloner, s *Stmt) *Stmt
	Store      func(c *Cloner, s *Stmt) *Stmt
}

// Clone copies b with the structural cloner.
func Clone(b *Block) *Block {
	var c Cloner
	return c.Block(b)
}

// Addr clones an address.
func (c *Cloner) Addr(a Address) Address {
	if c != nil && c.Address != nil {
		return c.Address(c, a)
	}
	return c.CopyAddr(a)
}

// CopyAddr copies a, cloning its index through c.
func (c *Cloner) CopyAddr(a Address) Address {
	out := Address{Name: a.Name, Access: a.Access}
	if a.Index != nil {
		out.Index = c.Value(a.Index)
	}
	return out
}

// Value clones v, dispatching to the hook for its kind.
func (c *Cloner) Value(v *Value) *Value {
	if v == nil {
		return nil
	}
	if c != nil {
		var hook func(*Cloner, *Value) *Value
		switch v.Kind {
		case ValueLoad:
			hook = c.Load
		case ValueBinop:
			hook = c.Binop
		case ValueCast:
			hook = c.Cast
		case ValueSelect:
			hook = c.Select
		case ValueCall:
			hook = c.Call
		case ValueFloat, ValueInt32:
		}
		if hook != nil {
			return hook(c, v)
		}
	}
	return c.CopyValue(v)
}

// CopyValue copies v structurally, cloning its children through c.
func (c *Cloner) CopyValue(v *Value) *Value {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case ValueLoad:
		return Load(c.Addr(v.Load.Addr))
	case ValueFloat:
		return Float(v.Float)
	case ValueInt32:
		return Int32(v.Int32)
	case ValueBinop:
		return Binop(v.Binop.Op, c.Value(v.Binop.Left), c.Value(v.Binop.Right))
	case ValueCast:
		return Cast(v.Cast.Type, c.Value(v.Cast.Value))
	case ValueSelect:
		return Select(c.Value(v.Select.Cond), c.Value(v.Select.Then), c.Value(v.Select.Else))
	case ValueCall:
		out := Call(v.Call.Name, c.Values(v.Call.Args)...)
		out.Call.Method = v.Call.Method
		return out
	default:
		panic(fmt.Errorf("fir: clone of unknown value kind %s", v.Kind))
	}
}

// Values clones a list of values.
func (c *Cloner) Values(vs []*Value) []*Value {
	if vs == nil {
		return nil
	}
	out := make([]*Value, len(vs))
	for i, v := range vs {
		out[i] = c.Value(v)
	}
	return out
}

// Stmt clones s, dispatching to the hook for its kind.
func (c *Cloner) Stmt(s *Stmt) *Stmt {
	if s == nil {
		return nil
	}
	if c != nil {
		switch s.Kind {
		case StmtDeclareVar:
			if c.DeclareVar != nil {
				return c.DeclareVar(c, s)
			}
		case StmtStore:
			if c.Store != nil {
				return c.Store(c, s)
			}
		case StmtDeclareFun, StmtDrop, StmtReturn, StmtBlock, StmtForLoop, StmtIf:
		}
	}
	return c.CopyStmt(s)
}

// CopyStmt copies s structurally, cloning its children through c.
func (c *Cloner) CopyStmt(s *Stmt) *Stmt {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case StmtDeclareVar:
		return DeclareVar(c.Addr(s.DeclareVar.Addr), s.DeclareVar.Type, c.Value(s.DeclareVar.Value))
	case StmtStore:
		return Store(c.Addr(s.Store.Addr), c.Value(s.Store.Value))
	case StmtDeclareFun:
		return DeclareFun(c.Fun(s.DeclareFun))
	case StmtDrop:
		return &Stmt{Kind: StmtDrop, Drop: DropStmt{Value: c.Value(s.Drop.Value)}}
	case StmtReturn:
		return &Stmt{Kind: StmtReturn, Return: ReturnStmt{Value: c.Value(s.Return.Value)}}
	case StmtBlock:
		return BlockStmt(c.Block(s.Block))
	case StmtForLoop:
		l := s.ForLoop
		return ForLoop(c.Stmt(l.Init), c.Value(l.End), c.Stmt(l.Increment), c.Block(l.Body))
	case StmtIf:
		return If(c.Value(s.If.Cond), c.Block(s.If.Then), c.Block(s.If.Else))
	default:
		panic(fmt.Errorf("fir: clone of unknown statement kind %s", s.Kind))
	}
}

// Block clones every statement of b in order.
func (c *Cloner) Block(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Stmts: make([]*Stmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, c.Stmt(s))
	}
	return out
}

// Fun clones a function definition.
func (c *Cloner) Fun(f *FunDef) *FunDef {
	if f == nil {
		return nil
	}
	return &FunDef{
		Name:   f.Name,
		Params: append([]Param(nil), f.Params...),
		Result: f.Result,
		Body:   c.Block(f.Body),
		Method: f.Method,
	}
}
