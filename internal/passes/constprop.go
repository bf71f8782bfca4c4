package passes

import (
	"fmt"
	"slices"

	"firopt/internal/diag"
	"firopt/internal/fir"
	"firopt/internal/interval"
	"firopt/internal/trace"
)

// ConstantPropagation clones a block, replacing every expression it can
// evaluate statically with a literal. Literal values assigned to local
// variables are propagated into later loads and the assignments removed.
//
// Only unindexed stack and loop variables are propagated; stores to state,
// globals, arguments or array elements are kept with their folded value.
// Declarations and assignments inside a loop or a branch are never removed.
// Before such a construct, every literal it could overwrite or shadow is
// written back and its binding dropped.
//
// A ConstantPropagation may be reused; each Run starts from empty bindings.
type ConstantPropagation struct {
	// Reporter receives a note for every arithmetic operator that could
	// have been folded but was not. May be nil.
	Reporter diag.Reporter
	// Tracer and Span place node-level events under the caller's span.
	Tracer trace.Tracer
	Span   uint64
}

// FoldResult is the output of one constant propagation run.
type FoldResult struct {
	Block *fir.Block
	// Bindings holds the literal last assigned to each propagated variable
	// at the end of the block.
	Bindings map[string]*fir.Value

	Folded   int // operators, casts and selects replaced by a result
	Elided   int // declarations and stores removed
	Unfolded int // operators on two float literals left in place
}

// Fold runs constant propagation with no reporting.
func Fold(b *fir.Block) (*fir.Block, map[string]*fir.Value) {
	var p ConstantPropagation
	res := p.Run(b)
	return res.Block, res.Bindings
}

// Run folds b. It panics with an *InvariantError on integer literal
// arithmetic or a cast to a type other than float or int32.
func (p *ConstantPropagation) Run(b *fir.Block) FoldResult {
	f := &folder{
		pass:     p,
		bindings: make(map[string]*fir.Value),
		elided:   make(map[string]fir.Type),
		access:   make(map[string]fir.Access),
	}
	f.cloner = &fir.Cloner{
		Load:       f.load,
		Binop:      f.binop,
		Cast:       f.cast,
		Select:     f.sel,
		DeclareVar: f.declare,
		Store:      f.store,
	}
	out := f.block(b)
	return FoldResult{
		Block:    out,
		Bindings: f.bindings,
		Folded:   f.folded,
		Elided:   f.elidedCount,
		Unfolded: f.unfolded,
	}
}

type folder struct {
	pass     *ConstantPropagation
	cloner   *fir.Cloner
	bindings map[string]*fir.Value
	// elided maps variables whose declaration was removed to their type,
	// so the declaration can be restored if a kept store needs it.
	elided map[string]fir.Type
	access map[string]fir.Access
	// depth counts enclosing loops and branches of the current statement.
	depth int

	folded, elidedCount, unfolded int
}

func propagates(a fir.Address) bool {
	return a.Access.Local() && a.Index == nil
}

func (f *folder) block(b *fir.Block) *fir.Block {
	if b == nil {
		return nil
	}
	out := &fir.Block{Stmts: make([]*fir.Stmt, 0, len(b.Stmts))}
	for _, s := range b.Stmts {
		if s == nil {
			continue
		}
		switch s.Kind {
		case fir.StmtForLoop, fir.StmtIf, fir.StmtBlock:
			for _, n := range assignedNames(s) {
				f.materialize(out, n)
			}
			out.Push(f.compound(s))
		case fir.StmtDeclareFun:
			inner := &ConstantPropagation{Reporter: f.pass.Reporter, Tracer: f.pass.Tracer, Span: f.pass.Span}
			fn := *s.DeclareFun
			fn.Params = slices.Clone(fn.Params)
			res := inner.Run(fn.Body)
			fn.Body = res.Block
			f.folded += res.Folded
			f.elidedCount += res.Elided
			f.unfolded += res.Unfolded
			out.Push(fir.DeclareFun(&fn))
		default:
			out.Push(f.cloner.Stmt(s))
		}
	}
	return out
}

func (f *folder) compound(s *fir.Stmt) *fir.Stmt {
	c := f.cloner
	f.depth++
	defer func() { f.depth-- }()
	switch s.Kind {
	case fir.StmtForLoop:
		l := s.ForLoop
		// the loop variable is stored by the increment on every iteration
		var init *fir.Stmt
		if l.Init != nil && l.Init.Kind == fir.StmtDeclareVar {
			d := l.Init.DeclareVar
			init = fir.DeclareVar(c.Addr(d.Addr), d.Type, c.Value(d.Value))
		} else {
			init = c.CopyStmt(l.Init)
		}
		return fir.ForLoop(init, c.Value(l.End), c.Stmt(l.Increment), f.block(l.Body))
	case fir.StmtIf:
		cond := c.Value(s.If.Cond)
		return fir.If(cond, f.block(s.If.Then), f.block(s.If.Else))
	default:
		return fir.BlockStmt(f.block(s.Block))
	}
}

func (f *folder) load(c *fir.Cloner, v *fir.Value) *fir.Value {
	a := v.Load.Addr
	if propagates(a) {
		if lit, ok := f.bindings[a.Name]; ok {
			return c.CopyValue(lit)
		}
	}
	return fir.Load(c.Addr(a))
}

func (f *folder) binop(c *fir.Cloner, v *fir.Value) *fir.Value {
	op := v.Binop.Op
	left, right := c.Value(v.Binop.Left), c.Value(v.Binop.Right)
	l, r := classify(left), classify(right)
	switch {
	case l.kind == constFloat && r.kind == constFloat:
		switch op {
		case fir.OpAdd:
			return f.fold(l.f + r.f)
		case fir.OpSub:
			return f.fold(l.f - r.f)
		case fir.OpMul:
			return f.fold(l.f * r.f)
		case fir.OpDiv:
			return f.fold(l.f / r.f)
		}
		f.unfolded++
		f.note(op, left, right)
	case l.kind == constInt && r.kind == constInt:
		fatalf(diag.IrIntBinopFold, "integer constant folding of %s",
			fir.FormatValue(fir.Binop(op, left, right)))
	}
	return fir.Binop(op, left, right)
}

func (f *folder) fold(x float64) *fir.Value {
	f.folded++
	return fir.Float(x)
}

func (f *folder) note(op fir.Opcode, left, right *fir.Value) {
	expr := fir.FormatValue(fir.Binop(op, left, right))
	trace.Point(f.pass.Tracer, trace.ScopeNode, "unfolded", expr, f.pass.Span)
	diag.ReportInfo(f.pass.Reporter, diag.OptUnfoldedOpcode, diag.Location{},
		fmt.Sprintf("operator %s left unfolded in %s", op, expr)).Emit()
}

func (f *folder) cast(c *fir.Cloner, v *fir.Value) *fir.Value {
	to := v.Cast.Type
	val := c.Value(v.Cast.Value)
	k := classify(val)
	switch to.Kind {
	case fir.TypeFloat:
		switch k.kind {
		case constFloat:
			f.folded++
			return val
		case constInt:
			return f.fold(float64(float32(k.i)))
		}
	case fir.TypeInt32:
		switch k.kind {
		case constInt:
			f.folded++
			return val
		case constFloat:
			f.folded++
			return fir.Int32(interval.SaturatedIntCast(k.f))
		}
	default:
		fatalf(diag.IrUnsupportedCast, "cast to %s in %s", to, fir.FormatValue(v))
	}
	return fir.Cast(to, val)
}

func (f *folder) sel(c *fir.Cloner, v *fir.Value) *fir.Value {
	cond := c.Value(v.Select.Cond)
	if k := classify(cond); k.kind != notConstant {
		f.folded++
		if k.positive() {
			return c.Value(v.Select.Then)
		}
		return c.Value(v.Select.Else)
	}
	return fir.Select(cond, c.Value(v.Select.Then), c.Value(v.Select.Else))
}

func (f *folder) declare(c *fir.Cloner, s *fir.Stmt) *fir.Stmt {
	d := s.DeclareVar
	val := c.Value(d.Value)
	if propagates(d.Addr) {
		f.access[d.Addr.Name] = d.Addr.Access
		if val.IsLiteral() && f.depth == 0 {
			f.bind(d.Addr.Name, val)
			f.elided[d.Addr.Name] = d.Type
			f.elidedCount++
			return fir.Nop()
		}
		delete(f.bindings, d.Addr.Name)
		delete(f.elided, d.Addr.Name)
	}
	return fir.DeclareVar(c.Addr(d.Addr), d.Type, val)
}

func (f *folder) store(c *fir.Cloner, s *fir.Stmt) *fir.Stmt {
	a := s.Store.Addr
	val := c.Value(s.Store.Value)
	if !propagates(a) {
		return fir.Store(c.Addr(a), val)
	}
	f.access[a.Name] = a.Access
	if val.IsLiteral() && f.depth == 0 {
		f.bind(a.Name, val)
		f.elidedCount++
		return fir.Nop()
	}
	delete(f.bindings, a.Name)
	if typ, ok := f.elided[a.Name]; ok {
		// the declaration was removed; this store now introduces the variable
		delete(f.elided, a.Name)
		return fir.DeclareVar(c.Addr(a), typ, val)
	}
	return fir.Store(c.Addr(a), val)
}

func (f *folder) bind(name string, lit *fir.Value) {
	f.bindings[name] = lit
}

// materialize writes the literal bound to name back into out, as a
// declaration when the declaration itself was elided and as a store
// otherwise, and forgets the binding.
func (f *folder) materialize(out *fir.Block, name string) {
	lit, bound := f.bindings[name]
	if !bound {
		return
	}
	addr := fir.Named(name, f.access[name])
	if typ, ok := f.elided[name]; ok {
		out.Push(fir.DeclareVar(addr, typ, f.cloner.CopyValue(lit)))
		delete(f.elided, name)
	} else {
		out.Push(fir.Store(addr, f.cloner.CopyValue(lit)))
	}
	delete(f.bindings, name)
	f.elidedCount--
}

// assignedNames lists, in first-assignment order, the propagated variables
// stored or declared anywhere inside s.
func assignedNames(s *fir.Stmt) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(a fir.Address) {
		if propagates(a) && !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	in := &fir.Inspector{
		DeclareVar: func(st *fir.Stmt) { add(st.DeclareVar.Addr) },
		Store:      func(st *fir.Stmt) { add(st.Store.Addr) },
	}
	in.Stmt(s)
	return names
}
