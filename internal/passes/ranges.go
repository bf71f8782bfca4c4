package passes

import (
	"fmt"
	"math"

	"firopt/internal/diag"
	"firopt/internal/fir"
	"firopt/internal/interval"
	"firopt/internal/trace"
)

// VarRange is the inferred value range of one variable.
type VarRange struct {
	Name   string
	Access fir.Access
	Type   fir.Type
	Range  interval.Interval
}

// MSB is the highest magnitude bit the variable needs.
func (v VarRange) MSB() int { return v.Range.MSB() }

// LSB is the finest bit the variable resolves.
func (v VarRange) LSB() int { return v.Range.LSB() }

// RangeReport lists variables in first-declaration order.
type RangeReport struct {
	Func string
	Vars []VarRange
}

// Lookup returns the range of name.
func (r RangeReport) Lookup(name string) (interval.Interval, bool) {
	for _, v := range r.Vars {
		if v.Name == name {
			return v.Range, true
		}
	}
	return interval.Interval{}, false
}

// RangeAnalysis derives an interval for every variable a block assigns,
// the input to fixed-point width selection. It never changes the IR.
type RangeAnalysis struct {
	// Reporter receives domain warnings. May be nil.
	Reporter diag.Reporter
	Tracer   trace.Tracer
	Span     uint64
}

// InferRanges analyses the body of f without reporting.
func InferRanges(f *fir.FunDef) RangeReport {
	var p RangeAnalysis
	return p.Run(f)
}

// maxLoopPasses bounds the fixpoint iteration over a loop body before the
// variables it assigns are widened.
const maxLoopPasses = 2

// Run analyses f. Arguments start unbounded.
func (p *RangeAnalysis) Run(f *fir.FunDef) RangeReport {
	r := &ranger{pass: p, env: make(map[string]interval.Interval), index: make(map[string]int)}
	if f == nil {
		return RangeReport{}
	}
	for _, prm := range f.Params {
		r.define(prm.Name, fir.AccessFunArgs, prm.Type, unbounded(prm.Type))
	}
	r.block(f.Body, false)
	for i := range r.vars {
		r.vars[i].Range = r.env[r.vars[i].Name]
	}
	return RangeReport{Func: f.Name, Vars: r.vars}
}

type ranger struct {
	pass  *RangeAnalysis
	env   map[string]interval.Interval
	vars  []VarRange
	index map[string]int
}

func unbounded(t fir.Type) interval.Interval {
	lsb := interval.DefaultLSB
	switch t.Kind {
	case fir.TypeInt32, fir.TypeBool:
		lsb = 0
	}
	return interval.New(math.Inf(-1), math.Inf(1), lsb)
}

func (r *ranger) define(name string, access fir.Access, typ fir.Type, iv interval.Interval) {
	if _, ok := r.index[name]; !ok {
		r.index[name] = len(r.vars)
		r.vars = append(r.vars, VarRange{Name: name, Access: access, Type: typ})
	}
	r.env[name] = iv
}

// assign records a store. Inside a loop or branch, and for array elements,
// the previous range survives alongside the new one.
func (r *ranger) assign(a fir.Address, iv interval.Interval, merge bool) {
	prev, known := r.env[a.Name]
	if !known {
		r.define(a.Name, a.Access, fir.Type{}, iv)
		return
	}
	if merge || a.Index != nil {
		iv = interval.Reunion(prev, iv)
	}
	r.env[a.Name] = iv
}

func (r *ranger) block(b *fir.Block, merge bool) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		r.stmt(s, merge)
	}
}

func (r *ranger) stmt(s *fir.Stmt, merge bool) {
	if s == nil {
		return
	}
	switch s.Kind {
	case fir.StmtDeclareVar:
		d := s.DeclareVar
		iv := unbounded(d.Type)
		if d.Value != nil {
			iv = r.value(d.Value)
		}
		if d.Type.Kind == fir.TypeInt32 {
			iv = truncate(iv)
		}
		r.define(d.Addr.Name, d.Addr.Access, d.Type, iv)
	case fir.StmtStore:
		iv := r.value(s.Store.Value)
		if i, ok := r.index[s.Store.Addr.Name]; ok && r.vars[i].Type.Kind == fir.TypeInt32 {
			iv = truncate(iv)
		}
		r.assign(s.Store.Addr, iv, merge)
	case fir.StmtDrop:
		r.value(s.Drop.Value)
	case fir.StmtReturn:
		r.value(s.Return.Value)
	case fir.StmtBlock:
		r.block(s.Block, merge)
	case fir.StmtIf:
		r.value(s.If.Cond)
		r.block(s.If.Then, true)
		r.block(s.If.Else, true)
	case fir.StmtForLoop:
		r.loop(s.ForLoop)
	case fir.StmtDeclareFun:
		// nested functions are analysed on their own
	default:
		fatalf(diag.IrUnknownNode, "range analysis of statement kind %s", s.Kind)
	}
}

func (r *ranger) loop(l fir.ForLoopStmt) {
	r.stmt(l.Init, false)
	var counter string
	if l.Init != nil && l.Init.Kind == fir.StmtDeclareVar {
		counter = l.Init.DeclareVar.Addr.Name
		r.env[counter] = r.counterRange(counter, r.env[counter], l.End)
	}
	for pass := 0; ; pass++ {
		before := make(map[string]interval.Interval, len(r.env))
		for k, v := range r.env {
			before[k] = v
		}
		r.block(l.Body, true)
		if counter != "" {
			// the increment is accounted for by counterRange
			r.env[counter] = before[counter]
		} else {
			r.stmt(l.Increment, true)
		}
		changed := false
		for k, v := range r.env {
			if old, ok := before[k]; !ok || !v.SubsetOf(old) {
				changed = true
				break
			}
		}
		if !changed {
			return
		}
		if pass+1 >= maxLoopPasses {
			for k, v := range r.env {
				if old, ok := before[k]; ok && !v.SubsetOf(old) {
					r.env[k] = interval.Reunion(v, unbounded(r.typeOf(k)))
				}
			}
			return
		}
	}
}

func (r *ranger) typeOf(name string) fir.Type {
	if i, ok := r.index[name]; ok {
		return r.vars[i].Type
	}
	return fir.Type{}
}

// counterRange bounds a counter compared with "<" against end.
func (r *ranger) counterRange(name string, start interval.Interval, end *fir.Value) interval.Interval {
	if end == nil || end.Kind != fir.ValueBinop || end.Binop.Op != fir.OpLt {
		return interval.Reunion(start, unbounded(r.typeOf(name)))
	}
	left := end.Binop.Left
	if left == nil || left.Kind != fir.ValueLoad || left.Load.Addr.Name != name {
		return interval.Reunion(start, unbounded(r.typeOf(name)))
	}
	upper := r.value(end.Binop.Right)
	if start.IsEmpty() || upper.IsEmpty() {
		return start
	}
	hi := math.Max(start.Hi(), upper.Hi()-1)
	return interval.New(start.Lo(), hi, min(start.LSB(), 0))
}

func truncate(iv interval.Interval) interval.Interval {
	if iv.IsEmpty() {
		return iv
	}
	lo := float64(interval.SaturatedIntCast(math.Trunc(iv.Lo())))
	hi := float64(interval.SaturatedIntCast(math.Trunc(iv.Hi())))
	return interval.New(lo, hi, 0)
}

func (r *ranger) value(v *fir.Value) interval.Interval {
	if v == nil {
		return interval.Empty()
	}
	switch v.Kind {
	case fir.ValueFloat:
		return interval.Singleton(v.Float)
	case fir.ValueInt32:
		return interval.New(float64(v.Int32), float64(v.Int32), 0)
	case fir.ValueLoad:
		a := v.Load.Addr
		if a.Index != nil {
			r.value(a.Index)
		}
		if iv, ok := r.env[a.Name]; ok {
			return iv
		}
		return unbounded(fir.Type{})
	case fir.ValueBinop:
		return r.binop(v.Binop.Op, r.value(v.Binop.Left), r.value(v.Binop.Right))
	case fir.ValueCast:
		iv := r.value(v.Cast.Value)
		if v.Cast.Type.Kind == fir.TypeInt32 {
			return truncate(iv)
		}
		return iv
	case fir.ValueSelect:
		cond := r.value(v.Select.Cond)
		then, els := r.value(v.Select.Then), r.value(v.Select.Else)
		switch {
		case cond.IsConst() && cond.Lo() > 0:
			return then
		case cond.IsConst():
			return els
		}
		return interval.Reunion(then, els)
	case fir.ValueCall:
		args := make([]interval.Interval, len(v.Call.Args))
		for i, a := range v.Call.Args {
			args[i] = r.value(a)
		}
		return r.call(v.Call.Name, args)
	default:
		fatalf(diag.IrUnknownNode, "range analysis of value kind %s", v.Kind)
	}
	return interval.Empty()
}

func (r *ranger) binop(op fir.Opcode, l, rt interval.Interval) interval.Interval {
	switch op {
	case fir.OpAdd:
		return interval.Add(l, rt)
	case fir.OpSub:
		return interval.Sub(l, rt)
	case fir.OpMul:
		return interval.Mul(l, rt)
	case fir.OpDiv:
		return interval.Div(l, rt)
	case fir.OpLt, fir.OpLe, fir.OpGt, fir.OpGe, fir.OpEq, fir.OpNe:
		return interval.New(0, 1, 0)
	}
	return interval.New(math.Inf(-1), math.Inf(1), min(l.LSB(), rt.LSB()))
}

func (r *ranger) call(name string, args []interval.Interval) interval.Interval {
	switch {
	case len(args) == 1 && (name == "acos" || name == "acosf"):
		res, out := interval.Acos(args[0])
		if out {
			detail := fmt.Sprintf("acos argument %s leaves [-1,1]", args[0])
			trace.Point(r.pass.Tracer, trace.ScopeNode, "domain", detail, r.pass.Span)
			diag.ReportWarning(r.pass.Reporter, diag.OptDomainWarning, diag.Location{},
				"potential out of domain in "+detail).Emit()
		}
		return res
	case len(args) == 1 && (name == "sin" || name == "sinf" || name == "cos" || name == "cosf"):
		return interval.New(-1, 1, args[0].LSB())
	case len(args) == 1 && (name == "fabs" || name == "fabsf" || name == "abs"):
		a := args[0]
		if a.IsEmpty() {
			return a
		}
		if a.Lo() >= 0 {
			return a
		}
		if a.Hi() <= 0 {
			return interval.Neg(a)
		}
		return interval.New(0, math.Max(-a.Lo(), a.Hi()), a.LSB())
	}
	return interval.New(math.Inf(-1), math.Inf(1), interval.DefaultLSB)
}
