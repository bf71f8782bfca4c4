package passes

import (
	"slices"

	"firopt/internal/diag"
	"firopt/internal/fir"
	"firopt/internal/symbols"
)

// ReceiverParam is the name of the explicit state handle passed to an
// extracted function that needs per-instance state.
const ReceiverParam = "dsp"

// Extraction is a loop body moved into its own function.
type Extraction struct {
	// Func takes one parameter per captured variable, in first-use order,
	// preceded by the receiver when requested.
	Func *fir.FunDef
	// Call invokes Func; it replaces the extracted code in place.
	Call *fir.Stmt
	// Captured lists the variables turned into parameters, receiver excluded.
	Captured []string
}

// ExtractLoop builds a void function named name whose body is b, with every
// variable b borrows from the enclosing function turned into a parameter:
//
//   - stack and loop variables declared outside b are captured and passed
//     from the caller's stack;
//   - arguments of the enclosing function are forwarded as arguments;
//   - state fields and globals are reachable as they are.
//
// With receiver set, a leading object pointer parameter is added. vt supplies
// the type of every captured variable. ExtractLoop panics with an
// *InvariantError when b contains a link address or a captured variable has
// no known type.
func ExtractLoop(name string, b *fir.Block, receiver bool, vt symbols.VarTypes) Extraction {
	x := &capture{vt: vt, locals: make(map[string]bool), added: make(map[string]bool)}
	in := &fir.Inspector{
		DeclareVar: func(s *fir.Stmt) {
			if a := s.DeclareVar.Addr; a.Access.Local() {
				x.locals[a.Name] = true
			}
		},
		Load:  func(v *fir.Value) { x.use(v.Load.Addr) },
		Store: func(s *fir.Stmt) { x.use(s.Store.Addr) },
	}
	in.Block(b)

	rewrite := &fir.Cloner{
		Address: func(c *fir.Cloner, a fir.Address) fir.Address {
			out := c.CopyAddr(a)
			if x.added[a.Name] {
				out.Access = fir.AccessFunArgs
			}
			return out
		},
	}
	body := rewrite.Block(b)
	if body == nil {
		body = fir.NewBlock()
	}
	body.Push(fir.Ret())

	params, args := x.params, x.args
	if receiver {
		params = slices.Insert(params, 0, fir.Param{Name: ReceiverParam, Type: fir.Basic(fir.TypeObjPtr)})
		args = slices.Insert(args, 0, fir.LoadFunArgs(ReceiverParam))
	}
	return Extraction{
		Func:     fir.VoidFunction(name, params, body),
		Call:     fir.Drop(fir.Call(name, args...)),
		Captured: x.order,
	}
}

type capture struct {
	vt     symbols.VarTypes
	locals map[string]bool
	added  map[string]bool
	order  []string
	params []fir.Param
	args   []*fir.Value
}

func (x *capture) use(a fir.Address) {
	switch a.Access {
	case fir.AccessStack, fir.AccessLoop:
		if x.locals[a.Name] {
			return
		}
		x.add(a.Name, fir.LoadStack)
	case fir.AccessFunArgs:
		x.add(a.Name, fir.LoadFunArgs)
	case fir.AccessStruct, fir.AccessStaticStruct, fir.AccessGlobal:
	case fir.AccessLink:
		fatalf(diag.IrLinkAddress, "link address %s inside an extracted loop", a.Name)
	default:
		fatalf(diag.IrUnknownNode, "address %s has unknown access %d", a.Name, a.Access)
	}
}

func (x *capture) add(name string, load func(string) *fir.Value) {
	if x.added[name] {
		return
	}
	var typ fir.Type
	ok := false
	if x.vt != nil {
		typ, ok = x.vt.VarType(name)
	}
	if !ok {
		fatalf(diag.IrMissingSymbol, "captured variable %s has no declared type", name)
	}
	x.added[name] = true
	x.order = append(x.order, name)
	x.params = append(x.params, fir.Param{Name: name, Type: typ})
	x.args = append(x.args, load(name))
}
