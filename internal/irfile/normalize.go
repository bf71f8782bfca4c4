package irfile

import (
	"golang.org/x/text/unicode/norm"

	"firopt/internal/fir"
)

// Normalize returns m with every variable, parameter and function name in
// Unicode NFC, so names spelled with different code point sequences resolve
// to the same symbol. m is returned unchanged when already normalised.
func Normalize(m *fir.Module) *fir.Module {
	if m == nil || isNFC(m) {
		return m
	}
	c := &fir.Cloner{
		Address: func(c *fir.Cloner, a fir.Address) fir.Address {
			out := c.CopyAddr(a)
			out.Name = norm.NFC.String(out.Name)
			return out
		},
		Call: func(c *fir.Cloner, v *fir.Value) *fir.Value {
			out := c.CopyValue(v)
			out.Call.Name = norm.NFC.String(out.Call.Name)
			return out
		},
	}
	out := &fir.Module{
		Name:    norm.NFC.String(m.Name),
		Globals: c.Block(m.Globals),
		Funcs:   make([]*fir.FunDef, 0, len(m.Funcs)),
	}
	for _, f := range m.Funcs {
		nf := c.Fun(f)
		if nf != nil {
			nf.Name = norm.NFC.String(nf.Name)
			for i := range nf.Params {
				nf.Params[i].Name = norm.NFC.String(nf.Params[i].Name)
			}
		}
		out.Funcs = append(out.Funcs, nf)
	}
	return out
}

func isNFC(m *fir.Module) bool {
	ok := norm.NFC.IsNormalString(m.Name)
	check := func(s string) {
		if ok && !norm.NFC.IsNormalString(s) {
			ok = false
		}
	}
	in := &fir.Inspector{
		DeclareVar: func(s *fir.Stmt) { check(s.DeclareVar.Addr.Name) },
		Store:      func(s *fir.Stmt) { check(s.Store.Addr.Name) },
		Load:       func(v *fir.Value) { check(v.Load.Addr.Name) },
		Call:       func(v *fir.Value) { check(v.Call.Name) },
	}
	in.Block(m.Globals)
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		check(f.Name)
		for _, p := range f.Params {
			check(p.Name)
		}
		in.Block(f.Body)
	}
	return ok
}
