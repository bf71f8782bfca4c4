package symbols_test

import (
	"strings"
	"testing"

	"firopt/internal/fir"
	"firopt/internal/symbols"
)

func TestFromModule(t *testing.T) {
	i32 := fir.Basic(fir.TypeInt32)
	flt := fir.Basic(fir.TypeFloat)
	m := &fir.Module{
		Name:    "m",
		Globals: fir.NewBlock(fir.DeclareVar(fir.Named("fRec0", fir.AccessStruct), flt, nil)),
		Funcs: []*fir.FunDef{
			fir.VoidFunction("compute", []fir.Param{{Name: "count", Type: i32}}, fir.NewBlock(
				fir.DeclareVar(fir.Named("toto", fir.AccessStack), flt, fir.Float(1)),
				fir.SimpleForLoop("i", fir.LoadFunArgs("count"), fir.NewBlock(
					fir.DeclareVar(fir.Named("titi", fir.AccessLoop), flt, fir.LoadStack("toto")),
				)),
			)),
		},
	}
	tab, err := symbols.FromModule(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"fRec0", "count", "toto", "i", "titi"}
	if got := tab.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", got, want)
	}
	if typ, ok := tab.VarType("i"); !ok || typ != i32 {
		t.Errorf("i resolved to %v, %v", typ, ok)
	}
	if _, ok := tab.VarType("missing"); ok {
		t.Error("unknown variable resolved")
	}
}

func TestConflictingDeclarations(t *testing.T) {
	m := &fir.Module{
		Name: "m",
		Funcs: []*fir.FunDef{
			fir.VoidFunction("a", nil, fir.NewBlock(fir.DeclareVar(fir.Named("x", fir.AccessStack), fir.Basic(fir.TypeInt32), nil))),
			fir.VoidFunction("b", nil, fir.NewBlock(fir.DeclareVar(fir.Named("x", fir.AccessStack), fir.Basic(fir.TypeFloat), nil))),
		},
	}
	tab, err := symbols.FromModule(m)
	if err == nil || !strings.Contains(err.Error(), "variable x declared as int32 and float") {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if typ, _ := tab.VarType("x"); typ.Kind != fir.TypeInt32 {
		t.Errorf("first declaration should win, got %s", typ)
	}
}

func TestMapLookup(t *testing.T) {
	var vt symbols.VarTypes = symbols.Map{"a": fir.Basic(fir.TypeFloat)}
	if typ, ok := vt.VarType("a"); !ok || typ.Kind != fir.TypeFloat {
		t.Errorf("lookup = %v, %v", typ, ok)
	}
}
