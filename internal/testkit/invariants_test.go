package testkit_test

import (
	"strings"
	"testing"

	"firopt/internal/fir"
	"firopt/internal/testkit"
)

func TestCheckDisjoint(t *testing.T) {
	shared := fir.LoadStack("a")
	a := fir.NewBlock(fir.Store(fir.Named("x", fir.AccessStruct), fir.Add(shared, fir.Float(1))))
	b := fir.NewBlock(fir.Drop(fir.Call("f", shared)))
	err := testkit.CheckDisjoint(a, b)
	if err == nil || !strings.Contains(err.Error(), "stack.a") {
		t.Errorf("err = %v", err)
	}

	var c fir.Cloner
	if err := testkit.CheckDisjoint(a, c.Block(a)); err != nil {
		t.Errorf("clone shares nodes: %v", err)
	}
}

func TestCheckSelfContained(t *testing.T) {
	ok := fir.VoidFunction("f", []fir.Param{{Name: "n", Type: fir.Basic(fir.TypeInt32)}}, fir.NewBlock(
		fir.SimpleForLoop("i", fir.LoadFunArgs("n"), fir.NewBlock(
			fir.Store(fir.Indexed("out", fir.AccessStruct, fir.LoadLoop("i")), fir.Float(0)),
		)),
	))
	if err := testkit.CheckSelfContained(ok); err != nil {
		t.Errorf("unexpected: %v", err)
	}

	bad := fir.VoidFunction("g", nil, fir.NewBlock(
		fir.Store(fir.Named("x", fir.AccessStruct), fir.Add(fir.LoadStack("a"), fir.LoadFunArgs("n"))),
	))
	err := testkit.CheckSelfContained(bad)
	if err == nil || !strings.Contains(err.Error(), "stack a") || !strings.Contains(err.Error(), "argument n") {
		t.Errorf("err = %v", err)
	}
}
