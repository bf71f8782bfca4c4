package passes_test

import (
	"math"
	"strings"
	"testing"

	"firopt/internal/diag"
	"firopt/internal/fir"
	"firopt/internal/passes"
	"firopt/internal/testkit"
)

var (
	tFloat = fir.Basic(fir.TypeFloat)
	tInt   = fir.Basic(fir.TypeInt32)
)

func stackVar(name string) fir.Address  { return fir.Named(name, fir.AccessStack) }
func structVar(name string) fir.Address { return fir.Named(name, fir.AccessStruct) }

func lines(s ...string) string { return strings.Join(s, "\n") + "\n" }

func TestFoldPropagatesThroughLocals(t *testing.T) {
	in := fir.NewBlock(
		fir.DeclareVar(stackVar("x"), tFloat, fir.Float(2)),
		fir.DeclareVar(stackVar("y"), tFloat, fir.Mul(fir.LoadStack("x"), fir.Float(3))),
		fir.Store(structVar("out"), fir.LoadStack("y")),
	)
	out, bindings := passes.Fold(in)

	want := lines("nop;", "nop;", "struct.out = 6.0;")
	if got := fir.FormatBlock(out); got != want {
		t.Fatalf("folded:\n%s\nwant:\n%s", got, want)
	}
	if y := bindings["y"]; y == nil || y.Float != 6 {
		t.Errorf("binding for y = %v", y)
	}
	if _, ok := bindings["out"]; ok {
		t.Error("state field should not be bound")
	}
}

func TestFoldIsIdempotent(t *testing.T) {
	in := fir.NewBlock(
		fir.DeclareVar(stackVar("g"), tFloat, fir.Div(fir.Float(1), fir.Float(4))),
		fir.Store(structVar("a"), fir.Add(fir.LoadStruct("b"), fir.LoadStack("g"))),
		fir.Drop(fir.Call("tick", fir.LoadStack("g"))),
	)
	once, _ := passes.Fold(in)
	twice, _ := passes.Fold(once)
	if a, b := fir.FormatBlock(once), fir.FormatBlock(twice); a != b {
		t.Errorf("second fold changed the block:\n%s\nvs\n%s", a, b)
	}
	if !strings.Contains(fir.FormatBlock(once), "tick(0.25)") {
		t.Errorf("call argument not propagated:\n%s", fir.FormatBlock(once))
	}
}

func TestFoldSelectTakesElseUnlessPositive(t *testing.T) {
	tests := []struct {
		cond *fir.Value
		want string
	}{
		{fir.Float(0), "struct.o = struct.b;"},
		{fir.Float(-1), "struct.o = struct.b;"},
		{fir.Float(0.5), "struct.o = struct.a;"},
		{fir.Int32(0), "struct.o = struct.b;"},
		{fir.Int32(3), "struct.o = struct.a;"},
		{fir.LoadStruct("c"), "struct.o = (struct.c ? struct.a : struct.b);"},
	}
	for _, tt := range tests {
		in := fir.NewBlock(fir.Store(structVar("o"), fir.Select(tt.cond, fir.LoadStruct("a"), fir.LoadStruct("b"))))
		out, _ := passes.Fold(in)
		if got := fir.FormatStmt(out.Stmts[0]); got != tt.want {
			t.Errorf("select on %s = %q, want %q", fir.FormatValue(tt.cond), got, tt.want)
		}
	}
}

func TestFoldCasts(t *testing.T) {
	tests := []struct {
		in   *fir.Value
		want string
	}{
		{fir.Cast(tFloat, fir.Int32(3)), "3.0"},
		{fir.Cast(tFloat, fir.Float(1.5)), "1.5"},
		{fir.Cast(tInt, fir.Float(3.7)), "3"},
		{fir.Cast(tInt, fir.Float(-3.7)), "-3"},
		{fir.Cast(tInt, fir.Float(1e12)), "2147483647"},
		{fir.Cast(tInt, fir.Int32(9)), "9"},
		{fir.Cast(tInt, fir.LoadStruct("s")), "(int32)struct.s"},
	}
	for _, tt := range tests {
		out, _ := passes.Fold(fir.NewBlock(fir.Store(structVar("o"), tt.in)))
		if got := fir.FormatValue(out.Stmts[0].Store.Value); got != tt.want {
			t.Errorf("fold %s = %s, want %s", fir.FormatValue(tt.in), got, tt.want)
		}
	}
}

func TestFoldInvariantViolations(t *testing.T) {
	tests := []struct {
		name string
		val  *fir.Value
		code diag.Code
	}{
		{"int binop", fir.Add(fir.Int32(1), fir.Int32(2)), diag.IrIntBinopFold},
		{"cast to double", fir.Cast(fir.Basic(fir.TypeDouble), fir.LoadStruct("s")), diag.IrUnsupportedCast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := passes.Guard(func() error {
				passes.Fold(fir.NewBlock(fir.Store(structVar("o"), tt.val)))
				return nil
			})
			ie, ok := passes.AsInvariant(err)
			if !ok || ie.Code != tt.code {
				t.Fatalf("got %v, want invariant %s", err, tt.code.ID())
			}
		})
	}
}

func TestFoldReportsUnfoldedOperator(t *testing.T) {
	bag := diag.NewBag(10)
	p := &passes.ConstantPropagation{Reporter: diag.BagReporter{Bag: bag}}
	res := p.Run(fir.NewBlock(fir.Store(structVar("o"), fir.Lt(fir.Float(1), fir.Float(2)))))
	if got := fir.FormatStmt(res.Block.Stmts[0]); got != "struct.o = (1.0 < 2.0);" {
		t.Errorf("comparison rewritten to %q", got)
	}
	if res.Unfolded != 1 || bag.Len() != 1 || bag.Items()[0].Code != diag.OptUnfoldedOpcode {
		t.Errorf("unfolded=%d diagnostics=%d", res.Unfolded, bag.Len())
	}
}

func TestFoldRestoresDeclarationForLaterStore(t *testing.T) {
	in := fir.NewBlock(
		fir.DeclareVar(stackVar("x"), tFloat, fir.Float(1)),
		fir.Store(structVar("a"), fir.LoadStack("x")),
		fir.Store(stackVar("x"), fir.Call("noise")),
		fir.Store(structVar("b"), fir.LoadStack("x")),
	)
	out, bindings := passes.Fold(in)
	want := lines(
		"nop;",
		"struct.a = 1.0;",
		"decl float stack.x = noise();",
		"struct.b = stack.x;",
	)
	if got := fir.FormatBlock(out); got != want {
		t.Fatalf("folded:\n%s\nwant:\n%s", got, want)
	}
	if _, ok := bindings["x"]; ok {
		t.Error("binding survived a non-literal store")
	}
}

func TestFoldKeepsStoresInsideLoops(t *testing.T) {
	in := fir.NewBlock(
		fir.DeclareVar(stackVar("acc"), tFloat, fir.Float(0)),
		fir.SimpleForLoop("i", fir.Int32(4), fir.NewBlock(
			fir.Store(stackVar("acc"), fir.Add(fir.LoadStack("acc"), fir.Float(1))),
		)),
		fir.Store(structVar("out"), fir.LoadStack("acc")),
	)
	out, _ := passes.Fold(in)
	want := lines(
		"nop;",
		"decl float stack.acc = 0.0;",
		"for (decl int32 loop.i = 0; (loop.i < 4); loop.i = (loop.i + 1)) {",
		"  stack.acc = (stack.acc + 1.0);",
		"}",
		"struct.out = stack.acc;",
	)
	if got := fir.FormatBlock(out); got != want {
		t.Fatalf("folded:\n%s\nwant:\n%s", got, want)
	}
}

func TestFoldFloatDivisionByZero(t *testing.T) {
	out, _ := passes.Fold(fir.NewBlock(fir.Store(structVar("o"), fir.Div(fir.Float(1), fir.Float(0)))))
	if v := out.Stmts[0].Store.Value; v.Kind != fir.ValueFloat || !math.IsInf(v.Float, 1) {
		t.Errorf("1.0/0.0 folded to %s", fir.FormatValue(v))
	}
}

func TestFoldSharesNoNodesWithInput(t *testing.T) {
	in := fir.NewBlock(
		fir.DeclareVar(stackVar("g"), tFloat, fir.Float(0.5)),
		fir.DeclareVar(stackVar("b"), tFloat, fir.LoadStruct("fBias")),
		fir.SimpleForLoop("i", fir.Int32(8), fir.NewBlock(
			fir.Store(stackVar("b"), fir.Add(fir.LoadStack("b"), fir.LoadStack("g"))),
			fir.Store(fir.Indexed("out", fir.AccessStruct, fir.LoadLoop("i")),
				fir.Select(fir.LoadStruct("fGate"), fir.LoadStack("b"), fir.Cast(tFloat, fir.Int32(3)))),
		)),
		fir.If(fir.LoadStruct("fGate"), fir.NewBlock(fir.Store(stackVar("g"), fir.Float(1))), nil),
		fir.Drop(fir.Call("flush", fir.LoadStack("g"))),
	)
	out, _ := passes.Fold(in)
	if err := testkit.CheckDisjoint(in, out); err != nil {
		t.Error(err)
	}
}

func TestFoldWritesBackLiteralsBeforeCompoundStatements(t *testing.T) {
	seeded := func(rest ...*fir.Stmt) *fir.Block {
		b := fir.NewBlock(
			fir.DeclareVar(stackVar("x"), tFloat, fir.LoadStruct("seed")),
			fir.Store(stackVar("x"), fir.Float(1)),
		)
		for _, s := range rest {
			b.Push(s)
		}
		return b
	}
	tests := []struct {
		name   string
		in     *fir.Block
		want   string
		elided int
	}{
		{
			name: "loop reassigns",
			in: seeded(
				fir.SimpleForLoop("i", fir.Int32(4), fir.NewBlock(
					fir.Store(stackVar("x"), fir.Add(fir.LoadStack("x"), fir.LoadStruct("step"))),
				)),
				fir.Store(structVar("out"), fir.LoadStack("x")),
			),
			want: lines(
				"decl float stack.x = struct.seed;",
				"nop;",
				"stack.x = 1.0;",
				"for (decl int32 loop.i = 0; (loop.i < 4); loop.i = (loop.i + 1)) {",
				"  stack.x = (stack.x + struct.step);",
				"}",
				"struct.out = stack.x;",
			),
		},
		{
			name: "branch reassigns",
			in: seeded(
				fir.If(fir.LoadStruct("gate"), fir.NewBlock(fir.Store(stackVar("x"), fir.Float(2))), nil),
				fir.Store(structVar("out"), fir.LoadStack("x")),
			),
			want: lines(
				"decl float stack.x = struct.seed;",
				"nop;",
				"stack.x = 1.0;",
				"if (struct.gate) {",
				"  stack.x = 2.0;",
				"}",
				"struct.out = stack.x;",
			),
		},
		{
			name: "branch shadows an elided declaration",
			in: fir.NewBlock(
				fir.DeclareVar(stackVar("x"), tFloat, fir.Float(1)),
				fir.If(fir.LoadStruct("gate"), fir.NewBlock(
					fir.DeclareVar(stackVar("x"), tFloat, fir.Float(3)),
					fir.Store(structVar("a"), fir.LoadStack("x")),
				), nil),
				fir.Store(structVar("b"), fir.LoadStack("x")),
			),
			want: lines(
				"nop;",
				"decl float stack.x = 1.0;",
				"if (struct.gate) {",
				"  decl float stack.x = 3.0;",
				"  struct.a = stack.x;",
				"}",
				"struct.b = stack.x;",
			),
		},
		{
			name: "untouched literal stays propagated",
			in: seeded(
				fir.If(fir.LoadStruct("gate"), fir.NewBlock(fir.Store(structVar("a"), fir.LoadStack("x"))), nil),
				fir.Store(structVar("out"), fir.LoadStack("x")),
			),
			want: lines(
				"decl float stack.x = struct.seed;",
				"nop;",
				"if (struct.gate) {",
				"  struct.a = 1.0;",
				"}",
				"struct.out = 1.0;",
			),
			elided: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p passes.ConstantPropagation
			res := p.Run(tt.in)
			if got := fir.FormatBlock(res.Block); got != tt.want {
				t.Fatalf("folded:\n%s\nwant:\n%s", got, tt.want)
			}
			if res.Elided != tt.elided {
				t.Errorf("elided = %d, want %d", res.Elided, tt.elided)
			}
		})
	}
}

func TestFoldLoopInitFoldedOnce(t *testing.T) {
	bag := diag.NewBag(10)
	p := &passes.ConstantPropagation{Reporter: diag.BagReporter{Bag: bag}}
	init := fir.DeclareVar(fir.Named("i", fir.AccessLoop), tInt,
		fir.Select(fir.Lt(fir.Float(1), fir.Float(2)), fir.Int32(1), fir.Int32(0)))
	loop := fir.ForLoop(init,
		fir.Lt(fir.LoadLoop("i"), fir.Int32(4)),
		fir.Store(fir.Named("i", fir.AccessLoop), fir.Add(fir.LoadLoop("i"), fir.Int32(1))),
		fir.NewBlock(fir.Store(fir.Indexed("out", fir.AccessStruct, fir.LoadLoop("i")), fir.Float(0))),
	)
	res := p.Run(fir.NewBlock(loop))
	if res.Unfolded != 1 || bag.Len() != 1 {
		t.Errorf("unfolded=%d diagnostics=%d, want 1 each", res.Unfolded, bag.Len())
	}
}
