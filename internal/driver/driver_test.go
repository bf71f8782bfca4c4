package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"firopt/internal/config"
	"firopt/internal/diag"
	"firopt/internal/driver"
	"firopt/internal/fir"
	"firopt/internal/irfile"
	"firopt/internal/passes"
	"firopt/internal/pipeline"
	"firopt/internal/testkit"
)

var (
	tFloat = fir.Basic(fir.TypeFloat)
	tInt   = fir.Basic(fir.TypeInt32)
)

// oscModule has one method whose loop scales an input by a folded gain.
func oscModule() *fir.Module {
	body := fir.NewBlock(
		fir.DeclareVar(fir.Named("gain", fir.AccessStack), tFloat, fir.Mul(fir.Float(0.25), fir.Float(2))),
		fir.DeclareVar(fir.Named("bias", fir.AccessStack), tFloat, fir.LoadStruct("fBias")),
		fir.SimpleForLoop("i", fir.LoadFunArgs("count"), fir.NewBlock(
			fir.Store(fir.Indexed("out", fir.AccessStruct, fir.LoadLoop("i")),
				fir.Add(fir.Mul(fir.LoadStack("gain"), fir.LoadLoop("i")), fir.LoadStack("bias"))),
		)),
	)
	f := fir.VoidFunction("compute", []fir.Param{{Name: "count", Type: tInt}}, body)
	f.Method = true
	return &fir.Module{
		Name:    "osc",
		Globals: fir.NewBlock(fir.DeclareVar(fir.Named("fBias", fir.AccessStruct), tFloat, nil)),
		Funcs:   []*fir.FunDef{f},
	}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Driver.Jobs = 2
	cfg.Driver.CacheDir = t.TempDir()
	return cfg
}

func funcNames(m *fir.Module) []string {
	var out []string
	for _, f := range m.Funcs {
		out = append(out, f.Name)
	}
	return out
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestOptimizeModule(t *testing.T) {
	in := oscModule()
	before := fir.FormatFun(in.Funcs[0])
	bag := diag.NewBag(50)
	var stages []pipeline.Stage

	res, err := driver.OptimizeModule(context.Background(), in, driver.ModuleOptions{
		Config: testConfig(t),
		File:   "osc.firb",
		Bag:    bag,
		Stage:  func(s pipeline.Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("OptimizeModule: %v", err)
	}
	if got := funcNames(res.Module); !slices.Equal(got, []string{"compute", "compute_loop0"}) {
		t.Fatalf("funcs = %v", got)
	}
	if !slices.Equal(stages, []pipeline.Stage{pipeline.StageFold, pipeline.StageExtract, pipeline.StageRanges}) {
		t.Errorf("stages = %v", stages)
	}
	if fir.FormatFun(in.Funcs[0]) != before {
		t.Error("input module was modified")
	}

	compute := res.Module.Func("compute")
	last := compute.Body.Stmts[len(compute.Body.Stmts)-1]
	if last.Kind != fir.StmtDrop || last.Drop.Value == nil || last.Drop.Value.Kind != fir.ValueCall {
		t.Fatalf("loop not replaced by a call: %s", fir.FormatStmt(last))
	}
	if name := last.Drop.Value.Call.Name; name != "compute_loop0" {
		t.Errorf("call target = %q", name)
	}

	loop := res.Module.Func("compute_loop0")
	var params []string
	for _, p := range loop.Params {
		params = append(params, p.Name)
	}
	if !slices.Equal(params, []string{passes.ReceiverParam, "count", "bias"}) {
		t.Errorf("params = %v", params)
	}
	if err := testkit.CheckSelfContained(loop); err != nil {
		t.Error(err)
	}

	if res.Stats.Extracted != 1 || res.Stats.Folded == 0 || res.Stats.Elided == 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if !hasCode(bag, diag.OptLoopExtracted) {
		t.Error("missing loop extraction note")
	}
	if len(res.Ranges) != 1 {
		t.Fatalf("ranges = %d reports", len(res.Ranges))
	}
	if iv, ok := res.Ranges[0].Lookup("i"); !ok || iv.Lo() != 0 || iv.LSB() != 0 {
		t.Errorf("range of i = %v, %v", iv, ok)
	}
}

func TestOptimizeModuleReceiverPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extract.Receiver = config.ReceiverNever
	cfg.Extract.Suffix = "_body"
	res, err := driver.OptimizeModule(context.Background(), oscModule(), driver.ModuleOptions{Config: cfg, Bag: diag.NewBag(10)})
	if err != nil {
		t.Fatal(err)
	}
	loop := res.Module.Func("compute_body0")
	if loop == nil {
		t.Fatalf("funcs = %v", funcNames(res.Module))
	}
	if len(loop.Params) == 0 || loop.Params[0].Name == passes.ReceiverParam {
		t.Errorf("unexpected receiver: %+v", loop.Params)
	}
}

func TestOptimizeModuleSkipsTakenNames(t *testing.T) {
	m := oscModule()
	m.Funcs = append(m.Funcs, fir.VoidFunction("compute_loop0", nil, fir.NewBlock()))
	res, err := driver.OptimizeModule(context.Background(), m, driver.ModuleOptions{Config: testConfig(t), Bag: diag.NewBag(10)})
	if err != nil {
		t.Fatal(err)
	}
	if got := funcNames(res.Module); !slices.Equal(got, []string{"compute", "compute_loop0", "compute_loop1"}) {
		t.Errorf("funcs = %v", got)
	}
}

func TestOptimizeModuleDisabledPasses(t *testing.T) {
	cfg := testConfig(t)
	cfg.Passes = config.Passes{}
	in := oscModule()
	res, err := driver.OptimizeModule(context.Background(), in, driver.ModuleOptions{Config: cfg, Bag: diag.NewBag(10)})
	if err != nil {
		t.Fatal(err)
	}
	if fir.FormatFun(res.Module.Funcs[0]) != fir.FormatFun(in.Funcs[0]) || len(res.Module.Funcs) != 1 {
		t.Errorf("module changed with every pass disabled:\n%s", fir.FormatFun(res.Module.Funcs[0]))
	}
	if res.Ranges != nil {
		t.Error("ranges computed while disabled")
	}
}

func TestOptimizeModuleInvariantViolation(t *testing.T) {
	m := oscModule()
	m.Funcs = append(m.Funcs, fir.VoidFunction("broken", nil, fir.NewBlock(
		fir.Store(fir.Named("x", fir.AccessStruct), fir.Add(fir.Int32(1), fir.Int32(2))),
	)))
	bag := diag.NewBag(10)
	_, err := driver.OptimizeModule(context.Background(), m, driver.ModuleOptions{Config: testConfig(t), File: "osc.firb", Bag: bag})
	ie, ok := passes.AsInvariant(err)
	if !ok {
		t.Fatalf("err = %v, want invariant violation", err)
	}
	if ie.Code != diag.IrIntBinopFold {
		t.Errorf("code = %v", ie.Code)
	}
	var found bool
	for _, d := range bag.Items() {
		if d.Code == diag.IrIntBinopFold && d.Severity == diag.SevError && d.Loc.Func == "broken" && d.Loc.File == "osc.firb" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %+v", bag.Items())
	}
}

func TestOptimizeModuleRejectsInvalid(t *testing.T) {
	m := &fir.Module{Name: "bad", Funcs: []*fir.FunDef{fir.VoidFunction("f", nil, fir.NewBlock(fir.Store(fir.Named("x", fir.AccessStack), nil)))}}
	bag := diag.NewBag(10)
	if _, err := driver.OptimizeModule(context.Background(), m, driver.ModuleOptions{Config: testConfig(t), Bag: bag}); err == nil {
		t.Fatal("expected a validation error")
	}
	if !hasCode(bag, diag.IrInvalidModule) {
		t.Error("missing validation diagnostic")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, outDir string
		enc        irfile.Encoding
		want       string
	}{
		{filepath.Join("dsp", "osc.firb"), "", irfile.EncodingMsgpack, filepath.Join("dsp", "osc.opt.firb")},
		{filepath.Join("dsp", "osc.fir.json"), "build", irfile.EncodingJSON, filepath.Join("build", "osc.opt.fir.json")},
		{"osc.firb", "", irfile.EncodingText, "osc.opt.fir.txt"},
	}
	for _, tt := range tests {
		if got := driver.OutputPath(tt.in, tt.outDir, tt.enc); got != tt.want {
			t.Errorf("OutputPath(%q, %q) = %q, want %q", tt.in, tt.outDir, got, tt.want)
		}
	}
}

func TestListIRFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.firb", "b.fir.json", "a.opt.firb", "notes.txt", ".hidden/c.firb", "sub/d.firb"} {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := driver.ListIRFiles([]string{dir, filepath.Join(dir, "a.firb")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.firb"), filepath.Join(dir, "b.fir.json"), filepath.Join(dir, "sub", "d.firb")}
	if !slices.Equal(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []pipeline.Event
}

func (r *recorder) OnEvent(ev pipeline.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) last(file string) pipeline.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out pipeline.Event
	for _, ev := range r.events {
		if ev.File == file {
			out = ev
		}
	}
	return out
}

func TestOptimizeFilesWithCache(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "osc.firb")
	if err := irfile.Write(in, irfile.New(oscModule(), "test"), irfile.EncodingMsgpack); err != nil {
		t.Fatal(err)
	}
	opts := driver.Options{Config: testConfig(t), Emit: irfile.EncodingJSON}

	rec := &recorder{}
	opts.Sink = rec
	report, err := driver.OptimizeFiles(context.Background(), []string{in}, opts)
	if err != nil {
		t.Fatal(err)
	}
	fr := report.Files[0]
	if fr.Err != nil || fr.Cached {
		t.Fatalf("first run: err=%v cached=%v", fr.Err, fr.Cached)
	}
	if ev := rec.last(in); ev.Status != pipeline.StatusDone {
		t.Errorf("last event = %+v", ev)
	}
	out, err := irfile.Read(fr.Output)
	if err != nil {
		t.Fatal(err)
	}
	if out.Module.Func("compute_loop0") == nil {
		t.Errorf("output funcs = %v", funcNames(out.Module))
	}

	rec = &recorder{}
	opts.Sink = rec
	report, err = driver.OptimizeFiles(context.Background(), []string{in}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Files[0].Cached || report.Cached() != 1 {
		t.Error("second run missed the cache")
	}
	if report.Files[0].Stats != fr.Stats {
		t.Errorf("cached stats = %+v, want %+v", report.Files[0].Stats, fr.Stats)
	}
	if !hasCode(report.Files[0].Bag, diag.OptLoopExtracted) {
		t.Error("cached diagnostics not restored")
	}
	if ev := rec.last(in); ev.Status != pipeline.StatusCached {
		t.Errorf("last event = %+v", ev)
	}
}

func TestOptimizeFilesReportsBadInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.fir.json")
	if err := os.WriteFile(bad, []byte(`{"format":"9.0.0","module":{"name":"m","funcs":[]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "good.firb")
	if err := irfile.Write(good, irfile.New(oscModule(), "test"), irfile.EncodingMsgpack); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(t)
	cfg.Driver.Cache = false
	report, err := driver.OptimizeFiles(context.Background(), []string{bad, good, filepath.Join(dir, "missing.firb")}, driver.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed() != 2 {
		t.Errorf("failed = %d", report.Failed())
	}
	if !errors.Is(report.Files[0].Err, irfile.ErrFormatVersion) || !hasCode(report.Files[0].Bag, diag.IOFormatVersion) {
		t.Errorf("bad file: %v", report.Files[0].Err)
	}
	if report.Files[1].Err != nil {
		t.Errorf("good file: %v", report.Files[1].Err)
	}
	if !hasCode(report.Files[2].Bag, diag.IORead) {
		t.Error("missing read diagnostic")
	}
	if report.Stats().Extracted != 1 {
		t.Errorf("stats = %+v", report.Stats())
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	c, err := driver.OpenDiskCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("cache dir not recreated: %v", err)
	}
}
