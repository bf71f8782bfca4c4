package driver

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"firopt/internal/config"
	"firopt/internal/diag"
	"firopt/internal/fir"
	"firopt/internal/observ"
	"firopt/internal/passes"
	"firopt/internal/pipeline"
	"firopt/internal/symbols"
	"firopt/internal/trace"
)

// Stats counts what the passes did to one module.
type Stats struct {
	Funcs     int
	Folded    int
	Elided    int
	Unfolded  int
	Extracted int
}

func (s *Stats) add(o Stats) {
	s.Funcs += o.Funcs
	s.Folded += o.Folded
	s.Elided += o.Elided
	s.Unfolded += o.Unfolded
	s.Extracted += o.Extracted
}

// ModuleOptions configures OptimizeModule.
type ModuleOptions struct {
	Config config.Config
	// File labels diagnostics.
	File string
	// Bag receives diagnostics. Required.
	Bag   *diag.Bag
	Timer *observ.Timer
	// Stage is called when a stage starts. May be nil.
	Stage func(pipeline.Stage)
}

// ModuleResult is an optimised module. The input module is left untouched.
type ModuleResult struct {
	Module *fir.Module
	// Ranges holds one report per input function, computed after folding
	// and before extraction.
	Ranges []passes.RangeReport
	Stats  Stats
}

// OptimizeModule runs the enabled passes over every function of m. Each
// stage processes functions in parallel against a symbol table built once
// from m. An invariant violation aborts the module; it is reported to
// opts.Bag and returned.
func OptimizeModule(ctx context.Context, m *fir.Module, opts ModuleOptions) (*ModuleResult, error) {
	r := &moduleRun{
		cfg:    opts.Config,
		file:   opts.File,
		bag:    opts.Bag,
		timer:  opts.Timer,
		tracer: trace.FromContext(ctx),
		parent: trace.CurrentSpan(ctx),
		jobs:   opts.Config.Driver.Jobs,
	}
	if r.jobs <= 0 {
		r.jobs = runtime.GOMAXPROCS(0)
	}
	stage := opts.Stage
	if stage == nil {
		stage = func(pipeline.Stage) {}
	}

	if err := fir.Validate(m); err != nil {
		diag.ReportError(r.reporter(""), diag.IrInvalidModule, diag.Location{}, err.Error()).Emit()
		return nil, err
	}

	table, err := symbols.FromModule(m)
	for _, e := range unjoin(err) {
		diag.ReportWarning(r.reporter(""), diag.OptSymbolConflict, diag.Location{}, e.Error()).Emit()
	}

	funcs := make([]*fir.FunDef, len(m.Funcs))
	for i, f := range m.Funcs {
		cp := *f
		funcs[i] = &cp
	}
	out := &fir.Module{Name: m.Name, Globals: m.Globals}
	res := &ModuleResult{Module: out, Stats: Stats{Funcs: len(funcs)}}

	if r.cfg.Passes.Fold {
		stage(pipeline.StageFold)
		if err := r.foldGlobals(out); err != nil {
			return nil, err
		}
		err := r.each(ctx, "fold", funcs, func(_ context.Context, i int, f *fir.FunDef, span uint64) error {
			p := passes.ConstantPropagation{Reporter: r.reporter(f.Name), Tracer: r.tracer, Span: span}
			fr := p.Run(f.Body)
			funcs[i].Body = fr.Block
			r.count(Stats{Folded: fr.Folded, Elided: fr.Elided, Unfolded: fr.Unfolded})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// ranges are inferred on the folded bodies, where loops still see the
	// values flowing into them
	folded := make([]*fir.FunDef, len(funcs))
	for i, f := range funcs {
		cp := *f
		folded[i] = &cp
	}

	extracted := make([][]*fir.FunDef, len(funcs))
	if r.cfg.Passes.ExtractLoops {
		stage(pipeline.StageExtract)
		taken := make(map[string]bool, len(m.Funcs))
		for _, f := range m.Funcs {
			taken[f.Name] = true
		}
		err := r.each(ctx, "extract", funcs, func(_ context.Context, i int, f *fir.FunDef, span uint64) error {
			body, fns := r.extractLoops(f, table, taken, span)
			funcs[i].Body = body
			extracted[i] = fns
			r.count(Stats{Extracted: len(fns)})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if r.cfg.Passes.Ranges {
		stage(pipeline.StageRanges)
		res.Ranges = make([]passes.RangeReport, len(folded))
		err := r.each(ctx, "ranges", folded, func(_ context.Context, i int, f *fir.FunDef, span uint64) error {
			p := passes.RangeAnalysis{Reporter: r.reporter(f.Name), Tracer: r.tracer, Span: span}
			res.Ranges[i] = p.Run(f)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out.Funcs = funcs
	for _, fns := range extracted {
		out.Funcs = append(out.Funcs, fns...)
	}
	res.Stats.add(r.stats)
	return res, nil
}

type moduleRun struct {
	cfg    config.Config
	file   string
	bag    *diag.Bag
	timer  *observ.Timer
	tracer trace.Tracer
	parent uint64
	jobs   int

	mu    sync.Mutex
	stats Stats
}

func (r *moduleRun) reporter(fn string) diag.Reporter {
	return diag.Scoped{Next: diag.BagReporter{Bag: r.bag}, File: r.file, Func: fn}
}

func (r *moduleRun) count(s Stats) {
	r.mu.Lock()
	r.stats.add(s)
	r.mu.Unlock()
}

// each runs fn for every function under a pass span, at most r.jobs at a
// time. The first invariant violation cancels the remaining functions.
func (r *moduleRun) each(ctx context.Context, pass string, funcs []*fir.FunDef, fn func(context.Context, int, *fir.FunDef, uint64) error) error {
	if len(funcs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.jobs, len(funcs)))
	for i, f := range funcs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			span := trace.Begin(r.tracer, trace.ScopePass, pass, r.parent).WithExtra("func", f.Name)
			tok := r.timer.Begin(pass)
			err := passes.Guard(func() error {
				return fn(gctx, i, f, span.Parent())
			})
			r.timer.End(tok, "")
			if err != nil {
				span.End("error")
				return r.abort(pass, f.Name, err)
			}
			span.End("")
			return nil
		})
	}
	return g.Wait()
}

// abort reports an invariant violation against the function it hit.
func (r *moduleRun) abort(pass, fn string, err error) error {
	ie, ok := passes.AsInvariant(err)
	if !ok {
		return err
	}
	diag.ReportError(r.reporter(fn), ie.Code, diag.Location{Path: pass}, ie.Msg).Emit()
	return fmt.Errorf("%s: %s: %w", fn, pass, err)
}

func (r *moduleRun) foldGlobals(m *fir.Module) error {
	if m.Globals.Len() == 0 {
		return nil
	}
	return passes.Guard(func() error {
		p := passes.ConstantPropagation{Reporter: r.reporter(""), Tracer: r.tracer, Span: r.parent}
		fr := p.Run(m.Globals)
		m.Globals = fr.Block
		r.count(Stats{Folded: fr.Folded, Unfolded: fr.Unfolded})
		return nil
	})
}

// extractLoops moves every top-level loop of f into its own function and
// returns the rewritten body with the new functions in loop order.
func (r *moduleRun) extractLoops(f *fir.FunDef, vt symbols.VarTypes, taken map[string]bool, span uint64) (*fir.Block, []*fir.FunDef) {
	if f.Body.Len() == 0 {
		return f.Body, nil
	}
	receiver := r.cfg.Extract.WantReceiver(f.Method)
	body := &fir.Block{Stmts: make([]*fir.Stmt, 0, len(f.Body.Stmts))}
	var fns []*fir.FunDef
	n := 0
	for _, s := range f.Body.Stmts {
		if s == nil || s.Kind != fir.StmtForLoop {
			body.Push(s)
			continue
		}
		name := fmt.Sprintf("%s%s%d", f.Name, r.cfg.Extract.Suffix, n)
		for taken[name] {
			n++
			name = fmt.Sprintf("%s%s%d", f.Name, r.cfg.Extract.Suffix, n)
		}
		n++
		x := passes.ExtractLoop(name, fir.NewBlock(s), receiver, vt)
		body.Push(x.Call)
		fns = append(fns, x.Func)

		msg := "loop moved to " + name
		if len(x.Captured) > 0 {
			msg += " (captures " + strings.Join(x.Captured, ", ") + ")"
		}
		diag.ReportInfo(r.reporter(f.Name), diag.OptLoopExtracted, diag.Location{}, msg).Emit()
		trace.Point(r.tracer, trace.ScopeNode, "extract", name, span)
	}
	return body, fns
}

// unjoin splits an errors.Join result.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
