// Package driver runs the optimisation pipeline over IR files: decode,
// fold constants, extract loops, infer ranges, encode. Files and the
// functions inside each file are processed in parallel.
package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"firopt/internal/config"
	"firopt/internal/diag"
	"firopt/internal/irfile"
	"firopt/internal/observ"
	"firopt/internal/passes"
	"firopt/internal/pipeline"
	"firopt/internal/trace"
	"firopt/internal/version"
)

// Options configures OptimizeFiles.
type Options struct {
	Config config.Config
	// OutDir receives outputs; empty writes next to each input.
	OutDir string
	Emit   irfile.Encoding
	// Sink receives progress events. May be nil.
	Sink pipeline.ProgressSink
	// Timings appends a timing diagnostic to every file.
	Timings bool
	// CrashDump receives the trace ring buffer when a file hits an
	// invariant violation. May be nil.
	CrashDump io.Writer
}

func (o Options) withDefaults() Options {
	if o.Sink == nil {
		o.Sink = pipeline.NopSink{}
	}
	return o
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path   string
	Output string
	Cached bool
	Bag    *diag.Bag
	Stats  Stats
	Ranges []passes.RangeReport
	Timing observ.Report
	// Err is set when no output was written.
	Err error
}

// fileRun carries one file through the stages.
type fileRun struct {
	opts  Options
	res   *FileResult
	timer *observ.Timer
	rep   diag.Reporter
	stage pipeline.Stage
	start time.Time
}

func (f *fileRun) enter(stage pipeline.Stage) {
	f.stage = stage
	f.opts.Sink.OnEvent(pipeline.Event{File: f.res.Path, Stage: stage, Status: pipeline.StatusWorking, Elapsed: time.Since(f.start)})
}

func (f *fileRun) fail(code diag.Code, err error) FileResult {
	if code != diag.UnknownCode {
		diag.ReportError(f.rep, code, diag.Location{}, err.Error()).Emit()
	}
	f.res.Err = err
	f.res.Timing = f.timer.Report()
	f.opts.Sink.OnEvent(pipeline.Event{File: f.res.Path, Stage: f.stage, Status: pipeline.StatusError, Err: err, Elapsed: time.Since(f.start)})
	return *f.res
}

func optimizeFile(ctx context.Context, path string, opts Options, cache *DiskCache) FileResult {
	cfg := opts.Config
	res := &FileResult{
		Path:   path,
		Output: OutputPath(path, opts.OutDir, opts.Emit),
		Bag:    diag.NewBag(cfg.Driver.MaxDiagnostics),
	}
	run := &fileRun{
		opts:  opts,
		res:   res,
		timer: observ.NewTimer(),
		rep:   diag.Scoped{Next: diag.BagReporter{Bag: res.Bag}, File: path},
		start: time.Now(),
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeFile, "file", trace.CurrentSpan(ctx)).WithExtra("path", path)
	ctx = trace.WithSpan(ctx, span)
	detail := ""
	defer func() { span.End(detail) }()

	run.enter(pipeline.StageLoad)
	tok := run.timer.Begin("load")
	data, err := os.ReadFile(path)
	if err != nil {
		detail = "error"
		return run.fail(diag.IORead, err)
	}

	key, keyErr := cacheKey(data, cfg, opts.Emit)
	if cache != nil && keyErr == nil {
		entry, ok, err := cache.Get(key)
		switch {
		case err != nil:
			diag.ReportWarning(run.rep, diag.IOCache, diag.Location{}, "cache entry ignored: "+err.Error()).Emit()
		case ok:
			if err := irfile.WriteBytes(res.Output, entry.Output); err == nil {
				for i := range entry.Diagnostics {
					res.Bag.Add(&entry.Diagnostics[i])
				}
				res.Stats = entry.Stats
				res.Cached = true
				run.timer.End(tok, "cached")
				res.Timing = run.timer.Report()
				detail = "cached"
				opts.Sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageWrite, Status: pipeline.StatusCached, Elapsed: time.Since(run.start)})
				return *res
			}
		}
	}

	file, err := irfile.Decode(bytes.NewReader(data))
	run.timer.End(tok, "")
	if err != nil {
		detail = "error"
		code := diag.IODecode
		if errors.Is(err, irfile.ErrFormatVersion) {
			code = diag.IOFormatVersion
		}
		return run.fail(code, err)
	}

	mr, err := OptimizeModule(ctx, file.Module, ModuleOptions{
		Config: cfg,
		File:   path,
		Bag:    res.Bag,
		Timer:  run.timer,
		Stage:  run.enter,
	})
	if err != nil {
		detail = "error"
		if _, ok := passes.AsInvariant(err); ok {
			dumpRing(tracer, opts.CrashDump)
		}
		// already reported
		return run.fail(diag.UnknownCode, err)
	}
	res.Stats = mr.Stats
	res.Ranges = mr.Ranges

	run.enter(pipeline.StageWrite)
	tok = run.timer.Begin("write")
	out, err := irfile.Marshal(irfile.New(mr.Module, "firopt "+version.Version), opts.Emit)
	if err == nil {
		err = irfile.WriteBytes(res.Output, out)
	}
	run.timer.End(tok, res.Output)
	if err != nil {
		detail = "error"
		return run.fail(diag.IOWrite, err)
	}

	if cache != nil && keyErr == nil && !res.Bag.HasErrors() {
		entry := &cacheEntry{Output: out, Stats: res.Stats}
		for _, d := range res.Bag.Items() {
			entry.Diagnostics = append(entry.Diagnostics, *d)
		}
		if err := cache.Put(key, entry); err != nil {
			diag.ReportWarning(run.rep, diag.IOCache, diag.Location{}, "cache write failed: "+err.Error()).Emit()
		}
	}

	res.Timing = run.timer.Report()
	if opts.Timings {
		appendTimingDiagnostic(res.Bag, timingPayload{Kind: "file", Path: path, TotalMS: res.Timing.WallMS, Phases: res.Timing.Phases})
	}
	opts.Sink.OnEvent(pipeline.Event{File: path, Stage: pipeline.StageWrite, Status: pipeline.StatusDone, Elapsed: time.Since(run.start)})
	return *res
}

// dumpRing writes the recent trace history kept by a ring tracer.
func dumpRing(t trace.Tracer, w io.Writer) {
	if w == nil {
		return
	}
	if ring := trace.RingOf(t); ring != nil {
		_ = ring.Dump(w, trace.FormatText)
	}
}
