package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"firopt/internal/diag"
	"firopt/internal/irfile"
	"firopt/internal/observ"
	"firopt/internal/pipeline"
	"firopt/internal/trace"
)

// outputMarker separates an optimised file's stem from its extension.
const outputMarker = ".opt"

// ListIRFiles expands paths into the IR files they name. Directories are
// walked recursively; outputs of a previous run are skipped. The result is
// sorted and free of duplicates.
func ListIRFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if irfile.IsIRPath(path) && !IsOutput(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// IsOutput reports a file written by a previous run.
func IsOutput(path string) bool {
	return strings.HasSuffix(irfile.Stem(path), outputMarker)
}

// OutputPath is where the optimised form of in is written: next to it, or
// in outDir when set.
func OutputPath(in, outDir string, enc irfile.Encoding) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, irfile.Stem(filepath.Base(in))+outputMarker+enc.Ext())
}

// Report is the result of OptimizeFiles.
type Report struct {
	Files []FileResult
	// Bag holds diagnostics that belong to no single file.
	Bag    *diag.Bag
	Timing observ.Report
}

// Failed counts files that did not produce output.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Cached counts files restored from the cache.
func (r *Report) Cached() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}

// Stats sums the stats of every file.
func (r *Report) Stats() Stats {
	var s Stats
	for _, f := range r.Files {
		s.add(f.Stats)
	}
	return s
}

// OptimizeFiles optimises files in parallel. A file that fails is recorded
// in its FileResult and does not stop the others; the returned error is
// only set when ctx is cancelled.
func OptimizeFiles(ctx context.Context, files []string, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	report := &Report{
		Files: make([]FileResult, len(files)),
		Bag:   diag.NewBag(opts.Config.Driver.MaxDiagnostics),
	}
	timer := observ.NewTimer()

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "opt", trace.CurrentSpan(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	var cache *DiskCache
	if opts.Config.Driver.Cache {
		c, err := OpenDiskCache(opts.Config.Driver.CacheDir)
		if err != nil {
			diag.ReportWarning(diag.BagReporter{Bag: report.Bag}, diag.IOCache, diag.Location{}, "cache disabled: "+err.Error()).Emit()
		} else {
			cache = c
		}
	}

	if len(files) == 0 {
		return report, nil
	}
	jobs := opts.Config.Driver.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	for _, f := range files {
		opts.Sink.OnEvent(pipeline.Event{File: f, Status: pipeline.StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			tok := timer.Begin("file")
			// index i is unique per goroutine
			report.Files[i] = optimizeFile(gctx, path, opts, cache)
			timer.End(tok, "")
			return nil
		})
	}
	err := g.Wait()
	report.Timing = timer.Report()
	span.WithExtra("files", strconv.Itoa(len(files)))
	return report, err
}
