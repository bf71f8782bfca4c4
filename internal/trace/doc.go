// Package trace records what the optimiser does while it runs.
//
// Events are spans (begin/end pairs) and points. The driver opens one span
// per run and per file; every pass invocation opens a span below its file,
// and individual rewrites (a loop moved into a function, an operator left
// unfolded) are points at node scope.
//
//	ctx = trace.WithTracer(ctx, tr)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "constprop", parent)
//	defer span.End("")
//
// Verbosity is chosen with a Level; each level admits scopes up to a bound
// (phase: driver and file, detail: passes, debug: nodes).
package trace
