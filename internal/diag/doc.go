// Package diag defines the diagnostic model shared by the optimisation
// pipeline.
//
// # Data model
//
// Diagnostic is the central record: a Severity, a numeric Code with a stable
// string form, a short Message, the Location it refers to (file, function and
// an optional node path) and optional Notes.
//
// # Emitting diagnostics
//
// Passes report through a Reporter so they stay independent of storage.
// BagReporter collects into a Bag, which supports sorting, deduplication and
// merging; ReportBuilder chains notes before emitting exactly once.
//
// Internal invariant violations are not diagnostics: they abort the pass (see
// package passes). Their codes live here so the driver can report the
// aborted file with the same numbering.
package diag
