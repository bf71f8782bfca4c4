package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"firopt/internal/diag"
	"firopt/internal/driver"
	"firopt/internal/observ"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	locColor   = color.New(color.Bold)
	noteColor  = color.New(color.Faint)
)

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warnColor
	}
	return infoColor
}

// printDiagnostics writes the diagnostics of bag at or above minSev:
//
//	<file>:<func>: <SEV> <CODE>: <message>
//	    note: <location>: <message>
func printDiagnostics(w io.Writer, bag *diag.Bag, minSev diag.Severity) {
	if bag == nil {
		return
	}
	bag.Sort()
	bag.Dedup()
	for _, d := range bag.Items() {
		if d.Severity < minSev {
			continue
		}
		var sb strings.Builder
		if loc := d.Loc.String(); loc != "" {
			sb.WriteString(locColor.Sprint(loc))
			sb.WriteString(": ")
		}
		sb.WriteString(severityColor(d.Severity).Sprintf("%s %s", d.Severity, d.Code.ID()))
		sb.WriteString(": ")
		sb.WriteString(d.Message)
		fmt.Fprintln(w, sb.String())
		for _, n := range d.Notes {
			prefix := "note"
			if loc := n.Loc.String(); loc != "" {
				prefix += ": " + loc
			}
			fmt.Fprintf(w, "    %s: %s\n", noteColor.Sprint(prefix), n.Msg)
		}
	}
}

// printSummary writes one line describing the run.
func printSummary(w io.Writer, r *driver.Report) {
	p := message.NewPrinter(language.English)
	s := r.Stats()
	p.Fprintf(w, "%d files: %d optimised, %d cached, %d failed\n",
		len(r.Files), len(r.Files)-r.Failed()-r.Cached(), r.Cached(), r.Failed())
	p.Fprintf(w, "%d functions, %d expressions folded, %d assignments removed, %d loops extracted\n",
		s.Funcs, s.Folded, s.Elided, s.Extracted)
}

func printTimings(w io.Writer, label string, rep observ.Report) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "%s: %.1f ms\n", label, rep.WallMS)
	for _, ph := range rep.Phases {
		p.Fprintf(w, "  %-8s %8.2f ms  %d runs\n", ph.Name, ph.DurationMS, ph.Runs)
	}
}
