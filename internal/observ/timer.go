// Package observ accumulates pass timings for a run.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is the accumulated time spent in one named phase. A phase that runs
// once per function (a pass) accumulates every run.
type Phase struct {
	Name  string
	Dur   time.Duration
	Runs  int
	Notes []string
}

// Timer tracks named phases. It is safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	index  map[string]int
	start  time.Time
}

func NewTimer() *Timer {
	return &Timer{index: make(map[string]int), start: time.Now()}
}

// Token identifies one running phase.
type Token struct {
	name  string
	start time.Time
}

// Begin starts a run of phase name.
func (t *Timer) Begin(name string) Token {
	return Token{name: name, start: time.Now()}
}

// End adds the run started by tok to its phase.
func (t *Timer) End(tok Token, note string) time.Duration {
	d := time.Since(tok.start)
	t.Add(tok.name, d, note)
	return d
}

// Add records d for phase name.
func (t *Timer) Add(name string, d time.Duration, note string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[name]
	if !ok {
		i = len(t.phases)
		t.index[name] = i
		t.phases = append(t.phases, Phase{Name: name})
	}
	p := &t.phases[i]
	p.Dur += d
	p.Runs++
	if note != "" {
		p.Notes = append(p.Notes, note)
	}
}

// Summary renders the phases as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms  x%d", p.Name, p.DurationMS, p.Runs)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "wall", report.WallMS)
	return sb.String()
}

// PhaseReport is the serialisable form of a Phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Runs       int     `json:"runs"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the timer. Phases overlap when passes run in parallel,
// so the sum of phases may exceed WallMS.
type Report struct {
	WallMS float64       `json:"wall_ms"`
	Phases []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	report := Report{
		WallMS: durationToMillis(time.Since(t.start)),
		Phases: make([]PhaseReport, len(t.phases)),
	}
	for i, p := range t.phases {
		report.Phases[i] = PhaseReport{
			Name:       p.Name,
			DurationMS: durationToMillis(p.Dur),
			Runs:       p.Runs,
			Note:       strings.Join(p.Notes, "; "),
		}
	}
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
