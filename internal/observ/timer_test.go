package observ_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"firopt/internal/observ"
)

func TestTimerAccumulatesRuns(t *testing.T) {
	tm := observ.NewTimer()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("constprop", time.Millisecond, "")
		}()
	}
	wg.Wait()
	tm.Add("extract", 2*time.Millisecond, "3 loops")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if p := rep.Phases[0]; p.Name != "constprop" || p.Runs != 4 || p.DurationMS != 4 {
		t.Errorf("constprop = %+v", p)
	}
	if !strings.Contains(tm.Summary(), "// 3 loops") {
		t.Errorf("summary:\n%s", tm.Summary())
	}
}

func TestTimerToken(t *testing.T) {
	tm := observ.NewTimer()
	tok := tm.Begin("load")
	if d := tm.End(tok, ""); d < 0 {
		t.Errorf("negative duration %v", d)
	}
	if rep := tm.Report(); rep.Phases[0].Runs != 1 {
		t.Errorf("runs = %d", rep.Phases[0].Runs)
	}
}
