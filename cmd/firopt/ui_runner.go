package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"firopt/internal/driver"
	"firopt/internal/pipeline"
	"firopt/internal/ui"
)

type optOutcome struct {
	report *driver.Report
	err    error
}

// runOptWithUI runs the driver behind the progress display. Quitting the
// display cancels the remaining files.
func runOptWithUI(ctx context.Context, title string, files []string, opts driver.Options) (*driver.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan optOutcome, 1)

	go func() {
		o := opts
		o.Sink = pipeline.ChannelSink{Ch: events}
		report, err := driver.OptimizeFiles(ctx, files, o)
		outcomeCh <- optOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	cancel()
	// the display may have quit before the driver finished sending
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
