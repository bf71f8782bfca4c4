package pipeline_test

import (
	"testing"

	"firopt/internal/pipeline"
)

func TestChannelSinkForwards(t *testing.T) {
	ch := make(chan pipeline.Event, 1)
	var sink pipeline.ProgressSink = pipeline.ChannelSink{Ch: ch}
	sink.OnEvent(pipeline.Event{File: "a.firb", Stage: pipeline.StageFold, Status: pipeline.StatusWorking})
	if ev := <-ch; ev.File != "a.firb" || ev.Stage != pipeline.StageFold {
		t.Errorf("got %+v", ev)
	}
	pipeline.ChannelSink{}.OnEvent(pipeline.Event{})
}

func TestStatusFinished(t *testing.T) {
	for _, s := range []pipeline.Status{pipeline.StatusDone, pipeline.StatusCached, pipeline.StatusError} {
		if !s.Finished() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if pipeline.StatusWorking.Finished() {
		t.Error("working is not terminal")
	}
}
