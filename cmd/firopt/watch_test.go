package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestIsWatchedChange(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write input", fsnotify.Event{Name: "dsp/osc.firb", Op: fsnotify.Write}, true},
		{"create json input", fsnotify.Event{Name: "dsp/osc.fir.json", Op: fsnotify.Create}, true},
		{"write and chmod", fsnotify.Event{Name: "osc.firb", Op: fsnotify.Write | fsnotify.Chmod}, true},
		{"own output", fsnotify.Event{Name: "dsp/osc.opt.firb", Op: fsnotify.Write}, false},
		{"own json output", fsnotify.Event{Name: "osc.opt.fir.json", Op: fsnotify.Create}, false},
		{"text dump", fsnotify.Event{Name: "osc.fir.txt", Op: fsnotify.Write}, false},
		{"remove", fsnotify.Event{Name: "osc.firb", Op: fsnotify.Remove}, false},
		{"chmod only", fsnotify.Event{Name: "osc.firb", Op: fsnotify.Chmod}, false},
		{"unrelated file", fsnotify.Event{Name: "notes.md", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWatchedChange(tt.ev); got != tt.want {
				t.Errorf("isWatchedChange(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestWatchDirs(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a/b", ".git/objects", "c"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	file := filepath.Join(root, "c", "osc.firb")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := watchDirs([]string{root, file})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b"), filepath.Join(root, "c")}
	if !slices.Equal(got, want) {
		t.Errorf("watchDirs = %v, want %v", got, want)
	}

	if _, err := watchDirs([]string{filepath.Join(root, "missing")}); err == nil {
		t.Error("missing path accepted")
	}
}

func TestWatcherReportsInputWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"osc.opt.firb", "osc.firb"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{0x80}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events:
			if !isWatchedChange(ev) {
				continue
			}
			if filepath.Base(ev.Name) != "osc.firb" {
				t.Fatalf("watched change on %s", ev.Name)
			}
			return
		case err := <-w.Errors:
			t.Fatal(err)
		case <-deadline:
			t.Fatal("no change reported for osc.firb")
		}
	}
}
