package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firopt/internal/config"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "[extract]\nreceiver = \"always\"\n\n[driver]\njobs = 3\n")
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extract.Receiver != config.ReceiverAlways || cfg.Driver.Jobs != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Extract.Suffix != "_loop" || !cfg.Passes.Fold || !cfg.Driver.Cache {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"[extract]\nreceiver = \"sometimes\"\n", "[extract].receiver"},
		{"[extract]\nsuffix = \"\"\n", "suffix must not be empty"},
		{"[passes]\nunroll = true\n", "unknown keys: passes.unroll"},
		{"[driver\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		path := writeFile(t, t.TempDir(), tt.body)
		_, err := config.LoadFile(path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("LoadFile(%q) = %v, want error containing %q", tt.body, err, tt.want)
		}
	}
}

func TestFindSearchesParents(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "")
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := config.Find(sub)
	if err != nil || !ok {
		t.Fatalf("Find = %q, %v, %v", got, ok, err)
	}
	if got != want {
		t.Errorf("Find = %q, want %q", got, want)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvJobs, "7")
	t.Setenv(config.EnvNoCache, "true")
	t.Setenv(config.EnvTrace, "detail")
	t.Setenv(config.EnvCacheDir, "/tmp/firopt-cache")

	cfg, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver.Jobs != 7 || cfg.Driver.Cache || cfg.Trace.Level != "detail" || cfg.Driver.CacheDir != "/tmp/firopt-cache" {
		t.Errorf("env not applied: %+v", cfg.Driver)
	}
}

func TestWantReceiver(t *testing.T) {
	tests := []struct {
		policy config.Receiver
		method bool
		want   bool
	}{
		{config.ReceiverAuto, true, true},
		{config.ReceiverAuto, false, false},
		{config.ReceiverAlways, false, true},
		{config.ReceiverNever, true, false},
	}
	for _, tt := range tests {
		e := config.Extract{Receiver: tt.policy}
		if got := e.WantReceiver(tt.method); got != tt.want {
			t.Errorf("%s/%v = %v", tt.policy, tt.method, got)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.FileName)
	if err := config.Write(path, config.Default()); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extract != config.Default().Extract {
		t.Errorf("extract = %+v", cfg.Extract)
	}
	if err := config.Write(path, config.Default()); err == nil {
		t.Error("Write overwrote an existing file")
	}
}
