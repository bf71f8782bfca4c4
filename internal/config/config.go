// Package config loads firopt.toml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"
)

// FileName is the configuration file searched for upward from the working
// directory.
const FileName = "firopt.toml"

// Receiver decides whether extracted loops get the state handle parameter.
type Receiver string

const (
	ReceiverAuto   Receiver = "auto" // only loops of per-instance methods
	ReceiverAlways Receiver = "always"
	ReceiverNever  Receiver = "never"
)

// Config is the full optimiser configuration.
type Config struct {
	Passes  Passes  `toml:"passes"`
	Extract Extract `toml:"extract"`
	Trace   Trace   `toml:"trace"`
	Driver  Driver  `toml:"driver"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type Passes struct {
	Fold         bool `toml:"fold"`
	ExtractLoops bool `toml:"extract_loops"`
	Ranges       bool `toml:"ranges"`
}

type Extract struct {
	Receiver Receiver `toml:"receiver"`
	Suffix   string   `toml:"suffix"`
}

type Trace struct {
	Level     string `toml:"level"`
	Output    string `toml:"output"`
	Mode      string `toml:"mode"`
	Format    string `toml:"format"`
	Heartbeat string `toml:"heartbeat"`
}

type Driver struct {
	Jobs           int    `toml:"jobs"` // 0 means GOMAXPROCS
	Cache          bool   `toml:"cache"`
	CacheDir       string `toml:"cache_dir"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Passes:  Passes{Fold: true, ExtractLoops: true, Ranges: true},
		Extract: Extract{Receiver: ReceiverAuto, Suffix: "_loop"},
		Trace:   Trace{Level: "off", Output: "-", Mode: "stream", Format: "auto"},
		Driver:  Driver{Cache: true, MaxDiagnostics: 100},
	}
}

// Find searches startDir and its parents for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// LoadFile reads path over the defaults. Keys absent from the file keep
// their default value.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("extract", "suffix") && strings.TrimSpace(cfg.Extract.Suffix) == "" {
		return Config{}, fmt.Errorf("%s: [extract].suffix must not be empty", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Load finds and reads the configuration for startDir, falling back to the
// defaults, then applies environment overrides.
func Load(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if ok {
		if cfg, err = LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// Environment variables overriding the file.
const (
	EnvJobs     = "FIROPT_JOBS"
	EnvTrace    = "FIROPT_TRACE"
	EnvNoCache  = "FIROPT_NO_CACHE"
	EnvCacheDir = "FIROPT_CACHE_DIR"
)

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	c.Driver.Jobs = env.Int(EnvJobs, c.Driver.Jobs)
	if env.Has(EnvTrace) {
		c.Trace.Level = env.Str(EnvTrace)
	}
	if env.Bool(EnvNoCache) {
		c.Driver.Cache = false
	}
	c.Driver.CacheDir = env.Str(EnvCacheDir, c.Driver.CacheDir)
}

// Validate checks field values.
func (c Config) Validate() error {
	var errs []error
	switch c.Extract.Receiver {
	case ReceiverAuto, ReceiverAlways, ReceiverNever:
	default:
		errs = append(errs, fmt.Errorf("[extract].receiver: invalid value %q (expected: auto|always|never)", c.Extract.Receiver))
	}
	if c.Driver.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[driver].jobs: must not be negative, got %d", c.Driver.Jobs))
	}
	if c.Driver.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("[driver].max_diagnostics: must not be negative, got %d", c.Driver.MaxDiagnostics))
	}
	return errors.Join(errs...)
}

// WantReceiver resolves the receiver policy for a function.
func (e Extract) WantReceiver(method bool) bool {
	switch e.Receiver {
	case ReceiverAlways:
		return true
	case ReceiverNever:
		return false
	}
	return method
}

// Write saves c as TOML to path, refusing to overwrite an existing file.
func Write(path string, c Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
