package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firopt/internal/config"
)

func errInvalidFlag(name, value, expected string) error {
	return fmt.Errorf("invalid %s value %q (expected %s)", name, value, expected)
}

// loadConfig reads --config or the nearest firopt.toml, then applies the
// environment and the flags cmd defines.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	root := cmd.Root().PersistentFlags()
	path, err := root.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg config.Config
	if path != "" {
		cfg, err = config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg.ApplyEnv()
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, err
		}
		if cfg, err = config.Load(wd); err != nil {
			return config.Config{}, err
		}
	}

	if maxDiag, _ := root.GetInt("max-diagnostics"); maxDiag > 0 {
		cfg.Driver.MaxDiagnostics = maxDiag
	}
	flags := cmd.Flags()
	if flags.Lookup("jobs") != nil && flags.Changed("jobs") {
		cfg.Driver.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Lookup("no-cache") != nil {
		if off, _ := flags.GetBool("no-cache"); off {
			cfg.Driver.Cache = false
		}
	}
	if flags.Lookup("receiver") != nil && flags.Changed("receiver") {
		v, _ := flags.GetString("receiver")
		cfg.Extract.Receiver = config.Receiver(v)
	}
	for flag, field := range map[string]*bool{
		"no-fold":    &cfg.Passes.Fold,
		"no-extract": &cfg.Passes.ExtractLoops,
		"no-ranges":  &cfg.Passes.Ranges,
	} {
		if flags.Lookup(flag) == nil {
			continue
		}
		if off, _ := flags.GetBool(flag); off {
			*field = false
		}
	}

	for flag, field := range map[string]*string{
		"trace":        &cfg.Trace.Output,
		"trace-level":  &cfg.Trace.Level,
		"trace-mode":   &cfg.Trace.Mode,
		"trace-format": &cfg.Trace.Format,
	} {
		if v, _ := root.GetString(flag); v != "" {
			*field = v
		}
	}
	if d, _ := root.GetDuration("trace-heartbeat"); d > 0 {
		cfg.Trace.Heartbeat = d.String()
	}
	// a trace file without a level means the caller wants something in it
	if v, _ := root.GetString("trace"); v != "" && (cfg.Trace.Level == "" || cfg.Trace.Level == "off") {
		cfg.Trace.Level = "phase"
	}
	return cfg, cfg.Validate()
}

func parseHeartbeat(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid trace heartbeat %q: %w", s, err)
	}
	return d, nil
}
