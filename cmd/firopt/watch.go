package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"firopt/internal/driver"
	"firopt/internal/irfile"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file|directory>...",
	Short: "Optimise FIR files again whenever they change",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWatch,
}

func init() {
	addPassFlags(watchCmd)
	addOutputFlags(watchCmd, uiModeOff)
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond, "wait this long after the last change")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	defer cleanup()
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	dirs, err := watchDirs(args)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	rerun := func(files []string) {
		report, err := optimize(cmd, cfg, files)
		if report != nil {
			renderReport(cmd, report)
		}
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	}

	files, err := driver.ListIRFiles(args)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		rerun(files)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "watching %d directories (ctrl+c to stop)\n", len(dirs))

	debounce, _ := cmd.Flags().GetDuration("debounce")
	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isWatchedChange(ev) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				if _, err := os.Stat(p); err == nil {
					changed = append(changed, p)
				}
			}
			clear(pending)
			slices.Sort(changed)
			if len(changed) > 0 {
				rerun(changed)
			}
		}
	}
}

// isWatchedChange keeps writes and creations of inputs, ignoring outputs.
func isWatchedChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	return irfile.IsIRPath(ev.Name) && !driver.IsOutput(ev.Name)
}

// watchDirs returns every directory to watch: the directories named in
// paths with their subdirectories, and the parents of named files.
func watchDirs(paths []string) ([]string, error) {
	var dirs []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			dirs = append(dirs, filepath.Dir(p))
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && len(d.Name()) > 1 && d.Name()[0] == '.' {
					return filepath.SkipDir
				}
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

