package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"firopt/internal/config"
	"firopt/internal/diag"
	"firopt/internal/driver"
	"firopt/internal/irfile"
)

var optCmd = &cobra.Command{
	Use:   "opt [flags] <file|directory>...",
	Short: "Optimise FIR files",
	Long: `Optimise FIR files. Directories are searched recursively for .firb and
.fir.json files. Each input is written as <name>.opt.<ext>, next to the input
or in --out.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpt,
}

func init() {
	addPassFlags(optCmd)
	addOutputFlags(optCmd, uiModeAuto)
	optCmd.Flags().Bool("clear-cache", false, "drop the output cache before running")
}

// addOutputFlags registers the flags shared by the commands that write
// optimised files.
func addOutputFlags(cmd *cobra.Command, ui uiMode) {
	cmd.Flags().StringP("out", "o", "", "output directory (default: next to each input)")
	cmd.Flags().String("emit", "msgpack", "output encoding (msgpack|json|text)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	cmd.Flags().String("ui", string(ui), "progress UI (auto|on|off)")
	cmd.Flags().Bool("no-cache", false, "disable the output cache")
	cmd.Flags().BoolP("verbose", "v", false, "show informational diagnostics")
}

// addPassFlags registers the flags that select and tune passes.
func addPassFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-fold", false, "skip constant propagation")
	cmd.Flags().Bool("no-extract", false, "skip loop extraction")
	cmd.Flags().Bool("no-ranges", false, "skip range inference")
	cmd.Flags().String("receiver", "", "pass the state object to extracted loops (auto|always|never)")
}

func runOpt(cmd *cobra.Command, args []string) error {
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
	defer dumpTraceOnPanic(cmd)

	if drop, _ := cmd.Flags().GetBool("clear-cache"); drop {
		cache, err := driver.OpenDiskCache(cfg.Driver.CacheDir)
		if err != nil {
			return err
		}
		if err := cache.DropAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	files, err := driver.ListIRFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no IR files found")
	}
	report, err := optimize(cmd, cfg, files)
	if report != nil {
		renderReport(cmd, report)
	}
	if err != nil {
		return err
	}
	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(files))
	}
	return nil
}

// optimize runs the driver over files, behind the progress UI when enabled.
func optimize(cmd *cobra.Command, cfg config.Config, files []string) (*driver.Report, error) {
	emitFlag, _ := cmd.Flags().GetString("emit")
	emit, err := irfile.ParseEncoding(emitFlag)
	if err != nil {
		return nil, err
	}
	outDir, _ := cmd.Flags().GetString("out")
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return nil, err
	}
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	opts := driver.Options{
		Config:    cfg,
		OutDir:    outDir,
		Emit:      emit,
		Timings:   timings,
		CrashDump: cmd.ErrOrStderr(),
	}
	if !quiet && shouldUseTUI(mode) {
		return runOptWithUI(cmd.Context(), "optimising", files, opts)
	}
	return driver.OptimizeFiles(cmd.Context(), files, opts)
}

func renderReport(cmd *cobra.Command, report *driver.Report) {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	verbose := false
	if cmd.Flags().Lookup("verbose") != nil {
		verbose, _ = cmd.Flags().GetBool("verbose")
	}
	minSev := diag.SevWarning
	switch {
	case quiet:
		minSev = diag.SevError
	case verbose:
		minSev = diag.SevInfo
	}

	errOut := cmd.ErrOrStderr()
	printDiagnostics(errOut, report.Bag, minSev)
	for _, f := range report.Files {
		printDiagnostics(errOut, f.Bag, minSev)
		if f.Err != nil && f.Bag.Len() == 0 {
			fmt.Fprintf(errOut, "%s: %v\n", f.Path, f.Err)
		}
	}
	if quiet {
		return
	}
	out := cmd.OutOrStdout()
	printSummary(out, report)
	if timings, _ := cmd.Root().PersistentFlags().GetBool("timings"); timings {
		printTimings(out, "total", report.Timing)
		for _, f := range report.Files {
			printTimings(out, f.Path, f.Timing)
		}
	}
}

