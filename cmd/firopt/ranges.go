package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"firopt/internal/diag"
	"firopt/internal/driver"
	"firopt/internal/irfile"
	"firopt/internal/passes"
)

var rangesCmd = &cobra.Command{
	Use:   "ranges [flags] <file>",
	Short: "Report the value range of every variable",
	Long: `Report the interval, most significant bit and least significant bit of
every variable of every function, after constant propagation unless --no-fold
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRanges,
}

func init() {
	rangesCmd.Flags().Bool("no-fold", false, "analyse the functions as written")
	rangesCmd.Flags().String("func", "", "report only this function")
	rangesCmd.Flags().String("format", "table", "output format (table|json)")
}

func runRanges(cmd *cobra.Command, args []string) error {
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

	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return errInvalidFlag("--format", format, "table|json")
	}
	f, err := irfile.Read(args[0])
	if err != nil {
		return err
	}

	cfg.Passes.ExtractLoops = false
	cfg.Passes.Ranges = true
	bag := diag.NewBag(cfg.Driver.MaxDiagnostics)
	res, err := driver.OptimizeModule(cmd.Context(), f.Module, driver.ModuleOptions{Config: cfg, File: args[0], Bag: bag})
	printDiagnostics(cmd.ErrOrStderr(), bag, diag.SevWarning)
	if err != nil {
		return err
	}

	reports := res.Ranges
	if name, _ := cmd.Flags().GetString("func"); name != "" {
		reports = nil
		for _, r := range res.Ranges {
			if r.Func == name {
				reports = append(reports, r)
			}
		}
		if len(reports) == 0 {
			return fmt.Errorf("%s: no function %q", args[0], name)
		}
	}
	if format == "json" {
		return writeRangesJSON(cmd.OutOrStdout(), reports)
	}
	writeRangeTable(cmd.OutOrStdout(), reports)
	return nil
}

var rangeHeader = []string{"var", "access", "type", "range", "msb", "lsb"}

// writeRangeTable prints one aligned table per function.
func writeRangeTable(w io.Writer, reports []passes.RangeReport) {
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", r.Func)
		rows := [][]string{rangeHeader}
		for _, v := range r.Vars {
			rows = append(rows, []string{
				v.Name, v.Access.String(), v.Type.String(), v.Range.String(),
				strconv.Itoa(v.MSB()), strconv.Itoa(v.LSB()),
			})
		}
		widths := make([]int, len(rangeHeader))
		for _, row := range rows {
			for c, cell := range row {
				widths[c] = max(widths[c], runewidth.StringWidth(cell))
			}
		}
		for _, row := range rows {
			fmt.Fprint(w, " ")
			for c, cell := range row {
				if c == len(row)-1 {
					fmt.Fprintf(w, " %s\n", cell)
					continue
				}
				fmt.Fprintf(w, " %s", runewidth.FillRight(cell, widths[c]))
			}
		}
	}
}

type rangeVarJSON struct {
	Name   string `json:"name"`
	Access string `json:"access"`
	Type   string `json:"type"`
	Range  string `json:"range"`
	MSB    int    `json:"msb"`
	LSB    int    `json:"lsb"`
}

type rangeFuncJSON struct {
	Func string         `json:"func"`
	Vars []rangeVarJSON `json:"vars"`
}

// writeRangesJSON renders bounds as strings since JSON has no infinity.
func writeRangesJSON(w io.Writer, reports []passes.RangeReport) error {
	out := make([]rangeFuncJSON, 0, len(reports))
	for _, r := range reports {
		fn := rangeFuncJSON{Func: r.Func, Vars: make([]rangeVarJSON, 0, len(r.Vars))}
		for _, v := range r.Vars {
			fn.Vars = append(fn.Vars, rangeVarJSON{
				Name:   v.Name,
				Access: v.Access.String(),
				Type:   v.Type.String(),
				Range:  v.Range.String(),
				MSB:    v.MSB(),
				LSB:    v.LSB(),
			})
		}
		out = append(out, fn)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
