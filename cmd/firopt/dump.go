package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firopt/internal/fir"
	"firopt/internal/irfile"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file>",
	Short: "Print an IR file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("emit", "text", "output encoding (text|json|msgpack)")
	dumpCmd.Flags().String("func", "", "print only this function")
	dumpCmd.Flags().Bool("producer", false, "print the producer and format version first")
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := irfile.Read(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if name, _ := cmd.Flags().GetString("func"); name != "" {
		fn := f.Module.Func(name)
		if fn == nil {
			return fmt.Errorf("%s: no function %q", args[0], name)
		}
		_, err := fmt.Fprint(out, fir.FormatFun(fn))
		return err
	}

	emitFlag, _ := cmd.Flags().GetString("emit")
	enc, err := irfile.ParseEncoding(emitFlag)
	if err != nil {
		return err
	}
	if enc == irfile.EncodingMsgpack && out == os.Stdout && isTerminal(os.Stdout) {
		return errors.New("refusing to write msgpack to a terminal")
	}
	if show, _ := cmd.Flags().GetBool("producer"); show && enc == irfile.EncodingText {
		fmt.Fprintf(out, "// format %s, produced by %s\n", f.Format, valueOrUnknown(f.Producer))
	}
	return irfile.Encode(out, f, enc)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
