// Package version holds build information for the firopt CLI.
// The variables can be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
	dimColor   = color.New(color.Faint)
)

// Banner renders "firopt X.Y.Z (commit, date)", colouring the version parts
// unless color.NoColor is set.
func Banner() string {
	var sb strings.Builder
	sb.WriteString("firopt ")
	core, suffix, _ := strings.Cut(Version, "-")
	parts := strings.SplitN(core, ".", 3)
	paint := []*color.Color{majorColor, minorColor, patchColor}
	for i, p := range parts {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(paint[i].Sprint(p))
	}
	if suffix != "" {
		sb.WriteString("-" + suffix)
	}
	var meta []string
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		meta = append(meta, commit)
	}
	if BuildDate != "" {
		meta = append(meta, BuildDate)
	}
	if len(meta) > 0 {
		sb.WriteString(" " + dimColor.Sprint("("+strings.Join(meta, ", ")+")"))
	}
	return sb.String()
}
