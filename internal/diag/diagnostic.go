package diag

import "strings"

// Location identifies the IR a diagnostic refers to.
type Location struct {
	File string
	Func string
	// Path is an optional node path inside Func, e.g. "stmt 3/for/body".
	Path string
}

func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.File, l.Func, l.Path} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ":")
}

type Note struct {
	Loc Location
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Loc      Location
	Notes    []Note
}
