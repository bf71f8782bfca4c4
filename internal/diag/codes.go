package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Internal invariant violations raised by the passes.
	IrLinkAddress     Code = 1001
	IrIntBinopFold    Code = 1002
	IrUnsupportedCast Code = 1003
	IrMissingSymbol   Code = 1004
	IrUnknownNode     Code = 1005
	IrInvalidModule   Code = 1006

	// Optimisation notes.
	OptUnfoldedOpcode    Code = 2001
	OptLoopExtracted     Code = 2002
	OptDomainWarning     Code = 2003
	OptSymbolConflict    Code = 2004
	OptFoldedDeclaration Code = 2005

	// Input/output.
	IORead          Code = 3001
	IODecode        Code = 3002
	IOFormatVersion Code = 3003
	IOWrite         Code = 3004
	IOCache         Code = 3005

	// Observability.
	ObsTimings Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	IrLinkAddress:        "link address reached a pass",
	IrIntBinopFold:       "integer constant folding is not supported",
	IrUnsupportedCast:    "cast to a type other than float or int32",
	IrMissingSymbol:      "captured variable has no declared type",
	IrUnknownNode:        "unknown IR node kind",
	IrInvalidModule:      "module failed validation",
	OptUnfoldedOpcode:    "operator left unfolded",
	OptLoopExtracted:     "loop extracted into a function",
	OptDomainWarning:     "value range leaves the function domain",
	OptSymbolConflict:    "variable declared with conflicting types",
	OptFoldedDeclaration: "declaration replaced by its constant value",
	IORead:               "cannot read input",
	IODecode:             "cannot decode IR file",
	IOFormatVersion:      "unsupported IR format version",
	IOWrite:              "cannot write output",
	IOCache:              "cache entry ignored",
	ObsTimings:           "pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("OPT%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
