package fir

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DumpOptions configures module dumping.
type DumpOptions struct {
	// Indent is the per-level indentation; two spaces when empty.
	Indent string
}

// DumpModule writes a human-readable representation of m.
func DumpModule(w io.Writer, m *Module, opts DumpOptions) error {
	if w == nil || m == nil {
		return nil
	}
	p := newPrinter(opts)
	fmt.Fprintf(&p.b, "module %s\n", m.Name)
	if m.Globals.Len() > 0 {
		p.b.WriteString("\nglobals:\n")
		p.depth++
		p.block(m.Globals)
		p.depth--
	}
	for _, f := range m.Funcs {
		p.b.WriteString("\n")
		p.fun(f)
	}
	_, err := io.WriteString(w, p.b.String())
	return err
}

// FormatBlock renders b one statement per line.
func FormatBlock(b *Block) string {
	p := newPrinter(DumpOptions{})
	p.block(b)
	return p.b.String()
}

// FormatFun renders a function definition.
func FormatFun(f *FunDef) string {
	p := newPrinter(DumpOptions{})
	p.fun(f)
	return p.b.String()
}

// FormatStmt renders a single statement.
func FormatStmt(s *Stmt) string {
	p := newPrinter(DumpOptions{})
	p.stmt(s)
	return strings.TrimSuffix(p.b.String(), "\n")
}

// FormatValue renders an expression.
func FormatValue(v *Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

// FormatAddress renders an address as access.name[index].
func FormatAddress(a Address) string {
	var b strings.Builder
	writeAddr(&b, a)
	return b.String()
}

type printer struct {
	b      strings.Builder
	indent string
	depth  int
}

func newPrinter(opts DumpOptions) *printer {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	return &printer{indent: indent}
}

func (p *printer) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat(p.indent, p.depth))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) fun(f *FunDef) {
	if f == nil {
		p.line("<nil fun>")
		return
	}
	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = prm.Name + ": " + prm.Type.String()
	}
	kw := "fn"
	if f.Method {
		kw = "method"
	}
	p.line("%s %s(%s) -> %s {", kw, f.Name, strings.Join(params, ", "), f.Result)
	p.depth++
	p.block(f.Body)
	p.depth--
	p.line("}")
}

func (p *printer) block(b *Block) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		p.stmt(s)
	}
}

func (p *printer) stmt(s *Stmt) {
	if s == nil {
		p.line("<nil stmt>")
		return
	}
	switch s.Kind {
	case StmtDeclareVar:
		d := s.DeclareVar
		if d.Value == nil {
			p.line("decl %s %s;", d.Type, FormatAddress(d.Addr))
		} else {
			p.line("decl %s %s = %s;", d.Type, FormatAddress(d.Addr), FormatValue(d.Value))
		}
	case StmtStore:
		p.line("%s = %s;", FormatAddress(s.Store.Addr), FormatValue(s.Store.Value))
	case StmtDeclareFun:
		p.fun(s.DeclareFun)
	case StmtDrop:
		if s.Drop.Value == nil {
			p.line("nop;")
		} else {
			p.line("%s;", FormatValue(s.Drop.Value))
		}
	case StmtReturn:
		if s.Return.Value == nil {
			p.line("return;")
		} else {
			p.line("return %s;", FormatValue(s.Return.Value))
		}
	case StmtBlock:
		p.line("{")
		p.depth++
		p.block(s.Block)
		p.depth--
		p.line("}")
	case StmtForLoop:
		l := s.ForLoop
		p.line("for (%s; %s; %s) {", inline(l.Init), FormatValue(l.End), inline(l.Increment))
		p.depth++
		p.block(l.Body)
		p.depth--
		p.line("}")
	case StmtIf:
		p.line("if (%s) {", FormatValue(s.If.Cond))
		p.depth++
		p.block(s.If.Then)
		p.depth--
		if s.If.Else != nil {
			p.line("} else {")
			p.depth++
			p.block(s.If.Else)
			p.depth--
		}
		p.line("}")
	default:
		p.line("<stmt %s>", s.Kind)
	}
}

// inline renders a loop header statement without the trailing semicolon.
func inline(s *Stmt) string {
	if s == nil {
		return ""
	}
	return strings.TrimSuffix(FormatStmt(s), ";")
}

func writeAddr(b *strings.Builder, a Address) {
	b.WriteString(a.Access.String())
	b.WriteByte('.')
	b.WriteString(a.Name)
	if a.Index != nil {
		b.WriteByte('[')
		writeValue(b, a.Index)
		b.WriteByte(']')
	}
}

func writeValue(b *strings.Builder, v *Value) {
	if v == nil {
		b.WriteString("<nil>")
		return
	}
	switch v.Kind {
	case ValueLoad:
		writeAddr(b, v.Load.Addr)
	case ValueFloat:
		b.WriteString(FormatFloat(v.Float))
	case ValueInt32:
		b.WriteString(strconv.FormatInt(int64(v.Int32), 10))
	case ValueBinop:
		b.WriteByte('(')
		writeValue(b, v.Binop.Left)
		b.WriteString(" " + v.Binop.Op.String() + " ")
		writeValue(b, v.Binop.Right)
		b.WriteByte(')')
	case ValueCast:
		b.WriteString("(" + v.Cast.Type.String() + ")")
		writeValue(b, v.Cast.Value)
	case ValueSelect:
		b.WriteByte('(')
		writeValue(b, v.Select.Cond)
		b.WriteString(" ? ")
		writeValue(b, v.Select.Then)
		b.WriteString(" : ")
		writeValue(b, v.Select.Else)
		b.WriteByte(')')
	case ValueCall:
		if v.Call.Method {
			b.WriteString("dsp->")
		}
		b.WriteString(v.Call.Name)
		b.WriteByte('(')
		for i, a := range v.Call.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValue(b, a)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<value %s>", v.Kind)
	}
}

// FormatFloat renders a float literal so it never reads as an integer.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
