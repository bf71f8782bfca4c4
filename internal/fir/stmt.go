package fir

import "fmt"

// StmtKind enumerates statement kinds. Statements produce no result.
type StmtKind uint8

const (
	// StmtDeclareVar declares a variable with an optional initial value.
	StmtDeclareVar StmtKind = iota
	// StmtStore writes a variable.
	StmtStore
	// StmtDeclareFun declares a function.
	StmtDeclareFun
	// StmtDrop evaluates a value and discards it; with no value it is a no-op.
	StmtDrop
	// StmtReturn returns from the enclosing function.
	StmtReturn
	// StmtBlock is a nested block.
	StmtBlock
	// StmtForLoop is a counted loop.
	StmtForLoop
	// StmtIf is a two-way branch.
	StmtIf
)

var stmtKindNames = [...]string{
	StmtDeclareVar: "declare_var",
	StmtStore:      "store",
	StmtDeclareFun: "declare_fun",
	StmtDrop:       "drop",
	StmtReturn:     "return",
	StmtBlock:      "block",
	StmtForLoop:    "for",
	StmtIf:         "if",
}

func (k StmtKind) String() string {
	if int(k) < len(stmtKindNames) {
		return stmtKindNames[k]
	}
	return fmt.Sprintf("stmt(%d)", uint8(k))
}

func (k StmtKind) MarshalText() ([]byte, error) {
	if int(k) >= len(stmtKindNames) {
		return nil, fmt.Errorf("fir: unknown statement kind %d", uint8(k))
	}
	return []byte(stmtKindNames[k]), nil
}

func (k *StmtKind) UnmarshalText(b []byte) error {
	for i, name := range stmtKindNames {
		if name == string(b) {
			*k = StmtKind(i) //nolint:gosec // G115: bounded by stmtKindNames length
			return nil
		}
	}
	return fmt.Errorf("fir: unknown statement kind %q", b)
}

// Stmt is a statement node.
type Stmt struct {
	Kind StmtKind `json:"kind"`

	DeclareVar DeclareVarStmt `json:"declare_var,omitzero"`
	Store      StoreStmt      `json:"store,omitzero"`
	DeclareFun *FunDef        `json:"declare_fun,omitempty"`
	Drop       DropStmt       `json:"drop,omitzero"`
	Return     ReturnStmt     `json:"return,omitzero"`
	Block      *Block         `json:"block,omitempty"`
	ForLoop    ForLoopStmt    `json:"for,omitzero"`
	If         IfStmt         `json:"if,omitzero"`
}

// DeclareVarStmt declares Addr of Type, initialised to Value when non-nil.
type DeclareVarStmt struct {
	Addr  Address `json:"addr"`
	Type  Type    `json:"type"`
	Value *Value  `json:"value,omitempty"`
}

// StoreStmt writes Value to Addr.
type StoreStmt struct {
	Addr  Address `json:"addr"`
	Value *Value  `json:"value"`
}

// DropStmt discards Value. A nil Value makes the statement a no-op.
type DropStmt struct {
	Value *Value `json:"value,omitempty"`
}

// ReturnStmt returns Value, or nothing when Value is nil.
type ReturnStmt struct {
	Value *Value `json:"value,omitempty"`
}

// ForLoopStmt is `for (Init; End; Increment) Body`.
type ForLoopStmt struct {
	Init      *Stmt  `json:"init"`
	End       *Value `json:"end"`
	Increment *Stmt  `json:"increment"`
	Body      *Block `json:"body"`
}

// IfStmt branches on Cond. Else may be nil.
type IfStmt struct {
	Cond *Value `json:"cond"`
	Then *Block `json:"then"`
	Else *Block `json:"else,omitempty"`
}

// IsNop reports a drop without a value.
func (s *Stmt) IsNop() bool {
	return s != nil && s.Kind == StmtDrop && s.Drop.Value == nil
}

// Block is an ordered sequence of statements.
type Block struct {
	Stmts []*Stmt `json:"stmts"`
}

// Push appends statements to b.
func (b *Block) Push(stmts ...*Stmt) {
	b.Stmts = append(b.Stmts, stmts...)
}

// Len returns the number of statements.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Stmts)
}

// FunDef is a function definition. Method marks per-instance methods, whose
// loops keep access to the state object once extracted.
type FunDef struct {
	Name   string  `json:"name"`
	Params []Param `json:"params"`
	Result Type    `json:"result"`
	Body   *Block  `json:"body"`
	Method bool    `json:"method,omitempty"`
}

// Module groups the global declarations and the functions of one
// compilation unit.
type Module struct {
	Name    string    `json:"name"`
	Globals *Block    `json:"globals,omitempty"`
	Funcs   []*FunDef `json:"funcs"`
}

// Func returns the function called name, or nil.
func (m *Module) Func(name string) *FunDef {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f != nil && f.Name == name {
			return f
		}
	}
	return nil
}
