package fir

// Constructors for IR nodes. They allocate fresh nodes and never share
// children they did not receive.

func Float(f float64) *Value { return &Value{Kind: ValueFloat, Float: f} }

func Int32(i int32) *Value { return &Value{Kind: ValueInt32, Int32: i} }

func Load(addr Address) *Value {
	return &Value{Kind: ValueLoad, Load: LoadValue{Addr: addr}}
}

func LoadStack(name string) *Value   { return Load(Named(name, AccessStack)) }
func LoadLoop(name string) *Value    { return Load(Named(name, AccessLoop)) }
func LoadFunArgs(name string) *Value { return Load(Named(name, AccessFunArgs)) }
func LoadStruct(name string) *Value  { return Load(Named(name, AccessStruct)) }

func Binop(op Opcode, left, right *Value) *Value {
	return &Value{Kind: ValueBinop, Binop: BinopValue{Op: op, Left: left, Right: right}}
}

func Add(l, r *Value) *Value { return Binop(OpAdd, l, r) }
func Sub(l, r *Value) *Value { return Binop(OpSub, l, r) }
func Mul(l, r *Value) *Value { return Binop(OpMul, l, r) }
func Div(l, r *Value) *Value { return Binop(OpDiv, l, r) }
func Lt(l, r *Value) *Value  { return Binop(OpLt, l, r) }

func Cast(t Type, v *Value) *Value {
	return &Value{Kind: ValueCast, Cast: CastValue{Type: t, Value: v}}
}

func Select(cond, then, els *Value) *Value {
	return &Value{Kind: ValueSelect, Select: SelectValue{Cond: cond, Then: then, Else: els}}
}

func Call(name string, args ...*Value) *Value {
	return &Value{Kind: ValueCall, Call: CallValue{Name: name, Args: args}}
}

func MethodCall(name string, args ...*Value) *Value {
	v := Call(name, args...)
	v.Call.Method = true
	return v
}

func DeclareVar(addr Address, t Type, init *Value) *Stmt {
	return &Stmt{Kind: StmtDeclareVar, DeclareVar: DeclareVarStmt{Addr: addr, Type: t, Value: init}}
}

func Store(addr Address, v *Value) *Stmt {
	return &Stmt{Kind: StmtStore, Store: StoreStmt{Addr: addr, Value: v}}
}

// Nop is the statement left behind when another statement is elided.
func Nop() *Stmt { return &Stmt{Kind: StmtDrop} }

// Drop discards v, typically a call made for its side effects.
func Drop(v *Value) *Stmt { return &Stmt{Kind: StmtDrop, Drop: DropStmt{Value: v}} }

// Ret is a void return.
func Ret() *Stmt { return &Stmt{Kind: StmtReturn} }

func RetValue(v *Value) *Stmt { return &Stmt{Kind: StmtReturn, Return: ReturnStmt{Value: v}} }

func NewBlock(stmts ...*Stmt) *Block { return &Block{Stmts: stmts} }

func BlockStmt(b *Block) *Stmt { return &Stmt{Kind: StmtBlock, Block: b} }

func ForLoop(init *Stmt, end *Value, incr *Stmt, body *Block) *Stmt {
	return &Stmt{Kind: StmtForLoop, ForLoop: ForLoopStmt{Init: init, End: end, Increment: incr, Body: body}}
}

// SimpleForLoop builds `for (loop int32 v = 0; v < upper; v = v + 1)`.
func SimpleForLoop(v string, upper *Value, body *Block) *Stmt {
	idx := Named(v, AccessLoop)
	return ForLoop(
		DeclareVar(idx, Basic(TypeInt32), Int32(0)),
		Lt(Load(idx), upper),
		Store(idx, Add(Load(idx), Int32(1))),
		body,
	)
}

func If(cond *Value, then, els *Block) *Stmt {
	return &Stmt{Kind: StmtIf, If: IfStmt{Cond: cond, Then: then, Else: els}}
}

// VoidFunction declares a function returning nothing.
func VoidFunction(name string, params []Param, body *Block) *FunDef {
	return &FunDef{Name: name, Params: params, Result: Basic(TypeVoid), Body: body}
}

func DeclareFun(f *FunDef) *Stmt { return &Stmt{Kind: StmtDeclareFun, DeclareFun: f} }
