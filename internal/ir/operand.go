package ir

// OperandKind tags an Operand's origin, replacing the original's
// string-prefix sniffing ('$' on x86, '#' on ARM) with a typed predicate a
// backend can switch on directly (SPEC_FULL §11.iii).
type OperandKind int

const (
	// OperandLocal names a symbol resolved against the current function
	// scope: a declared variable, parameter, or stack-allocated temp.
	OperandLocal OperandKind = iota
	// OperandConst names a constant-temp symbol (symtab.Symbol.IsConstant());
	// the backend emits it as an immediate.
	OperandConst
	// OperandGlobal names a global variable.
	OperandGlobal
	// OperandLabel is a basic-block or rodata label, never resolved through
	// the symbol table.
	OperandLabel
)

// Operand is one instruction operand. Name is always populated; for
// OperandConst, Literal carries the inline value text so a backend never
// needs to re-resolve it through the symbol table.
type Operand struct {
	Kind    OperandKind
	Name    string
	Literal string // valid when Kind == OperandConst
}

// IsImmediate reports whether the operand is a compile-time constant, the
// typed replacement for the original's per-backend string-prefix check.
func (o Operand) IsImmediate() bool { return o.Kind == OperandConst }

// Local builds a local-variable/parameter/temp operand.
func Local(name string) Operand { return Operand{Kind: OperandLocal, Name: name} }

// Global builds a global-variable operand.
func Global(name string) Operand { return Operand{Kind: OperandGlobal, Name: name} }

// Label builds a label operand (block or rodata label).
func Label(name string) Operand { return Operand{Kind: OperandLabel, Name: name} }

// Const builds an immediate-constant operand.
func Const(name, literal string) Operand {
	return Operand{Kind: OperandConst, Name: name, Literal: literal}
}
