package ir

import (
	"github.com/db47h/pldc/internal/globals"
	"github.com/db47h/pldc/internal/rodata"
	"github.com/db47h/pldc/internal/symtab"
	"github.com/db47h/pldc/internal/types"
)

// Context carries the two process-wide monotonic counters (basic-block
// numbering and the backends' local-label numbering; float labels are
// numbered by RoData) plus the long-lived managers, as one explicit value
// threaded through the passes instead of package-level globals (spec §5,
// Design Note §9: "avoid hidden process state so that the compiler is
// re-entrant and testable in process").
type Context struct {
	blockCounter int
	labelCounter int

	Symbols *symtab.Table
	RoData  *rodata.Manager
	Globals *globals.Manager

	funcs map[string]FuncInfo
	order []string // function names in registration order, for deterministic iteration

	float1 string // name of the interned "1" float constant used by incr/decr on floats
}

// NewContext returns a fresh, independent compilation context.
func NewContext() *Context {
	return &Context{
		Symbols: symtab.NewTable(),
		RoData:  rodata.New(),
		Globals: globals.New(),
		funcs:   make(map[string]FuncInfo),
	}
}

// nextBlockLabel returns the next globally-unique ".BB<n>" label.
func (c *Context) nextBlockLabel() string {
	l := ".BB" + itoa(c.blockCounter)
	c.blockCounter++
	return l
}

// NextLabel returns the next globally-unique small integer for a backend's
// own local branch labels (short-circuit/compare helpers, e.g. ".Lsc<n>",
// ".Lend<n>"). Backends must not keep this counter as a package-level
// global (spec §6): two Emit calls in the same process — two programs
// compiled back to back, or the same program compiled twice — would
// otherwise renumber labels differently each time, breaking the
// byte-identical-output determinism invariant (spec §8).
func (c *Context) NextLabel() int {
	n := c.labelCounter
	c.labelCounter++
	return n
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

// RegisterSignature pre-declares a function's name, return type and
// parameter list before its body is walked, so calls to functions defined
// later in the same file (or mutually recursive pairs) resolve during
// emission (spec_full §10).
func (c *Context) RegisterSignature(fn FuncInfo) {
	if _, ok := c.funcs[fn.Name]; !ok {
		c.order = append(c.order, fn.Name)
	}
	c.funcs[fn.Name] = fn
}

// LookupFunc resolves a call target registered via RegisterSignature,
// including the predeclared putchar/getchar externs (spec §6).
func (c *Context) LookupFunc(name string) (FuncInfo, bool) {
	fn, ok := c.funcs[name]
	return fn, ok
}

// Float1 returns the operand for the single interned float constant "1",
// shared by every float incr/decr across the whole compilation (mirrors
// SymbolTable::addTempConstVariable being called once for this purpose in
// the original front end rather than per call site).
func (c *Context) Float1() Operand {
	if c.float1 == "" {
		sym := c.Symbols.AddTempConstant(c.Symbols.Global(), types.TFloat, "1")
		c.float1 = sym.Name
	}
	return Const(c.float1, "1")
}

// PredeclareExterns seeds the function namespace with putchar/getchar, the
// only two externs the language recognizes without a declaration (spec §6,
// confirmed against original_source/compiler/main.cpp's predefineFunctions).
func (c *Context) PredeclareExterns() {
	c.RegisterSignature(FuncInfo{
		Name:       "putchar",
		ReturnType: types.TChar,
		Params:     []ParamInfo{{Name: "c", Type: types.TChar}},
	})
	c.RegisterSignature(FuncInfo{
		Name:       "getchar",
		ReturnType: types.TChar,
	})
}
