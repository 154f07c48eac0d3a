// Package symtab implements the lexically scoped symbol table described in
// spec §3/§4.2: a tree of scopes, each owning a name→Symbol map and a
// monotonically growing stack-offset cursor that a child scope inherits on
// entry and can hand back to its parent on exit.
//
// Scopes are arena-allocated in a single Table rather than linked through
// raw pointers (Design Note §9): every Scope is addressed by a small
// integer handle, and the parent edge is just another handle. This gives
// the tree explicit, cycle-free ownership matching the way the teacher's
// vm.Image owns one flat Cell slice instead of a graph of nodes.
package symtab

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/db47h/pldc/internal/types"
)

// Kind classifies what a Symbol names.
type Kind int

const (
	KindVariable Kind = iota
	KindTemporary
	KindParameter
)

// StorageClass mirrors the original ScopeType: where the symbol lives.
type StorageClass int

const (
	Global StorageClass = iota
	FunctionParams
	Block
)

// Symbol is one entry in a scope's table (spec §3).
type Symbol struct {
	Name    string
	Kind    Kind
	Type    types.Type
	Storage StorageClass
	Offset  int // positive, downward from frame pointer; unused for Global

	constant bool
	constVal string // literal text, valid only when constant
	used     bool
}

// IsConstant reports whether this symbol carries an inline literal value
// instead of runtime storage.
func (s *Symbol) IsConstant() bool { return s.constant }

// ConstValue returns the symbol's literal text. Panics if called on a
// non-constant symbol — mirrors the original's fatal getCstValue() misuse,
// which is a compiler bug, not a recoverable condition.
func (s *Symbol) ConstValue() string {
	if !s.constant {
		panic("symtab: ConstValue called on non-constant symbol " + s.Name)
	}
	return s.constVal
}

// Used reports whether the symbol has been referenced since declaration.
func (s *Symbol) Used() bool { return s.used }

// MarkUsed sets the symbol's usage bit.
func (s *Symbol) MarkUsed() { s.used = true }

// Handle addresses one Scope inside a Table's arena.
type Handle int

// noParent marks the root (global) scope.
const noParent Handle = -1

type scopeNode struct {
	parent  Handle
	symbols map[string]*Symbol
	cursor  int // currentDeclOffset
}

// Table is the arena owning every scope created during one compilation. The
// zero value is ready to use; call NewTable to get a Table pre-seeded with
// the global scope.
type Table struct {
	scopes []scopeNode
	global Handle
}

// NewTable creates a Table with its global scope already open.
func NewTable() *Table {
	t := &Table{}
	t.global = t.pushScope(noParent)
	return t
}

// Global returns the handle of the root (global) scope.
func (t *Table) Global() Handle { return t.global }

func (t *Table) pushScope(parent Handle) Handle {
	t.scopes = append(t.scopes, scopeNode{parent: parent, symbols: make(map[string]*Symbol)})
	return Handle(len(t.scopes) - 1)
}

// OpenScope creates a new child scope of parent, inheriting its current
// declaration-offset cursor (spec §3: "a child inherits its parent's cursor
// on entry").
func (t *Table) OpenScope(parent Handle) Handle {
	h := t.pushScope(parent)
	t.scopes[h].cursor = t.scopes[parent].cursor
	return h
}

// Synchronize copies child's cursor back into its parent, so the parent's
// cursor moves past every slot the just-closed child allocated, named locals
// and temporaries alike (spec §4.2; policy decision recorded in SPEC_FULL
// §11.ii). Those slots stay reserved in the frame: a following sibling block
// allocates after them and does not reuse them.
func (t *Table) Synchronize(child Handle) {
	parent := t.scopes[child].parent
	if parent == noParent {
		return
	}
	t.scopes[parent].cursor = t.scopes[child].cursor
}

// Parent returns h's enclosing scope and whether it has one.
func (t *Table) Parent(h Handle) (Handle, bool) {
	p := t.scopes[h].parent
	return p, p != noParent
}

func (t *Table) scalarSize(elementCount int) int {
	if elementCount <= 0 {
		return 4
	}
	return 4 * elementCount
}

// AddLocal allocates a new local/block-scoped symbol in scope h. elementCount
// is 0 for a scalar, or the declared array length. Rejects redeclaration in
// the current scope only (spec §4.1: "redeclaration is detected only in the
// current scope").
func (t *Table) AddLocal(h Handle, name string, typ types.Type, elementCount int) (*Symbol, error) {
	s := &t.scopes[h]
	if _, ok := s.symbols[name]; ok {
		return nil, errors.Errorf("variable %q has already been declared", name)
	}
	s.cursor += t.scalarSize(elementCount)
	sym := &Symbol{Name: name, Kind: KindVariable, Type: typ, Storage: Block, Offset: s.cursor}
	s.symbols[name] = sym
	return sym, nil
}

// AddGlobal registers a global symbol. Storage class is Global and it never
// carries a frame offset.
func (t *Table) AddGlobal(name string, typ types.Type) (*Symbol, error) {
	s := &t.scopes[t.global]
	if _, ok := s.symbols[name]; ok {
		return nil, errors.Errorf("variable %q has already been declared", name)
	}
	sym := &Symbol{Name: name, Kind: KindVariable, Type: typ, Storage: Global}
	s.symbols[name] = sym
	return sym, nil
}

// AddTempConstant creates a synthetic "!tmp<offset>" symbol carrying an
// inline literal value. Like AddTemp it advances the scope's cursor by 4, so
// its name is unique and the frame grows by 4 bytes; the backend never
// addresses that slot because IsConstant() is consulted first during lowering.
func (t *Table) AddTempConstant(h Handle, typ types.Type, literal string) *Symbol {
	s := &t.scopes[h]
	s.cursor += 4
	name := fmt.Sprintf("!tmp%d", s.cursor)
	sym := &Symbol{Name: name, Kind: KindTemporary, Type: typ, Storage: Block, Offset: s.cursor, constant: true, constVal: literal}
	s.symbols[name] = sym
	return sym
}

// AddTemp allocates a real stack slot for an anonymous temporary.
func (t *Table) AddTemp(h Handle, typ types.Type) *Symbol {
	s := &t.scopes[h]
	s.cursor += 4
	name := fmt.Sprintf("!tmp%d", s.cursor)
	sym := &Symbol{Name: name, Kind: KindTemporary, Type: typ, Storage: Block, Offset: s.cursor}
	s.symbols[name] = sym
	return sym
}

// FreeLastTemp releases the most recently allocated temp in h, rewinding the
// cursor by 4. Mirrors SymbolTable::freeLastTempVariable.
func (t *Table) FreeLastTemp(h Handle) error {
	s := &t.scopes[h]
	if s.cursor <= 0 {
		return errors.New("no temp variable to free")
	}
	name := fmt.Sprintf("!tmp%d", s.cursor)
	if _, ok := s.symbols[name]; !ok {
		return errors.Errorf("temp variable %q not found", name)
	}
	delete(s.symbols, name)
	s.cursor -= 4
	return nil
}

// FindInScope looks up name in h only (no chaining to enclosing scopes).
func (t *Table) FindInScope(h Handle, name string) (*Symbol, bool) {
	sym, ok := t.scopes[h].symbols[name]
	return sym, ok
}

// FindVisible looks up name starting at h and walking outward through parent
// scopes until found or the chain is exhausted.
func (t *Table) FindVisible(h Handle, name string) (*Symbol, bool) {
	for {
		if sym, ok := t.scopes[h].symbols[name]; ok {
			return sym, true
		}
		parent := t.scopes[h].parent
		if parent == noParent {
			return nil, false
		}
		h = parent
	}
}

// CurrentDeclOffset returns h's live allocation cursor.
func (t *Table) CurrentDeclOffset(h Handle) int {
	return t.scopes[h].cursor
}

// Symbols returns every symbol declared directly in h, for diagnostics
// (unused-variable warnings) and table dumps.
func (t *Table) Symbols(h Handle) map[string]*Symbol {
	return t.scopes[h].symbols
}

// IsTemp reports whether name follows the synthetic temp-naming convention.
func IsTemp(name string) bool {
	return len(name) >= 4 && name[:4] == "!tmp"
}
