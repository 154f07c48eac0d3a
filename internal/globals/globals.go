// Package globals is the global-variable manager (spec §4.6): it owns a
// scope of globals distinct from any function's scope, records their types
// and constant initializers, and renders the .data section.
package globals

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/db47h/pldc/internal/types"
)

type entry struct {
	typ  types.Type
	init string // literal text; empty means uninitialized
	set  bool
}

// Manager tracks every global declared during one compilation, in
// declaration order (required for deterministic .data output).
type Manager struct {
	order   []string
	entries map[string]*entry
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// AddGlobal registers a new global. Duplicate names are a compiler bug by
// the time this is called — semantic analysis must have already rejected
// the redeclaration — so this returns an error instead of panicking only to
// keep the call site symmetrical with symtab.Table.AddGlobal.
func (m *Manager) AddGlobal(name string, typ types.Type) error {
	if _, ok := m.entries[name]; ok {
		return errors.Errorf("global %q already declared", name)
	}
	m.entries[name] = &entry{typ: typ}
	m.order = append(m.order, name)
	return nil
}

// SetInitializer attaches a constant initializer to an already-declared
// global. Rejects unknown names (spec §4.6).
func (m *Manager) SetInitializer(name, literal string) error {
	e, ok := m.entries[name]
	if !ok {
		return errors.Errorf("unknown global variable %q", name)
	}
	e.init = literal
	e.set = true
	return nil
}

// Global is one .data record ready for lowering.
type Global struct {
	Name        string
	Type        types.Type
	Initialized bool
	IntBits     uint32 // valid when Initialized && Type.Kind != types.Float
	FloatBits   uint32 // valid when Initialized && Type.Kind == types.Float
}

// Globals returns every declared global in declaration order.
func (m *Manager) Globals() ([]Global, error) {
	out := make([]Global, 0, len(m.order))
	for _, name := range m.order {
		e := m.entries[name]
		g := Global{Name: name, Type: e.typ, Initialized: e.set}
		if e.set {
			bits, err := encodeLiteral(e.typ, e.init)
			if err != nil {
				return nil, errors.Wrapf(err, "global %q", name)
			}
			if e.typ.Kind == types.Float {
				g.FloatBits = bits
			} else {
				g.IntBits = bits
			}
		}
		out = append(out, g)
	}
	return out, nil
}

func encodeLiteral(typ types.Type, literal string) (uint32, error) {
	if typ.Kind == types.Float {
		f, err := strconv.ParseFloat(literal, 32)
		if err != nil {
			return 0, errors.Wrap(err, "invalid float initializer")
		}
		return math.Float32bits(float32(f)), nil
	}
	n, err := strconv.ParseInt(literal, 0, 64)
	if err != nil {
		return 0, errors.Wrap(err, "invalid integer initializer")
	}
	return uint32(int32(n)), nil
}

// Empty reports whether there are no globals to emit (spec §6: ".data
// section ... omitted if no globals").
func (m *Manager) Empty() bool { return len(m.order) == 0 }
