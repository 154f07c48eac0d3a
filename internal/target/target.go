// Package target defines the backend contract every architecture lowering
// implements (spec §4.7) and a name-keyed registry backends register
// themselves into, so the command-line driver selects one at runtime
// instead of the original's per-architecture build tag
// (#if defined(__x86_64__) ...).
package target

import (
	"io"

	"github.com/pkg/errors"

	"github.com/db47h/pldc/internal/ir"
	"github.com/db47h/pldc/internal/symtab"
)

// Backend lowers a whole compiled program (every function's CFG, the
// globals manager and the read-only float pool) to GAS-syntax assembly
// text for one architecture.
type Backend interface {
	// Name is the backend's selector string, e.g. "x86-64".
	Name() string
	// Emit writes the full assembly listing for the program to w.
	Emit(w io.Writer, ctx *ir.Context, cfgs []*ir.CFG) error
}

// Factory constructs a fresh Backend instance.
type Factory func() Backend

var registry = make(map[string]Factory)

// Register adds a backend factory under name. Called from each backend
// subpackage's init().
func Register(name string, f Factory) {
	registry[name] = f
}

// Select returns a new Backend instance for name.
func Select(name string) (Backend, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown target %q", name)
	}
	return f(), nil
}

// Names returns every registered backend name, for usage/help text.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

// FrameOffset resolves a local/parameter/temp operand's frame-pointer
// offset, the step every backend needs before it can render a stack
// addressing mode. Panics on an unresolved name: by this point the program
// has already passed semantic analysis, so a miss is a compiler bug.
func FrameOffset(symbols *symtab.Table, scope symtab.Handle, name string) int {
	sym, ok := symbols.FindVisible(scope, name)
	if !ok {
		panic("target: unresolved operand " + name)
	}
	return sym.Offset
}

// AlignUp rounds n up to the next multiple of align (align must be a power
// of two), the way every backend pads its frame size in its prologue.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

