// Package types defines the small type universe the compiler reasons about:
// the three primitive kinds plus pointer-to and array-of derivations, and
// the promotion rule used when two operands of different kinds meet in an
// expression.
package types

import "fmt"

// Kind distinguishes a primitive type from the derived pointer/array kinds.
type Kind int

// Primitive and derived kinds, in promotion order (Float > Int > Char).
const (
	Void Kind = iota
	Char
	Int
	Float
	Pointer
	Array
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Float:
		return "float"
	case Pointer:
		return "pointer"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is a primitive kind or a pointer-to/array-of derivation of one. Elem
// is nil for primitive kinds. Count is only meaningful for Array.
type Type struct {
	Kind  Kind
	Elem  *Type
	Count int
}

// Primitive type values, safe to compare by value since they carry no Elem.
var (
	TVoid  = Type{Kind: Void}
	TChar  = Type{Kind: Char}
	TInt   = Type{Kind: Int}
	TFloat = Type{Kind: Float}
)

// PointerTo returns the pointer-to-elem derived type.
func PointerTo(elem Type) Type {
	e := elem
	return Type{Kind: Pointer, Elem: &e}
}

// ArrayOf returns the array-of-elem derived type with the given element count.
func ArrayOf(elem Type, count int) Type {
	e := elem
	return Type{Kind: Array, Elem: &e, Count: count}
}

// IsNumeric reports whether t is one of the three primitive arithmetic kinds.
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case Char, Int, Float:
		return true
	default:
		return false
	}
}

// rank orders the primitive arithmetic kinds for promotion: higher wins.
func (k Kind) rank() int {
	switch k {
	case Char:
		return 0
	case Int:
		return 1
	case Float:
		return 2
	default:
		return -1
	}
}

// Higher implements the "higher" promotion rule of the data model:
// float > int > char. Only meaningful for the three primitive kinds; callers
// must not invoke it on pointer/array types.
func Higher(a, b Type) Type {
	if a.Kind.rank() >= b.Kind.rank() {
		return a
	}
	return b
}

// Compatible reports whether a value of type from can be used where a value
// of type to is expected: identical kinds, or any numeric-to-numeric
// conversion (the IR builder inserts the int<->float conversion opcode).
func Compatible(from, to Type) bool {
	if from.Kind == to.Kind {
		if from.Kind == Pointer || from.Kind == Array {
			return from.Elem.Kind == to.Elem.Kind
		}
		return true
	}
	return from.IsNumeric() && to.IsNumeric()
}

// String renders the type the way diagnostics and disassembly expect it.
func (t Type) String() string {
	switch t.Kind {
	case Pointer:
		return t.Elem.String() + "*"
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Count)
	default:
		return t.Kind.String()
	}
}

// Size returns the storage size in bytes that the backends reserve for a
// global in .data (see Design Note on FLOAT_PTR stride: every element is 4
// bytes wide regardless of declared element type, the same rule symtab uses
// for stack slots).
func (t Type) Size() int {
	switch t.Kind {
	case Array:
		return 4 * t.Count
	default:
		return 4
	}
}
