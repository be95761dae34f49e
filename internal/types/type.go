// Package types implements TILT's closed type lattice.
//
// Unlike a general-purpose language's type system, TILT has exactly six
// types and no user-defined types, no inference, and no implicit
// conversions — every operand carries its static type explicitly in the
// source. The package exists mainly so the rest of the compiler can share
// one canonical Type value per kind instead of comparing kind constants.
package types

// Kind identifies one of TILT's six types.
type Kind int

const (
	Invalid Kind = iota
	I32
	I64
	F32
	F64
	Ptr
	Void
)

var kindNames = [...]string{
	Invalid: "invalid",
	I32:     "I32",
	I64:     "I64",
	F32:     "F32",
	F64:     "F64",
	Ptr:     "Ptr",
	Void:    "Void",
}

// String returns the name of the kind as it is spelled in diagnostics and
// in the "Final result: T(v)" CLI output (e.g. "I32").
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Type is a TILT type. There is no interface hierarchy: every Type is one
// of the six predeclared *Basic values in Typ, compared by pointer identity.
type Type interface {
	// Kind returns the type's Kind.
	Kind() Kind

	// String returns the lowercase surface-syntax spelling of the type
	// (e.g. "i32"), as it would appear in source or in an error message
	// quoting the offending type.
	String() string
}

// Basic is the sole implementation of Type.
type Basic struct {
	kind Kind
	name string
}

func (b *Basic) Kind() Kind     { return b.kind }
func (b *Basic) String() string { return b.name }

// Typ holds the six predeclared types, indexed by Kind. Typ[Invalid] is nil.
var Typ = [...]*Basic{
	Invalid: nil,
	I32:     {kind: I32, name: "i32"},
	I64:     {kind: I64, name: "i64"},
	F32:     {kind: F32, name: "f32"},
	F64:     {kind: F64, name: "f64"},
	Ptr:     {kind: Ptr, name: "ptr"},
	Void:    {kind: Void, name: "void"},
}

// ByName looks up a predeclared type by its surface-syntax spelling.
// "usize" is accepted as a historical alias for "ptr" (spec.md §6, §9).
func ByName(name string) (Type, bool) {
	if name == "usize" {
		return Typ[Ptr], true
	}
	for k := I32; k <= Void; k++ {
		if Typ[k].name == name {
			return Typ[k], true
		}
	}
	return nil, false
}

// Identical reports whether a and b are the same type. TILT has no
// structural types, so identity is exactly kind equality.
func Identical(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind()
}
