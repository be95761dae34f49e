// Package value implements the single tagged runtime value shared by the
// VM and the JIT's result decoder, so both engines hand the driver back
// exactly the same representation regardless of which one computed it.
package value

import (
	"fmt"
	"math"

	"github.com/tilt-lang/tilt/internal/types"
)

// Value is a tagged union over TILT's runtime value space. All payloads
// are stored as raw bits so the zero-cost conversions required by the
// spec (e.g. a load.f32 reading the bytes an i32 store wrote) fall out
// of the bit-pattern representation for free.
type Value struct {
	Kind types.Kind
	bits uint64
}

func I32(v int32) Value  { return Value{Kind: types.I32, bits: uint64(uint32(v))} }
func I64(v int64) Value  { return Value{Kind: types.I64, bits: uint64(v)} }
func F32(v float32) Value { return Value{Kind: types.F32, bits: uint64(math.Float32bits(v))} }
func F64(v float64) Value { return Value{Kind: types.F64, bits: math.Float64bits(v)} }
func Ptr(addr uint64) Value { return Value{Kind: types.Ptr, bits: addr} }
func Void() Value         { return Value{Kind: types.Void} }

// FromBits reconstructs a Value of the given kind from a raw bit pattern,
// used when decoding memory loads and JIT result lines where the kind is
// known ahead of time but the payload arrives as an opaque word.
func FromBits(k types.Kind, bits uint64) Value {
	return Value{Kind: k, bits: bits}
}

func (v Value) I32() int32     { return int32(uint32(v.bits)) }
func (v Value) I64() int64     { return int64(v.bits) }
func (v Value) F32() float32   { return math.Float32frombits(uint32(v.bits)) }
func (v Value) F64() float64   { return math.Float64frombits(v.bits) }
func (v Value) PtrAddr() uint64 { return v.bits }
func (v Value) Bits() uint64   { return v.bits }

// String renders the value the way the CLI's "Final result: T(v)" line
// does (spec.md §6).
func (v Value) String() string {
	switch v.Kind {
	case types.I32:
		return fmt.Sprintf("I32(%d)", v.I32())
	case types.I64:
		return fmt.Sprintf("I64(%d)", v.I64())
	case types.F32:
		return fmt.Sprintf("F32(%g)", v.F32())
	case types.F64:
		return fmt.Sprintf("F64(%g)", v.F64())
	case types.Ptr:
		return fmt.Sprintf("Ptr(0x%x)", v.PtrAddr())
	case types.Void:
		return "Void"
	default:
		return "Invalid"
	}
}
