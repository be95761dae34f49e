package ir

import (
	"fmt"
	"math"

	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/types"
)

// ID is a unique identifier for a Value within a Func.
type ID int32

// Value is a single SSA-form definition: either a block parameter or the
// result of one instruction. There is no Uses/DCE bookkeeping — TILT has
// no optimizer, so a Value lives exactly as long as its Func does.
type Value struct {
	ID ID

	// Name is the source-level name, used for diagnostics and --show-ir.
	// Block parameters and named instructions both carry one; a void
	// instruction (store, free, a void call) has an empty Name.
	Name string

	// IsParam reports whether this Value is a block parameter rather than
	// an instruction result. Params have Op == OpInvalid.
	IsParam bool

	Op    Op
	Type  types.Type // nil only for a void instruction's Value
	Args  []*Value
	Block *Block

	AuxInt  int64      // OpConstI32/OpConstI64 bit pattern
	AuxType types.Type // OpSizeof's queried type
	Callee  string     // OpCall's target function or import name

	Pos syntax.Pos
}

func (v *Value) String() string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("v%d", v.ID)
}

// LongString is the textual form used by --show-ir.
func (v *Value) LongString() string {
	if v.IsParam {
		return fmt.Sprintf("%s: %s", v, v.Type)
	}
	s := v.Op.String()
	switch v.Op {
	case OpConstI32, OpConstI64:
		s += fmt.Sprintf("(%d)", v.AuxInt)
	case OpConstF32:
		s += fmt.Sprintf("(%g)", math.Float32frombits(uint32(v.AuxInt)))
	case OpConstF64:
		s += fmt.Sprintf("(%g)", math.Float64frombits(uint64(v.AuxInt)))
	case OpSizeof:
		s += fmt.Sprintf(".%s()", v.AuxType)
	case OpCall:
		s += fmt.Sprintf("(%s", v.Callee)
		for _, a := range v.Args {
			s += ", " + a.String()
		}
		s += ")"
	default:
		s += "("
		for i, a := range v.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		s += ")"
	}
	if v.Type != nil && v.Name != "" {
		return fmt.Sprintf("%s: %s = %s", v, v.Type, s)
	}
	return s
}
