package jit

import "github.com/tilt-lang/tilt/internal/types"

// llvmType maps a TILT type to its LLVM IR type name. There is no
// nested type-construction step like the teacher's llvmStructType: every
// TILT type maps to exactly one LLVM scalar type.
func llvmType(t types.Type) string {
	if t == nil {
		return "void"
	}
	switch t.Kind() {
	case types.I32:
		return "i32"
	case types.I64:
		return "i64"
	case types.F32:
		return "float"
	case types.F64:
		return "double"
	case types.Ptr:
		return "ptr"
	case types.Void:
		return "void"
	}
	return "void"
}
