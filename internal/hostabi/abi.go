// Package hostabi defines TILT's host ABI: the fixed set of capabilities
// (heap allocation and host function calls) that a running program
// reaches through alloc/free/call rather than through its own
// instructions. Both engines share the same ABI surface so a program
// observes identical behavior under --vm and --jit (spec.md §4.4).
//
// Grounded on internal/rtabi's rt_* naming and size/alignment constants,
// renamed to the tilt_* prefix and trimmed to the two capabilities TILT
// actually exposes: no GC, no object headers, no println/panic builtins.
package hostabi

import "github.com/tilt-lang/tilt/internal/types"

// Function names shared with the C runtime shim the JIT links against.
const (
	FnAlloc = "tilt_alloc"
	FnFree  = "tilt_free"
)

// TargetTriple and DataLayout pin the JIT's code generation to a 64-bit
// Linux target, matching the word size internal/types.DefaultSizes
// assumes.
const (
	TargetTriple = "x86_64-unknown-linux-gnu"
	DataLayout   = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128"
)

// Import describes one host function a program may call: its name,
// parameter types and result type. The lowering pass type-checks calls
// against the program's own import declarations (ir.Import), not
// against this type.
type Import struct {
	Name       string
	ParamTypes []types.Type
	Result     types.Type
}

// ABI is the capability object a running program's alloc/free/call
// instructions are dispatched through. Simulated backs the VM with a
// byte-addressable Go heap; Native backs the JIT by describing the C
// symbols the generated LLVM IR should declare and link against — the
// actual native call happens inside the compiled binary, not in this
// process, so Native's methods describe rather than execute.
type ABI interface {
	// Kind identifies the implementation, for diagnostics.
	Kind() string
}
