package hostabi

// Native is the JIT's ABI implementation. Unlike Simulated it never
// executes a call itself — alloc, free, and every host import happen
// inside the compiled binary, against the C runtime shim
// internal/jit/link.go links in. The lowering pass does not consult
// Native; it checks imports against KnownImports below.
type Native struct{}

func (n *Native) Kind() string { return "native" }

// Symbol returns the C symbol the JIT declares and calls for a host
// import, matching internal/jit's cSymbol convention.
func (n *Native) Symbol(importName string) string {
	out := make([]byte, len(importName))
	for i := 0; i < len(importName); i++ {
		if importName[i] == '.' {
			out[i] = '_'
		} else {
			out[i] = importName[i]
		}
	}
	return string(out)
}

// KnownImports is the fixed set of host functions both Native (via the
// C shim) and Simulated know how to back. A program importing anything
// outside this set fails lowering with UnknownImport before either
// engine ever sees it.
var KnownImports = []string{
	"host.print_i32",
	"host.print_i64",
	"host.print_f32",
	"host.print_f64",
}
