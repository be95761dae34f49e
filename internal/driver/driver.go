// Package driver wires the front end, the lowering pass, and TILT's two
// execution engines into the single pipeline cmd/tiltc drives: source
// text -> AST -> IR module -> VM and/or JIT -> a tagged final value.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/jit"
	"github.com/tilt-lang/tilt/internal/lower"
	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/value"
	"github.com/tilt-lang/tilt/internal/vm"
)

// Engine selects which execution engine (or both) a run uses.
type Engine int

const (
	VM Engine = iota
	JIT
	Both
)

// CompileError wraps the errors collected while parsing or lowering one
// source file, in source order.
type CompileError struct {
	Parse []string
	Lower []*lower.Error
}

func (e *CompileError) Error() string {
	s := ""
	for _, m := range e.Parse {
		s += m + "\n"
	}
	for _, m := range e.Lower {
		s += m.Error() + "\n"
	}
	return s
}

// Compile parses and lowers filename, returning its IR module. On a
// parse or lowering error, mod is nil.
func Compile(filename string, src io.Reader) (*ir.Module, *syntax.File, error) {
	var parseErrs []string
	errh := func(pos syntax.Pos, msg string) {
		parseErrs = append(parseErrs, fmt.Sprintf("%s: %s", pos, msg))
	}

	f, err := syntax.ParseFile(filename, src, errh)
	if err != nil {
		parseErrs = append(parseErrs, err.Error())
	}
	if len(parseErrs) > 0 {
		return nil, f, &CompileError{Parse: parseErrs}
	}

	mod, lowerErrs := lower.File(f)
	if len(lowerErrs) > 0 {
		return nil, f, &CompileError{Lower: lowerErrs}
	}
	return mod, f, nil
}

// CompileFile is a convenience wrapper over Compile that opens filename
// itself.
func CompileFile(filename string) (*ir.Module, *syntax.File, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Compile(filename, f)
}

// Result is one run's final tagged value, tagged with which engine (or
// engines) produced it.
type Result struct {
	VM       value.Value
	JIT      value.Value
	RanVM    bool
	RanJIT   bool
	Mismatch bool // both engines ran and disagreed
}

// Value returns the run's single final value: whichever engine ran, or
// the VM's value when both did (Mismatch reports if JIT disagreed).
func (r Result) Value() value.Value {
	if r.RanVM {
		return r.VM
	}
	return r.JIT
}

// Run executes entryFunc in mod with args on the selected engine(s). For
// Both, it reports a Mismatch rather than an error: spec.md §7 treats a
// VM/JIT divergence as a defect to report, not a fatal condition that
// should prevent inspecting either result.
func Run(mod *ir.Module, entryFunc string, args []value.Value, eng Engine, out io.Writer) (Result, error) {
	var res Result

	if eng == VM || eng == Both {
		abi := hostabi.NewSimulated(out)
		v, err := vm.New(mod, abi).Run(entryFunc, args)
		if err != nil {
			return res, fmt.Errorf("vm: %w", err)
		}
		res.VM, res.RanVM = v, true
	}

	if eng == JIT || eng == Both {
		v, err := jit.Run(mod, entryFunc, args)
		if err != nil {
			return res, fmt.Errorf("jit: %w", err)
		}
		res.JIT, res.RanJIT = v, true
	}

	if res.RanVM && res.RanJIT {
		res.Mismatch = res.VM.Kind != res.JIT.Kind || res.VM.Bits() != res.JIT.Bits()
	}

	return res, nil
}
