package jit

import (
	"fmt"
	"io"

	"github.com/tilt-lang/tilt/internal/ir"
)

// emitter wraps an io.Writer with helpers for emitting LLVM IR text,
// grounded on internal/codegen/emitter.go's line-oriented helpers.
type emitter struct {
	w   io.Writer
	err error
}

func (e *emitter) emit(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

func (e *emitter) emitInst(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "  "+format+"\n", args...)
}

func (e *emitter) emitLabel(b *ir.Block) {
	e.emit("%s:", blockName(b))
}

// valueName returns the LLVM local name for an IR value: %vN.
func valueName(v *ir.Value) string {
	return fmt.Sprintf("%%v%d", v.ID)
}

// blockName returns the LLVM label for an IR block. Block 0 is "entry",
// matching internal/codegen's convention.
func blockName(b *ir.Block) string {
	if b.ID == 0 {
		return "entry"
	}
	return fmt.Sprintf("b%d", b.ID)
}
