package jit

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/types"
	"github.com/tilt-lang/tilt/internal/value"
)

// generator lowers one ir.Module to LLVM IR text, grounded on
// internal/codegen/lower.go's per-op switch (g.lowerValue, g.operand,
// g.emitBinOp). Every arithmetic and comparison op maps to a single
// native LLVM instruction, so wraparound, division faults, and unaligned
// access come from real hardware semantics instead of being re-derived
// in Go (see SPEC_FULL.md's DOMAIN STACK section).
type generator struct {
	e *emitter
}

// Emit writes a complete, linkable LLVM IR module implementing mod, with
// a generated @main that calls entryFunc with args and prints its result
// using the TILT_RESULT protocol internal/jit/link.go parses back.
func Emit(w *emitter, mod *ir.Module, entryFunc string, args []value.Value) error {
	g := &generator{e: w}

	w.emit("target triple = %q", hostabi.TargetTriple)
	w.emit("target datalayout = %q", hostabi.DataLayout)
	w.emit("")
	w.emit("declare ptr @%s(i64)", hostabi.FnAlloc)
	w.emit("declare void @%s(ptr)", hostabi.FnFree)
	w.emit("declare i32 @printf(ptr, ...)")
	for _, imp := range mod.Imports {
		w.emit("declare %s @%s(%s)", llvmType(imp.Result), cSymbol(imp.Name), llvmTypeList(imp.ParamTypes))
	}
	w.emit("")

	for _, f := range mod.Funcs {
		g.lowerFunc(f)
		w.emit("")
	}

	entry := mod.FindFunc(entryFunc)
	if entry == nil {
		return fmt.Errorf("jit: entry function %q not found", entryFunc)
	}
	if len(args) != len(entry.Params()) {
		return fmt.Errorf("jit: entry function %q wants %d arguments, got %d", entryFunc, len(entry.Params()), len(args))
	}

	fmtStr := resultFormat(entry.ResultType)
	w.emit("@.result_fmt = private unnamed_addr constant [%d x i8] c\"%s\\00\"", len(fmtStr)+1, llvmEscapeString(fmtStr))
	w.emit("")

	g.lowerMain(entry, args)
	return w.err
}

// resultFormat picks the printf conversion for a function's result type,
// realizing the CLI's fixed "TILT_RESULT <TAG> <VALUE>" stdout protocol
// (SPEC_FULL.md's JIT component) that link.go parses back into a
// value.Value after the compiled binary exits.
func resultFormat(t types.Type) string {
	if t == nil || t.Kind() == types.Void {
		return "TILT_RESULT VOID\n"
	}
	switch t.Kind() {
	case types.I32:
		return "TILT_RESULT I32 %d\n"
	case types.I64:
		return "TILT_RESULT I64 %lld\n"
	case types.F32:
		return "TILT_RESULT F32 %.9g\n"
	case types.F64:
		return "TILT_RESULT F64 %.17g\n"
	case types.Ptr:
		return "TILT_RESULT PTR %llu\n"
	}
	return "TILT_RESULT VOID\n"
}

func (g *generator) lowerFunc(f *ir.Func) {
	var params []string
	for _, p := range f.Params() {
		params = append(params, fmt.Sprintf("%s %%%s", llvmType(p.Type), p.Name))
	}
	g.e.emit("define %s @%s(%s) {", llvmType(f.ResultType), f.Name, strings.Join(params, ", "))
	for _, b := range ir.ReversePostOrder(f) {
		g.lowerBlock(b, f)
	}
	g.e.emit("}")
}

func (g *generator) lowerBlock(b *ir.Block, f *ir.Func) {
	g.e.emitLabel(b)

	if b != f.Entry {
		for i, p := range b.Params {
			g.lowerPhi(b, p, i)
		}
	}
	for _, v := range b.Values {
		g.lowerValue(v)
	}
	g.lowerTerm(b)
}

// lowerPhi emits a phi node gathering the i-th argument each predecessor
// passes when branching to b, the LLVM realization of a TILT block
// parameter (spec.md §3: block parameters stand in for phi nodes).
func (g *generator) lowerPhi(b *ir.Block, p *ir.Value, i int) {
	var parts []string
	for _, pred := range b.Preds {
		arg := predArg(pred, b, i)
		parts = append(parts, fmt.Sprintf("[ %s, %%%s ]", g.operand(arg), blockName(pred)))
	}
	g.e.emitInst("%s = phi %s %s", valueName(p), llvmType(p.Type), strings.Join(parts, ", "))
}

func predArg(pred, target *ir.Block, i int) *ir.Value {
	t := pred.Term
	switch t.Kind {
	case ir.TermBr:
		if t.Target == target {
			return t.TargetArgs[i]
		}
	case ir.TermBrIf:
		if t.Then == target {
			return t.ThenArgs[i]
		}
		if t.Else == target {
			return t.ElseArgs[i]
		}
	}
	return nil
}

func (g *generator) lowerValue(v *ir.Value) {
	switch v.Op {
	case ir.OpConstI32, ir.OpConstI64, ir.OpConstF32, ir.OpConstF64, ir.OpSizeof:
		return // inlined at use sites by operand()

	case ir.OpAddI32:
		g.emitBinOp("add", "i32", v)
	case ir.OpSubI32:
		g.emitBinOp("sub", "i32", v)
	case ir.OpMulI32:
		g.emitBinOp("mul", "i32", v)
	case ir.OpDivI32:
		g.emitBinOp("sdiv", "i32", v)
	case ir.OpAddI64:
		g.emitBinOp("add", "i64", v)
	case ir.OpSubI64:
		g.emitBinOp("sub", "i64", v)
	case ir.OpMulI64:
		g.emitBinOp("mul", "i64", v)
	case ir.OpDivI64:
		g.emitBinOp("sdiv", "i64", v)

	case ir.OpEqI32:
		g.emitCmpToI32("eq", "i32", v)
	case ir.OpLtI32:
		g.emitCmpToI32("slt", "i32", v)
	case ir.OpEqI64:
		g.emitCmpToI32("eq", "i64", v)
	case ir.OpLtI64:
		g.emitCmpToI32("slt", "i64", v)
	case ir.OpEqPtr:
		g.emitCmpToI32("eq", "ptr", v)
	case ir.OpLtPtr:
		g.emitCmpToI32("ult", "ptr", v)

	case ir.OpPtrAdd:
		g.e.emitInst("%s = getelementptr i8, ptr %s, i64 %s", valueName(v), g.operand(v.Args[0]), g.operand(v.Args[1]))

	case ir.OpLoad:
		g.e.emitInst("%s = load %s, ptr %s, align 1", valueName(v), llvmType(v.Type), g.operand(v.Args[0]))
	case ir.OpStore:
		g.e.emitInst("store %s %s, ptr %s, align 1", llvmType(v.Args[1].Type), g.operand(v.Args[1]), g.operand(v.Args[0]))

	case ir.OpAlloc:
		g.e.emitInst("%s = call ptr @%s(i64 %s)", valueName(v), hostabi.FnAlloc, g.operand(v.Args[0]))
	case ir.OpFree:
		g.e.emitInst("call void @%s(ptr %s)", hostabi.FnFree, g.operand(v.Args[0]))

	case ir.OpCall:
		g.lowerCall(v)

	default:
		g.e.emitInst("; unhandled op %s", v.Op)
	}
}

func (g *generator) emitBinOp(inst, ty string, v *ir.Value) {
	g.e.emitInst("%s = %s %s %s, %s", valueName(v), inst, ty, g.operand(v.Args[0]), g.operand(v.Args[1]))
}

// emitCmpToI32 emits the icmp and the zext that widens its i1 result to
// I32, matching spec.md §3's "comparison result is always I32".
func (g *generator) emitCmpToI32(cond, ty string, v *ir.Value) {
	tmp := valueName(v) + "b"
	g.e.emitInst("%s = icmp %s %s %s, %s", tmp, cond, ty, g.operand(v.Args[0]), g.operand(v.Args[1]))
	g.e.emitInst("%s = zext i1 %s to i32", valueName(v), tmp)
}

func (g *generator) lowerCall(v *ir.Value) {
	var args []string
	for _, a := range v.Args {
		args = append(args, fmt.Sprintf("%s %s", llvmType(a.Type), g.operand(a)))
	}
	name := v.Callee
	if isImportCall(v) {
		name = cSymbol(v.Callee)
	}
	if v.Type == nil {
		g.e.emitInst("call void @%s(%s)", name, strings.Join(args, ", "))
	} else {
		g.e.emitInst("%s = call %s @%s(%s)", valueName(v), llvmType(v.Type), name, strings.Join(args, ", "))
	}
}

// isImportCall reports whether v.Callee names a host import rather than
// a user function, by whether the name contains a '.'. Host import names
// are dotted; internal/lower does not reject a dotted user function name,
// and a call to such a function is emitted as an import call.
func isImportCall(v *ir.Value) bool {
	return strings.Contains(v.Callee, ".")
}

func (g *generator) lowerTerm(b *ir.Block) {
	t := b.Term
	switch t.Kind {
	case ir.TermRet:
		if t.Value == nil {
			g.e.emitInst("ret void")
		} else {
			g.e.emitInst("ret %s %s", llvmType(t.Value.Type), g.operand(t.Value))
		}
	case ir.TermBr:
		g.e.emitInst("br label %%%s", blockName(t.Target))
	case ir.TermBrIf:
		tmp := fmt.Sprintf("%%c%d", b.ID)
		g.e.emitInst("%s = icmp ne i32 %s, 0", tmp, g.operand(t.Cond))
		g.e.emitInst("br i1 %s, label %%%s, label %%%s", tmp, blockName(t.Then), blockName(t.Else))
	}
}

// operand returns the LLVM IR operand string for a value: constants are
// inlined (matching internal/codegen/lower.go's g.operand), everything
// else uses its %vN name.
func (g *generator) operand(v *ir.Value) string {
	if v == nil {
		return "undef"
	}
	switch v.Op {
	case ir.OpConstI32, ir.OpConstI64:
		return strconv.FormatInt(v.AuxInt, 10)
	case ir.OpConstF32:
		return formatFloatHex(float64(math.Float32frombits(uint32(v.AuxInt))))
	case ir.OpConstF64:
		return formatFloatHex(math.Float64frombits(uint64(v.AuxInt)))
	case ir.OpSizeof:
		return strconv.FormatInt(types.DefaultSizes.Sizeof(v.AuxType), 10)
	}
	if v.IsParam && v.Block != nil && v.Block.Func != nil && v.Block == v.Block.Func.Entry {
		return "%" + v.Name
	}
	return valueName(v)
}

// cSymbol maps a dotted host import name to the C identifier the shim
// exports it under, e.g. "host.print_i32" -> "host_print_i32".
func cSymbol(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

// lowerMain emits a @main that calls entry with args baked in as LLVM
// constants, prints its result through the TILT_RESULT protocol, and
// exits 0. The C runtime shim (internal/jit/link.go) defines no main of
// its own; this @main is the compiled binary's entry point.
func (g *generator) lowerMain(entry *ir.Func, args []value.Value) {
	var callArgs []string
	for i, p := range entry.Params() {
		callArgs = append(callArgs, fmt.Sprintf("%s %s", llvmType(p.Type), constOperand(p.Type, args[i])))
	}

	g.e.emit("define i32 @main() {")
	g.e.emit("entry:")

	isVoid := entry.ResultType == nil || entry.ResultType.Kind() == types.Void
	if isVoid {
		g.e.emitInst("call void @%s(%s)", entry.Name, strings.Join(callArgs, ", "))
		g.emitResultPrintf()
	} else {
		resTy := llvmType(entry.ResultType)
		g.e.emitInst("%%r = call %s @%s(%s)", resTy, entry.Name, strings.Join(callArgs, ", "))
		printArg := "%r"
		switch entry.ResultType.Kind() {
		case types.F32:
			g.e.emitInst("%%rd = fpext float %%r to double")
			printArg = "%rd"
		case types.Ptr:
			g.e.emitInst("%%ri = ptrtoint ptr %%r to i64")
			printArg = "%ri"
		}
		argTy := "i32"
		switch entry.ResultType.Kind() {
		case types.I64:
			argTy = "i64"
		case types.F32, types.F64:
			argTy = "double"
		case types.Ptr:
			argTy = "i64"
		}
		g.emitResultPrintf(fmt.Sprintf("%s %s", argTy, printArg))
	}

	g.e.emitInst("ret i32 0")
	g.e.emit("}")
}

// emitResultPrintf calls printf with the module's single @.result_fmt
// global and any extra conversion arguments.
func (g *generator) emitResultPrintf(extra ...string) {
	args := append([]string{"ptr @.result_fmt"}, extra...)
	g.e.emitInst("%%ignored = call i32 (ptr, ...) @printf(%s)", strings.Join(args, ", "))
}

// constOperand renders a host-side value.Value as an LLVM constant of
// type t, for the literal arguments @main passes to the entry function.
func constOperand(t types.Type, v value.Value) string {
	switch t.Kind() {
	case types.I32:
		return strconv.FormatInt(int64(v.I32()), 10)
	case types.I64:
		return strconv.FormatInt(v.I64(), 10)
	case types.F32:
		return formatFloatHex(float64(v.F32()))
	case types.F64:
		return formatFloatHex(v.F64())
	case types.Ptr:
		return fmt.Sprintf("inttoptr (i64 %d to ptr)", v.PtrAddr())
	}
	return "0"
}

// formatFloatHex renders f in LLVM's hexadecimal floating-point literal
// form, used for every float constant so host-computed values and
// JIT-compiled values never diverge on rounding.
func formatFloatHex(f float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(f))
}

// llvmEscapeString returns an LLVM IR escaped string literal body.
// Non-printable characters and backslash are escaped as \HH.
func llvmEscapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' || c < 0x20 || c >= 0x7f {
			fmt.Fprintf(&b, "\\%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func llvmTypeList(ts []types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = llvmType(t)
	}
	return strings.Join(parts, ", ")
}
