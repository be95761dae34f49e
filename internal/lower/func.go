package lower

import (
	"strings"

	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/types"
)

// builder holds the state for lowering a single function, mirroring the
// teacher's ssa.builder but fused with type checking since TILT has no
// separate types2 pass to consult. scope and declared span the whole
// function: a name bound in one block stays visible in every block
// lowered after it, exactly as lowering_rs's value_map is a single map
// cleared once per function, not once per block.
type builder struct {
	mod  *ir.Module
	sigs map[string]signature
	add  func(*Error)

	fn     *ir.Func
	blocks map[string]*ir.Block

	scope    map[string]*ir.Value
	declared map[string]bool
}

// lowerFunc builds fn's blocks and instructions from fd, type-checking
// every instruction and terminator as it goes.
func lowerFunc(fd *syntax.FuncDecl, mod *ir.Module, sigs map[string]signature, add func(*Error)) *ir.Func {
	fn := ir.NewFunc(fd.Name, sigs[fd.Name].resultType)
	b := &builder{
		mod: mod, sigs: sigs, add: add, fn: fn,
		blocks:   make(map[string]*ir.Block),
		scope:    make(map[string]*ir.Value),
		declared: make(map[string]bool),
	}

	if len(fd.Blocks) == 0 {
		add(newError(MissingTerminator, fd.Pos(), "function %q has no blocks", fd.Name))
		return fn
	}

	blockAt := make([]*ir.Block, len(fd.Blocks))
	for i, bd := range fd.Blocks {
		if _, dup := b.blocks[bd.Label]; dup {
			add(newError(DuplicateName, bd.Pos(), "block %q already declared", bd.Label))
			continue
		}
		blk := fn.NewBlock(bd.Label)
		b.blocks[bd.Label] = blk
		blockAt[i] = blk
		for _, p := range bd.Params {
			t, ok := types.ByName(p.Type.Name)
			if !ok {
				add(newError(UnknownName, p.Type.Pos(), "unknown type %q", p.Type.Name))
				continue
			}
			fn.NewParam(blk, p.Name, t, p.Pos())
			b.declared[p.Name] = true
		}
		for _, instr := range bd.Instrs {
			if instr.Name != "" {
				b.declared[instr.Name] = true
			}
		}
	}

	for i, bd := range fd.Blocks {
		if blockAt[i] == nil {
			continue // duplicate label, already reported
		}
		b.lowerBlock(bd, blockAt[i])
	}

	if err := ir.Verify(fn); err != nil {
		add(newError(TypeMismatch, fd.Pos(), "%v", err))
	}

	return fn
}

func (b *builder) lowerBlock(bd *syntax.Block, blk *ir.Block) {
	for _, p := range blk.Params {
		b.declare(p.Name, p.Pos, p)
	}

	for _, instr := range bd.Instrs {
		b.lowerInstr(instr, blk)
	}

	if bd.Term == nil {
		b.add(newError(MissingTerminator, bd.Pos(), "block %q has no terminator", bd.Label))
	} else {
		b.lowerTerm(bd.Term, blk)
	}

	b.fn.Link(blk)
}

// declare binds name to v in the function-wide scope, reporting a
// DuplicateName error instead of overwriting an existing binding — TILT
// has no shadowing, matching lowering.rs's register_variable.
func (b *builder) declare(name string, pos syntax.Pos, v *ir.Value) {
	if name == "" || v == nil {
		return
	}
	if _, dup := b.scope[name]; dup {
		b.add(newError(DuplicateName, pos, "%q already declared in this function", name))
		return
	}
	b.scope[name] = v
}

// resolveOperand resolves one operand to a *ir.Value of type want. An
// integer literal is materialized as a fresh const instruction in blk; a
// name is looked up in the function-wide scope. declared distinguishes a
// name that is bound somewhere else in this function (UseBeforeDef —
// e.g. a forward reference within a single block) from one that never
// exists anywhere in it (UnknownName).
func (b *builder) resolveOperand(opnd *syntax.Operand, blk *ir.Block, want types.Type) *ir.Value {
	switch opnd.Kind {
	case syntax.OperandInt:
		var op ir.Op
		switch {
		case want != nil && want.Kind() == types.I32:
			op = ir.OpConstI32
		case want != nil && want.Kind() == types.I64:
			op = ir.OpConstI64
		default:
			b.add(newError(TypeMismatch, opnd.Pos(), "integer literal is not valid for type %s", typeString(want)))
			return nil
		}
		v := b.fn.NewValue(blk, "", op, want, opnd.Pos())
		v.AuxInt = opnd.Int
		return v

	case syntax.OperandName:
		if v, ok := b.scope[opnd.Name]; ok {
			return v
		}
		if b.declared[opnd.Name] {
			b.add(newError(UseBeforeDef, opnd.Pos(), "%q is used before it is defined", opnd.Name))
		} else {
			b.add(newError(UnknownName, opnd.Pos(), "unknown name %q", opnd.Name))
		}
		return nil
	}
	return nil
}

// checkType reports a TypeMismatch if got isn't want, identifying the
// operand by desc in the message.
func (b *builder) checkType(pos syntax.Pos, desc string, want, got types.Type) bool {
	if got == nil || want == nil || got.Kind() != want.Kind() {
		b.add(newError(TypeMismatch, pos, "%s has type %s, want %s", desc, typeString(got), typeString(want)))
		return false
	}
	return true
}

// checkAssign validates that instr binds a named result of exactly
// wantType (wantType == nil means a void instruction).
func (b *builder) checkAssign(instr *syntax.Instr, wantType types.Type) bool {
	if wantType == nil {
		if instr.Name != "" {
			b.add(newError(TypeMismatch, instr.Pos(), "%s is void, cannot bind a result", instr.Op))
			return false
		}
		return true
	}
	if instr.Name == "" {
		b.add(newError(TypeMismatch, instr.Pos(), "%s must bind a result", instr.Op))
		return false
	}
	declTyp, ok := types.ByName(instr.Type.Name)
	if !ok {
		b.add(newError(UnknownName, instr.Type.Pos(), "unknown type %q", instr.Type.Name))
		return false
	}
	if declTyp.Kind() != wantType.Kind() {
		b.add(newError(TypeMismatch, instr.Type.Pos(), "%s declared as %s, but %s produces %s", instr.Name, declTyp, instr.Op, wantType))
		return false
	}
	return true
}

func typeString(t types.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}

func (b *builder) lowerInstr(instr *syntax.Instr, blk *ir.Block) {
	// A named instruction that fails to lower still binds its name, to a
	// placeholder of its declared type that belongs to no block's Values,
	// so later uses of the name add no cascading UseBeforeDef error.
	defer func() {
		if instr.Name == "" || instr.Type == nil {
			return
		}
		if _, bound := b.scope[instr.Name]; bound {
			return
		}
		if t, ok := types.ByName(instr.Type.Name); ok {
			b.scope[instr.Name] = &ir.Value{Name: instr.Name, Type: t, Block: blk, Pos: instr.Pos()}
		}
	}()

	ro, ok := splitOp(instr.Op)
	if !ok {
		if i := strings.IndexByte(instr.Op, '.'); i >= 0 {
			head, tail := instr.Op[:i], instr.Op[i+1:]
			if headTyp, headOk := types.ByName(head); headOk && types.IsFloat(headTyp) && floatArithVerbs[tail] {
				b.add(newError(TypeMismatch, instr.Pos(), "%s is not defined: floating-point operands do not support arithmetic or comparison", instr.Op))
				return
			}
		}
		b.add(newError(UnknownOp, instr.Pos(), "unknown operation %q", instr.Op))
		return
	}

	switch ro.op {
	case ir.OpCall:
		b.lowerCall(instr, blk)
	case ir.OpAlloc:
		b.lowerAlloc(instr, blk)
	case ir.OpFree:
		b.lowerFree(instr, blk)
	case ir.OpSizeof:
		b.lowerSizeof(ro, instr, blk)
	case ir.OpLoad:
		b.lowerLoad(ro, instr, blk)
	case ir.OpStore:
		b.lowerStore(ro, instr, blk)
	case ir.OpConstI32, ir.OpConstI64, ir.OpConstF32, ir.OpConstF64:
		b.lowerConst(ro, instr, blk)
	case ir.OpPtrAdd:
		b.lowerPtrAdd(ro, instr, blk)
	default:
		b.lowerBinOp(ro, instr, blk)
	}
}

func (b *builder) bind(instr *syntax.Instr, v *ir.Value) {
	b.declare(instr.Name, instr.Pos(), v)
}

func (b *builder) lowerConst(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 1 || instr.Args[0].Kind != syntax.OperandInt {
		b.add(newError(ArityMismatch, instr.Pos(), "%s takes exactly one integer literal argument", instr.Op))
		return
	}
	if !b.checkAssign(instr, ro.typ) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ro.op, ro.typ, instr.Pos())
	v.AuxInt = instr.Args[0].Int
	b.declare(instr.Name, instr.Pos(), v)
}

func (b *builder) lowerBinOp(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 2 {
		b.add(newError(ArityMismatch, instr.Pos(), "%s takes exactly two arguments, got %d", instr.Op, len(instr.Args)))
		return
	}
	lhs := b.resolveOperand(instr.Args[0], blk, ro.typ)
	rhs := b.resolveOperand(instr.Args[1], blk, ro.typ)
	if lhs == nil || rhs == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), instr.Op+"'s first argument", ro.typ, lhs.Type)
	b.checkType(instr.Args[1].Pos(), instr.Op+"'s second argument", ro.typ, rhs.Type)

	resultType := ro.typ
	if isCompareOp(ro.op) {
		resultType = types.Typ[types.I32]
	}
	if !b.checkAssign(instr, resultType) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ro.op, resultType, instr.Pos(), lhs, rhs)
	b.bind(instr, v)
}

func isCompareOp(op ir.Op) bool {
	switch op {
	case ir.OpEqI32, ir.OpLtI32, ir.OpEqI64, ir.OpLtI64, ir.OpEqPtr, ir.OpLtPtr:
		return true
	}
	return false
}

func (b *builder) lowerPtrAdd(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 2 {
		b.add(newError(ArityMismatch, instr.Pos(), "ptr.add takes exactly two arguments, got %d", len(instr.Args)))
		return
	}
	p := b.resolveOperand(instr.Args[0], blk, types.Typ[types.Ptr])
	off := b.resolveOperand(instr.Args[1], blk, types.Typ[types.I64])
	if p == nil || off == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), "ptr.add's first argument", types.Typ[types.Ptr], p.Type)
	b.checkType(instr.Args[1].Pos(), "ptr.add's byte offset", types.Typ[types.I64], off.Type)
	if !b.checkAssign(instr, types.Typ[types.Ptr]) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ir.OpPtrAdd, types.Typ[types.Ptr], instr.Pos(), p, off)
	b.bind(instr, v)
}

func (b *builder) lowerLoad(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 1 {
		b.add(newError(ArityMismatch, instr.Pos(), "%s takes exactly one argument, got %d", instr.Op, len(instr.Args)))
		return
	}
	p := b.resolveOperand(instr.Args[0], blk, types.Typ[types.Ptr])
	if p == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), instr.Op+"'s argument", types.Typ[types.Ptr], p.Type)
	if !b.checkAssign(instr, ro.typ) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ir.OpLoad, ro.typ, instr.Pos(), p)
	b.bind(instr, v)
}

func (b *builder) lowerStore(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 2 {
		b.add(newError(ArityMismatch, instr.Pos(), "%s takes exactly two arguments, got %d", instr.Op, len(instr.Args)))
		return
	}
	p := b.resolveOperand(instr.Args[0], blk, types.Typ[types.Ptr])
	val := b.resolveOperand(instr.Args[1], blk, ro.typ)
	if p == nil || val == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), instr.Op+"'s address", types.Typ[types.Ptr], p.Type)
	b.checkType(instr.Args[1].Pos(), instr.Op+"'s value", ro.typ, val.Type)
	if !b.checkAssign(instr, nil) {
		return
	}
	b.fn.NewValue(blk, "", ir.OpStore, nil, instr.Pos(), p, val)
}

func (b *builder) lowerSizeof(ro resolvedOp, instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 0 {
		b.add(newError(ArityMismatch, instr.Pos(), "%s takes no arguments, got %d", instr.Op, len(instr.Args)))
		return
	}
	if ro.typ.Kind() == types.Void {
		b.add(newError(TypeMismatch, instr.Pos(), "sizeof.void is not valid"))
		return
	}
	if !b.checkAssign(instr, types.Typ[types.I64]) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ir.OpSizeof, types.Typ[types.I64], instr.Pos())
	v.AuxType = ro.typ
	b.declare(instr.Name, instr.Pos(), v)
}

func (b *builder) lowerAlloc(instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 1 {
		b.add(newError(ArityMismatch, instr.Pos(), "alloc takes exactly one argument, got %d", len(instr.Args)))
		return
	}
	size := b.resolveOperand(instr.Args[0], blk, types.Typ[types.I64])
	if size == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), "alloc's size", types.Typ[types.I64], size.Type)
	if !b.checkAssign(instr, types.Typ[types.Ptr]) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ir.OpAlloc, types.Typ[types.Ptr], instr.Pos(), size)
	b.bind(instr, v)
}

func (b *builder) lowerFree(instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) != 1 {
		b.add(newError(ArityMismatch, instr.Pos(), "free takes exactly one argument, got %d", len(instr.Args)))
		return
	}
	p := b.resolveOperand(instr.Args[0], blk, types.Typ[types.Ptr])
	if p == nil {
		return
	}
	b.checkType(instr.Args[0].Pos(), "free's argument", types.Typ[types.Ptr], p.Type)
	if !b.checkAssign(instr, nil) {
		return
	}
	b.fn.NewValue(blk, "", ir.OpFree, nil, instr.Pos(), p)
}

func (b *builder) lowerCall(instr *syntax.Instr, blk *ir.Block) {
	if len(instr.Args) < 1 || instr.Args[0].Kind != syntax.OperandName {
		b.add(newError(ArityMismatch, instr.Pos(), "call requires a function or import name as its first argument"))
		return
	}
	calleeName := instr.Args[0].Name

	var paramTypes []types.Type
	var resultType types.Type
	if sig, ok := b.sigs[calleeName]; ok {
		paramTypes, resultType = sig.paramTypes, sig.resultType
	} else if imp := b.mod.FindImport(calleeName); imp != nil {
		paramTypes, resultType = imp.ParamTypes, imp.Result
	} else {
		kind := UnknownName
		if strings.Contains(calleeName, ".") {
			kind = UnknownImport
		}
		b.add(newError(kind, instr.Args[0].Pos(), "unknown call target %q", calleeName))
		return
	}

	actualArgs := instr.Args[1:]
	if len(actualArgs) != len(paramTypes) {
		b.add(newError(ArityMismatch, instr.Pos(), "call to %q takes %d argument(s), got %d", calleeName, len(paramTypes), len(actualArgs)))
		return
	}

	argVals := make([]*ir.Value, len(actualArgs))
	ok := true
	for i, a := range actualArgs {
		v := b.resolveOperand(a, blk, paramTypes[i])
		if v == nil {
			ok = false
			continue
		}
		b.checkType(a.Pos(), "call argument", paramTypes[i], v.Type)
		argVals[i] = v
	}
	if !ok {
		return
	}
	if !b.checkAssign(instr, resultType) {
		return
	}
	v := b.fn.NewValue(blk, instr.Name, ir.OpCall, resultType, instr.Pos(), argVals...)
	v.Callee = calleeName
	b.bind(instr, v)
}

func (b *builder) lowerTerm(term syntax.Terminator, blk *ir.Block) {
	switch t := term.(type) {
	case *syntax.RetTerm:
		b.lowerRet(t, blk)
	case *syntax.BrTerm:
		b.lowerBr(t, blk)
	case *syntax.BrIfTerm:
		b.lowerBrIf(t, blk)
	}
}

func (b *builder) lowerRet(t *syntax.RetTerm, blk *ir.Block) {
	want := b.fn.ResultType
	if t.Value == nil {
		if want != nil {
			b.add(newError(RetMismatch, t.Pos(), "bare ret in a function returning %s", want))
			return
		}
		blk.Term = &ir.Term{Kind: ir.TermRet}
		return
	}
	if want == nil {
		b.add(newError(RetMismatch, t.Pos(), "ret with a value in a void function"))
		return
	}
	v := b.resolveOperand(t.Value, blk, want)
	if v == nil {
		return
	}
	b.checkType(t.Value.Pos(), "ret value", want, v.Type)
	blk.Term = &ir.Term{Kind: ir.TermRet, Value: v}
}

func (b *builder) resolveTarget(label string, pos syntax.Pos) *ir.Block {
	target, ok := b.blocks[label]
	if !ok {
		b.add(newError(UnknownLabel, pos, "unknown block %q", label))
		return nil
	}
	return target
}

func (b *builder) resolveArgs(args []*syntax.Operand, target *ir.Block, blk *ir.Block, pos syntax.Pos) []*ir.Value {
	if target == nil {
		return nil
	}
	if len(args) != len(target.Params) {
		b.add(newError(ArityMismatch, pos, "branch to %q passes %d argument(s), want %d", target.Label, len(args), len(target.Params)))
		return nil
	}
	out := make([]*ir.Value, len(args))
	for i, a := range args {
		v := b.resolveOperand(a, blk, target.Params[i].Type)
		if v == nil {
			return nil
		}
		b.checkType(a.Pos(), "branch argument", target.Params[i].Type, v.Type)
		out[i] = v
	}
	return out
}

func (b *builder) lowerBr(t *syntax.BrTerm, blk *ir.Block) {
	target := b.resolveTarget(t.Target, t.Pos())
	args := b.resolveArgs(t.TargetArgs, target, blk, t.Pos())
	if target == nil || args == nil {
		return
	}
	blk.Term = &ir.Term{Kind: ir.TermBr, Target: target, TargetArgs: args}
}

func (b *builder) lowerBrIf(t *syntax.BrIfTerm, blk *ir.Block) {
	cond := b.resolveOperand(t.Cond, blk, types.Typ[types.I32])
	if cond != nil {
		b.checkType(t.Cond.Pos(), "br_if condition", types.Typ[types.I32], cond.Type)
	}
	then := b.resolveTarget(t.Then, t.Pos())
	els := b.resolveTarget(t.Else, t.Pos())
	thenArgs := b.resolveArgs(t.ThenArgs, then, blk, t.Pos())
	elseArgs := b.resolveArgs(t.ElseArgs, els, blk, t.Pos())
	if cond == nil || then == nil || els == nil || thenArgs == nil || elseArgs == nil {
		return
	}
	blk.Term = &ir.Term{
		Kind: ir.TermBrIf, Cond: cond,
		Then: then, ThenArgs: thenArgs,
		Else: els, ElseArgs: elseArgs,
	}
}
