// Package vm implements TILT's tree/IR interpreter: a direct, eager
// evaluator over *ir.Func that never lowers to any other representation.
// It is grounded on the teacher's ssa.builder's use of a per-function
// value environment, adapted from a build-time symbol table to a
// run-time one.
package vm

import (
	"fmt"

	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/types"
	"github.com/tilt-lang/tilt/internal/value"
)

// frame is one call's activation record: the function being evaluated
// and a mapping from SSA name to the value it produced (the block
// currently executing is tracked by call). A frame is dropped the instant its call returns;
// the VM keeps no heap of dead frames.
type frame struct {
	fn  *ir.Func
	env map[*ir.Value]value.Value
}

func (fr *frame) get(v *ir.Value) value.Value {
	val, ok := fr.env[v]
	if !ok {
		panic(fmt.Sprintf("vm: %s used before it was evaluated in %s", v, fr.fn.Name))
	}
	return val
}

// Interp evaluates a *ir.Module's functions against a shared Simulated
// heap. One Interp is reused across every call a run makes, including
// recursive ones, the way a single Simulated is the heap for an entire
// program's lifetime.
type Interp struct {
	mod *ir.Module
	abi *hostabi.Simulated

	// stack bounds recursion so a runaway TILT program faults instead of
	// exhausting the Go goroutine stack.
	depth    int
	maxDepth int
}

// New creates an interpreter for mod backed by abi.
func New(mod *ir.Module, abi *hostabi.Simulated) *Interp {
	return &Interp{mod: mod, abi: abi, maxDepth: 10000}
}

// Run evaluates entryFunc with args and returns its final tagged value.
// A fault (division by zero, an out-of-bounds or use-after-free access,
// stack overflow) is returned as an error, not a panic: the VM is the
// engine most able to detect undefined behavior, and spec.md §7 treats
// every one of these as a fatal but orderly termination.
func (in *Interp) Run(entryFunc string, args []value.Value) (result value.Value, err error) {
	fn := in.mod.FindFunc(entryFunc)
	if fn == nil {
		return value.Value{}, fmt.Errorf("vm: no function named %q", entryFunc)
	}
	if len(args) != len(fn.Params()) {
		return value.Value{}, fmt.Errorf("vm: %s takes %d argument(s), got %d", entryFunc, len(fn.Params()), len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			if f, ok := r.(*hostabi.Fault); ok {
				err = f
				return
			}
			err = fmt.Errorf("vm: %v", r)
		}
	}()

	return in.call(fn, args), nil
}

// call evaluates fn with args already type-checked by lowering, running
// it to completion and returning its result value (the zero Value for a
// void function).
func (in *Interp) call(fn *ir.Func, args []value.Value) value.Value {
	in.depth++
	if in.depth > in.maxDepth {
		panic(&hostabi.Fault{Msg: "stack overflow: recursion exceeded the VM's call depth limit"})
	}
	defer func() { in.depth-- }()

	fr := &frame{fn: fn, env: make(map[*ir.Value]value.Value, fn.NumValues())}
	for i, p := range fn.Params() {
		fr.env[p] = args[i]
	}

	blk := fn.Entry
	for {
		for _, instr := range blk.Values {
			fr.env[instr] = in.eval(fr, instr)
		}
		next, result, done := in.step(fr, blk)
		if done {
			return result
		}
		blk = next
	}
}

// step evaluates blk's terminator: it either names the next block to
// enter (after binding that block's params from the terminator's
// argument list) or completes the call, in which case done is true and
// result holds the call's final value.
func (in *Interp) step(fr *frame, blk *ir.Block) (next *ir.Block, result value.Value, done bool) {
	term := blk.Term
	switch term.Kind {
	case ir.TermRet:
		if term.Value == nil {
			return nil, value.Void(), true
		}
		return nil, fr.get(term.Value), true

	case ir.TermBr:
		in.bindParams(fr, term.Target, term.TargetArgs)
		return term.Target, value.Value{}, false

	case ir.TermBrIf:
		cond := fr.get(term.Cond)
		if cond.I32() != 0 {
			in.bindParams(fr, term.Then, term.ThenArgs)
			return term.Then, value.Value{}, false
		}
		in.bindParams(fr, term.Else, term.ElseArgs)
		return term.Else, value.Value{}, false
	}
	panic(fmt.Sprintf("vm: block %s has no valid terminator", blk))
}

// bindParams binds target's parameters to the values args evaluates to
// in the current frame, replacing the phi-node assignment step a
// traditional SSA interpreter would do on block entry.
func (in *Interp) bindParams(fr *frame, target *ir.Block, args []*ir.Value) {
	for i, p := range target.Params {
		fr.env[p] = fr.get(args[i])
	}
}

// eval computes one instruction's result value. Every arithmetic,
// comparison, memory, and call op TILT defines is handled here; there is
// no fallthrough case that silently produces a zero value, since
// lowering already rejected any op this switch doesn't know.
func (in *Interp) eval(fr *frame, v *ir.Value) value.Value {
	switch v.Op {
	case ir.OpConstI32:
		return value.I32(int32(v.AuxInt))
	case ir.OpConstI64:
		return value.I64(v.AuxInt)
	case ir.OpConstF32:
		return value.FromBits(types.F32, uint64(uint32(v.AuxInt)))
	case ir.OpConstF64:
		return value.FromBits(types.F64, uint64(v.AuxInt))

	case ir.OpAddI32:
		return value.I32(fr.get(v.Args[0]).I32() + fr.get(v.Args[1]).I32())
	case ir.OpSubI32:
		return value.I32(fr.get(v.Args[0]).I32() - fr.get(v.Args[1]).I32())
	case ir.OpMulI32:
		return value.I32(fr.get(v.Args[0]).I32() * fr.get(v.Args[1]).I32())
	case ir.OpDivI32:
		a, b := fr.get(v.Args[0]).I32(), fr.get(v.Args[1]).I32()
		if b == 0 {
			panic(&hostabi.Fault{Msg: "i32.div: division by zero"})
		}
		return value.I32(a / b)

	case ir.OpAddI64:
		return value.I64(fr.get(v.Args[0]).I64() + fr.get(v.Args[1]).I64())
	case ir.OpSubI64:
		return value.I64(fr.get(v.Args[0]).I64() - fr.get(v.Args[1]).I64())
	case ir.OpMulI64:
		return value.I64(fr.get(v.Args[0]).I64() * fr.get(v.Args[1]).I64())
	case ir.OpDivI64:
		a, b := fr.get(v.Args[0]).I64(), fr.get(v.Args[1]).I64()
		if b == 0 {
			panic(&hostabi.Fault{Msg: "i64.div: division by zero"})
		}
		return value.I64(a / b)

	case ir.OpEqI32:
		return boolI32(fr.get(v.Args[0]).I32() == fr.get(v.Args[1]).I32())
	case ir.OpLtI32:
		return boolI32(fr.get(v.Args[0]).I32() < fr.get(v.Args[1]).I32())
	case ir.OpEqI64:
		return boolI32(fr.get(v.Args[0]).I64() == fr.get(v.Args[1]).I64())
	case ir.OpLtI64:
		return boolI32(fr.get(v.Args[0]).I64() < fr.get(v.Args[1]).I64())
	case ir.OpEqPtr:
		return boolI32(fr.get(v.Args[0]).PtrAddr() == fr.get(v.Args[1]).PtrAddr())
	case ir.OpLtPtr:
		return boolI32(fr.get(v.Args[0]).PtrAddr() < fr.get(v.Args[1]).PtrAddr())

	case ir.OpSizeof:
		return value.I64(types.DefaultSizes.Sizeof(v.AuxType))

	case ir.OpPtrAdd:
		addr := fr.get(v.Args[0]).PtrAddr()
		off := fr.get(v.Args[1]).I64()
		return value.Ptr(addr + uint64(off))

	case ir.OpLoad:
		return in.load(fr, v)
	case ir.OpStore:
		in.store(fr, v)
		return value.Value{}

	case ir.OpAlloc:
		size := fr.get(v.Args[0]).I64()
		addr, err := in.abi.Alloc(size)
		if err != nil {
			panic(err)
		}
		return value.Ptr(addr)
	case ir.OpFree:
		if err := in.abi.Free(fr.get(v.Args[0]).PtrAddr()); err != nil {
			panic(err)
		}
		return value.Value{}

	case ir.OpCall:
		return in.evalCall(fr, v)
	}
	panic(fmt.Sprintf("vm: unhandled op %s", v.Op))
}

func boolI32(b bool) value.Value {
	if b {
		return value.I32(1)
	}
	return value.I32(0)
}

// load reads v's result type's worth of bytes from memory and
// reinterprets them as that type, giving TILT's load/store family its
// zero-cost reinterpretation semantics (spec.md §3).
func (in *Interp) load(fr *frame, v *ir.Value) value.Value {
	addr := fr.get(v.Args[0]).PtrAddr()
	n := types.DefaultSizes.Sizeof(v.Type)
	bytes, err := in.abi.Load(addr, n)
	if err != nil {
		panic(err)
	}
	return value.FromBits(v.Type.Kind(), bitsFromLE(bytes))
}

func (in *Interp) store(fr *frame, v *ir.Value) {
	addr := fr.get(v.Args[0]).PtrAddr()
	val := fr.get(v.Args[1])
	n := types.DefaultSizes.Sizeof(v.Args[1].Type)
	if err := in.abi.Store(addr, bitsToLE(val.Bits(), n)); err != nil {
		panic(err)
	}
}

func bitsFromLE(b []byte) uint64 {
	var v uint64
	for i, byt := range b {
		v |= uint64(byt) << (8 * i)
	}
	return v
}

func bitsToLE(bits uint64, n int64) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}

// evalCall dispatches a call to either another lowered function
// (recursive interpretation via in.call) or an imported host function
// (dispatched through the shared Simulated ABI).
func (in *Interp) evalCall(fr *frame, v *ir.Value) value.Value {
	args := make([]value.Value, len(v.Args))
	for i, a := range v.Args {
		args[i] = fr.get(a)
	}

	if callee := in.mod.FindFunc(v.Callee); callee != nil {
		return in.call(callee, args)
	}

	result, err := in.abi.CallHost(v.Callee, args)
	if err != nil {
		panic(err)
	}
	return result
}
