package ir

import (
	"fmt"
	"strings"

	"github.com/tilt-lang/tilt/internal/types"
)

// Verify checks the structural integrity of a lowered function. Lowering
// runs it on every function it builds and reports any failure as a
// lowering error. Lowering does not check these invariants itself, so
// besides a bug in the lowering pass, a source program fails here when a
// block is unreachable from the entry block, when a block branches back
// to the entry block, or when an earlier lowering error left a block
// without a terminator.
func Verify(f *Func) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if f.Entry == nil || len(f.Blocks) == 0 {
		add("func %s: no blocks", f.Name)
		return combineErrors(errs)
	}
	if f.Blocks[0] != f.Entry {
		add("func %s: Blocks[0] is not the entry block", f.Name)
	}
	if len(f.Entry.Preds) != 0 {
		add("func %s: entry block %s has %d predecessors, want 0", f.Name, f.Entry, len(f.Entry.Preds))
	}

	blocks := make(map[*Block]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		blocks[b] = true
	}

	for _, b := range f.Blocks {
		if b.Func != f {
			add("func %s, %s: Func pointer mismatch", f.Name, b)
		}
		if b.Term == nil {
			add("func %s, %s: missing terminator", f.Name, b)
			continue
		}
		switch b.Term.Kind {
		case TermRet:
			isVoid := f.ResultType == nil || f.ResultType.Kind() == types.Void
			if isVoid && b.Term.Value != nil {
				add("func %s, %s: ret has a value in a void function", f.Name, b)
			}
			if !isVoid && b.Term.Value == nil {
				add("func %s, %s: bare ret in a non-void function", f.Name, b)
			}
		case TermBr:
			verifyTarget(add, f, b, b.Term.Target, b.Term.TargetArgs, blocks)
		case TermBrIf:
			if b.Term.Cond == nil {
				add("func %s, %s: br_if missing condition", f.Name, b)
			}
			verifyTarget(add, f, b, b.Term.Then, b.Term.ThenArgs, blocks)
			verifyTarget(add, f, b, b.Term.Else, b.Term.ElseArgs, blocks)
		default:
			add("func %s, %s: invalid terminator kind", f.Name, b)
		}
		for _, v := range b.Values {
			if v.Block != b {
				add("func %s, %s: value %s Block pointer mismatch", f.Name, b, v)
			}
		}
	}

	if ok, unreached := Reachable(f); !ok {
		for _, b := range unreached {
			add("func %s, %s: unreachable block", f.Name, b)
		}
	}

	return combineErrors(errs)
}

func verifyTarget(add func(string, ...interface{}), f *Func, from, target *Block, args []*Value, blocks map[*Block]bool) {
	if target == nil {
		add("func %s, %s: branch to nil block", f.Name, from)
		return
	}
	if !blocks[target] {
		add("func %s, %s: branch to block %s outside function", f.Name, from, target)
		return
	}
	if len(args) != len(target.Params) {
		add("func %s, %s: branch to %s passes %d args, want %d", f.Name, from, target, len(args), len(target.Params))
		return
	}
	for i, a := range args {
		if a.Type == nil || target.Params[i].Type == nil || a.Type.Kind() != target.Params[i].Type.Kind() {
			add("func %s, %s: branch to %s arg %d has wrong type", f.Name, from, target, i)
		}
	}
}

func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("IR verification failed:\n  %s", strings.Join(errs, "\n  "))
}
