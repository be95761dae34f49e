// Package lower implements TILT's single fused type-check-and-lower
// pass: it walks a parsed *syntax.File and produces a type-checked
// *ir.Module, or a list of structured errors if it can't. There is no
// separate type-checking phase the way the teacher's compiler has
// internal/types2 — TILT's closed, six-type, no-inference type system
// is simple enough to check while building the IR, one instruction at a
// time, exactly as spec.md §4.1 specifies.
package lower

import (
	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/types"
)

// signature is a function's call-site shape, known before its body is
// lowered so a call can reference a function declared later in the file.
type signature struct {
	paramTypes []types.Type
	resultType types.Type
}

// File lowers a parsed file to a Module. It always collects every error
// it can find rather than stopping at the first one, the way the
// teacher's parser keeps scanning past a syntax error up to maxErrors.
func File(f *syntax.File) (*ir.Module, []*Error) {
	var errs []*Error
	add := func(e *Error) { errs = append(errs, e) }

	mod := &ir.Module{}

	seenImports := make(map[string]bool)
	for _, decl := range f.Imports {
		if seenImports[decl.Name] {
			add(newError(DuplicateName, decl.Pos(), "import %q already declared", decl.Name))
			continue
		}
		seenImports[decl.Name] = true

		known := false
		for _, k := range hostabi.KnownImports {
			if k == decl.Name {
				known = true
				break
			}
		}
		if !known {
			add(newError(UnknownImport, decl.Pos(), "unknown host import %q", decl.Name))
		}

		imp := &ir.Import{Name: decl.Name}
		for _, pt := range decl.ParamTypes {
			t, ok := types.ByName(pt.Name)
			if !ok {
				add(newError(UnknownName, pt.Pos(), "unknown type %q", pt.Name))
				continue
			}
			imp.ParamTypes = append(imp.ParamTypes, t)
		}
		imp.Result = resolveResultType(decl.Result, add)
		mod.Imports = append(mod.Imports, imp)
	}

	sigs := make(map[string]signature)
	var order []*syntax.FuncDecl
	seenFuncs := make(map[string]bool)
	for _, fd := range f.Funcs {
		if seenFuncs[fd.Name] || seenImports[fd.Name] {
			add(newError(DuplicateName, fd.Pos(), "function %q already declared", fd.Name))
			continue
		}
		seenFuncs[fd.Name] = true
		order = append(order, fd)

		sig := signature{resultType: resolveResultType(fd.Result, add)}
		for _, p := range fd.Params {
			t, ok := types.ByName(p.Type.Name)
			if !ok {
				add(newError(UnknownName, p.Type.Pos(), "unknown type %q", p.Type.Name))
				continue
			}
			sig.paramTypes = append(sig.paramTypes, t)
		}
		sigs[fd.Name] = sig
	}

	for _, fd := range order {
		fn := lowerFunc(fd, mod, sigs, add)
		mod.Funcs = append(mod.Funcs, fn)
	}

	return mod, errs
}

// resolveResultType resolves a possibly-nil *syntax.TypeName ("void" has
// no explicit token; an omitted result means void) to a types.Type,
// reporting an error and returning nil on an unknown name.
func resolveResultType(tn *syntax.TypeName, add func(*Error)) types.Type {
	if tn == nil {
		return nil
	}
	t, ok := types.ByName(tn.Name)
	if !ok {
		add(newError(UnknownName, tn.Pos(), "unknown type %q", tn.Name))
		return nil
	}
	if t.Kind() == types.Void {
		return nil
	}
	return t
}
