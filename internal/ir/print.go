package ir

import (
	"fmt"
	"io"

	"github.com/tilt-lang/tilt/internal/types"
)

// Fprint writes m's lowered IR in RPO block order, for tiltc --show-ir.
func Fprint(w io.Writer, m *Module) {
	for _, imp := range m.Imports {
		fmt.Fprintf(w, "import %s(%s) -> %s\n", imp.Name, typeList(imp.ParamTypes), typeString(imp.Result))
	}
	if len(m.Imports) > 0 {
		fmt.Fprintln(w)
	}
	for i, f := range m.Funcs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		FprintFunc(w, f)
	}
}

// FprintFunc writes a single function's IR.
func FprintFunc(w io.Writer, f *Func) {
	fmt.Fprintf(w, "fn %s(%s) -> %s {\n", f.Name, paramList(f.Params()), typeString(f.ResultType))
	for _, b := range ReversePostOrder(f) {
		fmt.Fprintf(w, "%s(%s):\n", b, paramList(b.Params))
		for _, v := range b.Values {
			fmt.Fprintf(w, "  %s\n", v.LongString())
		}
		fmt.Fprintf(w, "  %s\n", termString(b.Term))
	}
	fmt.Fprintln(w, "}")
}

func termString(t *Term) string {
	if t == nil {
		return "<missing terminator>"
	}
	switch t.Kind {
	case TermRet:
		if t.Value == nil {
			return "ret"
		}
		return "ret " + t.Value.String()
	case TermBr:
		return fmt.Sprintf("br %s(%s)", t.Target, valueList(t.TargetArgs))
	case TermBrIf:
		return fmt.Sprintf("br_if %s, %s(%s), %s(%s)",
			t.Cond, t.Then, valueList(t.ThenArgs), t.Else, valueList(t.ElseArgs))
	default:
		return "<invalid terminator>"
	}
}

func paramList(params []*Value) string {
	s := ""
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += p.LongString()
	}
	return s
}

func valueList(vs []*Value) string {
	s := ""
	for i, v := range vs {
		if i > 0 {
			s += ", "
		}
		s += v.String()
	}
	return s
}

func typeList(ts []types.Type) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s
}

func typeString(t types.Type) string {
	if t == nil {
		return "void"
	}
	return t.String()
}
