package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes f back out in its surface syntax, the way the scanner and
// parser understand it. Used by tiltc --show-ast: the output should read
// like the original program with `#` comments stripped.
func Fprint(w io.Writer, f *File) {
	for _, imp := range f.Imports {
		fmt.Fprintf(w, "import %s(%s) -> %s\n", imp.Name, typeList(imp.ParamTypes), imp.Result.Name)
	}
	if len(f.Imports) > 0 {
		fmt.Fprintln(w)
	}
	for i, fn := range f.Funcs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printFunc(w, fn)
	}
}

func printFunc(w io.Writer, fn *FuncDecl) {
	fmt.Fprintf(w, "fn %s(%s) -> %s {\n", fn.Name, paramList(fn.Params), fn.Result.Name)
	for _, b := range fn.Blocks {
		printBlock(w, b)
	}
	fmt.Fprintln(w, "}")
}

func printBlock(w io.Writer, b *Block) {
	fmt.Fprintf(w, "%s(%s):\n", b.Label, paramList(b.Params))
	for _, instr := range b.Instrs {
		printInstr(w, instr)
	}
	printTerm(w, b.Term)
}

func printInstr(w io.Writer, in *Instr) {
	if in.Type != nil {
		fmt.Fprintf(w, "  %s: %s = %s(%s)\n", in.Name, in.Type.Name, in.Op, operandList(in.Args))
	} else {
		fmt.Fprintf(w, "  %s(%s)\n", in.Op, operandList(in.Args))
	}
}

func printTerm(w io.Writer, t Terminator) {
	switch t := t.(type) {
	case *RetTerm:
		if t.Value == nil {
			fmt.Fprintln(w, "  ret")
		} else {
			fmt.Fprintf(w, "  ret %s\n", operand(t.Value))
		}
	case *BrTerm:
		fmt.Fprintf(w, "  br %s(%s)\n", t.Target, operandList(t.TargetArgs))
	case *BrIfTerm:
		fmt.Fprintf(w, "  br_if %s, %s(%s), %s(%s)\n",
			operand(t.Cond), t.Then, operandList(t.ThenArgs), t.Else, operandList(t.ElseArgs))
	}
}

func paramList(params []*Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Type.Name
	}
	return strings.Join(parts, ", ")
}

func typeList(types []*TypeName) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.Name
	}
	return strings.Join(parts, ", ")
}

func operandList(args []*Operand) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = operand(a)
	}
	return strings.Join(parts, ", ")
}

func operand(o *Operand) string {
	if o.Kind == OperandInt {
		return fmt.Sprintf("%d", o.Int)
	}
	return o.Name
}
