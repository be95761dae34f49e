package syntax

import (
	"strings"
	"testing"
)

const factorialSrc = `
import host.print_i32(i32) -> void

fn factorial(n: i32) -> i32 {
entry(n: i32):
  one: i32 = i32.const(1)
  cond: i32 = i32.lt(n, one)
  br_if cond, base(), rec()

base():
  ret one

rec():
  n1: i32 = i32.sub(n, one)
  r: i32 = call(factorial, n1)
  result: i32 = i32.mul(n, r)
  ret result
}
`

func TestParseFile(t *testing.T) {
	var errs []string
	f, err := ParseFile("factorial.tilt", strings.NewReader(factorialSrc), func(pos Pos, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	})
	if err != nil {
		t.Fatalf("ParseFile error: %v (scan errors: %v)", err, errs)
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}

	if len(f.Imports) != 1 {
		t.Fatalf("len(Imports) = %d, want 1", len(f.Imports))
	}
	imp := f.Imports[0]
	if imp.Name != "host.print_i32" || len(imp.ParamTypes) != 1 || imp.ParamTypes[0].Name != "i32" || imp.Result.Name != "void" {
		t.Errorf("unexpected import decl: %+v", imp)
	}

	if len(f.Funcs) != 1 {
		t.Fatalf("len(Funcs) = %d, want 1", len(f.Funcs))
	}
	fn := f.Funcs[0]
	if fn.Name != "factorial" || len(fn.Params) != 1 || fn.Params[0].Name != "n" {
		t.Errorf("unexpected func signature: %+v", fn)
	}
	if len(fn.Blocks) != 3 {
		t.Fatalf("len(Blocks) = %d, want 3", len(fn.Blocks))
	}

	entry := fn.Blocks[0]
	if entry.Label != "entry" || len(entry.Params) != 1 {
		t.Fatalf("unexpected entry block: %+v", entry)
	}
	if len(entry.Instrs) != 2 {
		t.Fatalf("len(entry.Instrs) = %d, want 2", len(entry.Instrs))
	}
	if _, ok := entry.Term.(*BrIfTerm); !ok {
		t.Fatalf("entry terminator = %T, want *BrIfTerm", entry.Term)
	}

	base := fn.Blocks[1]
	ret, ok := base.Term.(*RetTerm)
	if !ok || ret.Value == nil || ret.Value.Name != "one" {
		t.Fatalf("unexpected base terminator: %+v", base.Term)
	}

	rec := fn.Blocks[2]
	if len(rec.Instrs) != 3 {
		t.Fatalf("len(rec.Instrs) = %d, want 3", len(rec.Instrs))
	}
	call := rec.Instrs[1]
	if call.Op != "call" || len(call.Args) != 2 || call.Args[0].Name != "factorial" {
		t.Fatalf("unexpected call instr: %+v", call)
	}
}

func TestParseVoidInstrAndBr(t *testing.T) {
	src := `
fn store_and_jump(p: ptr, v: i32) -> void {
entry(p: ptr, v: i32):
  store.i32(p, v)
  br done()

done():
  ret
}
`
	f, err := ParseFile("t.tilt", strings.NewReader(src), nil)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	fn := f.Funcs[0]
	entry := fn.Blocks[0]
	if len(entry.Instrs) != 1 {
		t.Fatalf("len(Instrs) = %d, want 1", len(entry.Instrs))
	}
	in := entry.Instrs[0]
	if in.Name != "" || in.Type != nil || in.Op != "store.i32" || len(in.Args) != 2 {
		t.Fatalf("unexpected void instr: %+v", in)
	}
	br, ok := entry.Term.(*BrTerm)
	if !ok || br.Target != "done" {
		t.Fatalf("unexpected terminator: %+v", entry.Term)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing arrow", "fn f(n: i32) i32 { entry(): ret }"},
		{"missing terminator", "fn f() -> void { entry(): }"},
		{"unclosed paren", "fn f(n: i32 -> void { entry(): ret }"},
		{"bad top level", "let x = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errs []string
			_, err := ParseFile("bad.tilt", strings.NewReader(tt.src), func(pos Pos, msg string) {
				errs = append(errs, msg)
			})
			if err == nil && len(errs) == 0 {
				t.Fatalf("expected a syntax error for %q", tt.src)
			}
		})
	}
}
