package lower

import (
	"strings"
	"testing"

	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/syntax"
)

func parse(t *testing.T, src string) *syntax.File {
	t.Helper()
	var errs []string
	f, err := syntax.ParseFile("test.tilt", strings.NewReader(src), func(pos syntax.Pos, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	})
	if err != nil || len(errs) > 0 {
		t.Fatalf("parse error: %v %v", err, errs)
	}
	return f
}

func TestFileValidPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"arithmetic", `
fn main() -> i32 {
entry():
  a: i32 = i32.const(10)
  b: i32 = i32.const(20)
  s: i32 = i32.add(a, b)
  ret s
}
`},
		{"void_function_and_call", `
import host.print_i32(i32) -> void

fn report(v: i32) -> void {
entry(v: i32):
  call(host.print_i32, v)
  ret
}

fn main() -> i32 {
entry():
  v: i32 = i32.const(1)
  call(report, v)
  ret v
}
`},
		{"branch_with_params", `
fn main() -> i32 {
entry():
  zero: i32 = i32.const(0)
  br done(zero)

done(v: i32):
  ret v
}
`},
		{"memory", `
fn main() -> i32 {
entry():
  size: i64 = i64.const(4)
  p: ptr = alloc(size)
  ten: i32 = i32.const(10)
  store.i32(p, ten)
  v: i32 = load.i32(p)
  free(p)
  ret v
}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.src)
			mod, errs := File(f)
			if len(errs) > 0 {
				t.Fatalf("unexpected lowering errors: %v", errs)
			}
			if mod == nil || len(mod.Funcs) == 0 {
				t.Fatalf("expected at least one lowered function")
			}
		})
	}
}

func TestFileErrorCases(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Kind
	}{
		{"duplicate_function", `
fn main() -> i32 {
entry():
  r: i32 = i32.const(0)
  ret r
}
fn main() -> i32 {
entry():
  r: i32 = i32.const(0)
  ret r
}
`, DuplicateName},
		{"unknown_name", `
fn main() -> i32 {
entry():
  r: i32 = i32.add(missing, missing)
  ret r
}
`, UnknownName},
		{"use_before_def", `
fn main() -> i32 {
entry():
  r: i32 = i32.add(later, later)
  later: i32 = i32.const(1)
  ret r
}
`, UseBeforeDef},
		{"unknown_label", `
fn main() -> i32 {
entry():
  br nowhere()
}
`, UnknownLabel},
		{"arity_mismatch", `
fn main() -> i32 {
entry():
  r: i32 = i32.add(one)
  ret r
}
`, ArityMismatch},
		{"type_mismatch", `
fn main() -> i32 {
entry():
  n: i32 = i32.const(4)
  p: ptr = alloc(n)
  ret n
}
`, TypeMismatch},
		{"missing_terminator", `
fn main() -> i32 {
}
`, MissingTerminator},
		{"ret_mismatch", `
fn main() -> i32 {
entry():
  ret
}
`, RetMismatch},
		{"unknown_op", `
fn main() -> i32 {
entry():
  r: i32 = bogus.op(1)
  ret r
}
`, UnknownOp},
		{"unknown_import", `
fn main() -> i32 {
entry():
  r: i32 = call(host.nope)
  ret r
}
`, UnknownImport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parse(t, tt.src)
			_, errs := File(f)
			if len(errs) == 0 {
				t.Fatalf("expected a lowering error, got none")
			}
			found := false
			for _, e := range errs {
				if e.Kind == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want one of kind %s", errs, tt.want)
			}
		})
	}
}

func TestFileRejectsFloatArithmetic(t *testing.T) {
	src := `
fn main() -> f32 {
entry():
  a: f32 = f32.const(0)
  b: f32 = f32.const(0)
  s: f32 = f32.add(a, b)
  ret s
}
`
	f := parse(t, src)
	_, errs := File(f)
	if len(errs) == 0 {
		t.Fatalf("expected an error rejecting float arithmetic")
	}
	for _, e := range errs {
		if e.Kind != TypeMismatch {
			t.Errorf("got error kind %s, want TypeMismatch", e.Kind)
		}
	}
}

func TestFileNameScopeIsFunctionWide(t *testing.T) {
	// A value computed in one block stays visible in every block lowered
	// after it, with no block parameter required to carry it across.
	src := `
fn main() -> i32 {
entry():
  zero: i32 = i32.const(0)
  br other()

other():
  r: i32 = i32.add(zero, zero)
  ret r
}
`
	f := parse(t, src)
	_, errs := File(f)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestFileDuplicateNameAcrossBlocksIsError(t *testing.T) {
	// Re-declaring the same name in a later block is an error: TILT has
	// exactly one function-wide name scope, with no shadowing.
	src := `
fn main() -> i32 {
entry():
  zero: i32 = i32.const(0)
  br other()

other():
  zero: i32 = i32.const(1)
  ret zero
}
`
	f := parse(t, src)
	_, errs := File(f)
	if len(errs) == 0 {
		t.Fatalf("expected a DuplicateName error")
	}
	if errs[0].Kind != DuplicateName {
		t.Errorf("got %s, want DuplicateName", errs[0].Kind)
	}
}

func TestFileRecursiveCall(t *testing.T) {
	src := `
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
	f := parse(t, src)
	mod, errs := File(f)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	fn := mod.FindFunc("factorial")
	if fn == nil {
		t.Fatalf("factorial not found in module")
	}
	if err := ir.Verify(fn); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}
