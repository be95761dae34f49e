package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/lower"
	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/value"
)

func run(t *testing.T, src string, args ...value.Value) (value.Value, error) {
	t.Helper()
	f, err := syntax.ParseFile("test.tilt", strings.NewReader(src), func(pos syntax.Pos, msg string) {
		t.Fatalf("parse error: %s: %s", pos, msg)
	})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	mod, errs := lower.File(f)
	if len(errs) > 0 {
		t.Fatalf("lower errors: %v", errs)
	}
	abi := hostabi.NewSimulated(&bytes.Buffer{})
	return New(mod, abi).Run("main", args)
}

func TestArithmetic(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  a: i32 = i32.const(10)
  b: i32 = i32.const(20)
  s: i32 = i32.add(a, b)
  ret s
}
`
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.I32() != 30 {
		t.Errorf("got %s, want I32(30)", got)
	}
}

func TestMemoryOverwrite(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  size: i64 = i64.const(4)
  p: ptr = alloc(size)
  ten: i32 = i32.const(10)
  twenty: i32 = i32.const(20)
  store.i32(p, ten)
  store.i32(p, twenty)
  v: i32 = load.i32(p)
  free(p)
  ret v
}
`
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.I32() != 20 {
		t.Errorf("got %s, want I32(20)", got)
	}
}

func TestPointerArithmeticSum(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  size: i64 = i64.const(8)
  p: ptr = alloc(size)
  ten: i32 = i32.const(10)
  twenty: i32 = i32.const(20)
  store.i32(p, ten)
  off: i64 = sizeof.i32()
  p2: ptr = ptr.add(p, off)
  store.i32(p2, twenty)
  v1: i32 = load.i32(p)
  v2: i32 = load.i32(p2)
  s: i32 = i32.add(v1, v2)
  free(p)
  ret s
}
`
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.I32() != 30 {
		t.Errorf("got %s, want I32(30)", got)
	}
}

func TestRecursiveFactorial(t *testing.T) {
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

fn main() -> i32 {
entry():
  five: i32 = i32.const(5)
  r: i32 = call(factorial, five)
  ret r
}
`
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.I32() != 120 {
		t.Errorf("got %s, want I32(120)", got)
	}
}

func TestLoopWithBlockParams(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  zero: i32 = i32.const(0)
  one: i32 = i32.const(1)
  br loop(one, zero)

loop(i: i32, acc: i32):
  five: i32 = i32.const(5)
  cont: i32 = i32.lt(i, five)
  br_if cont, body(i, acc), done(acc)

body(bi: i32, bacc: i32):
  nacc: i32 = i32.add(bacc, bi)
  step: i32 = i32.const(1)
  ni: i32 = i32.add(bi, step)
  br loop(ni, nacc)

done(result: i32):
  ret result
}
`
	got, err := run(t, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got.I32() != 10 {
		t.Errorf("got %s, want I32(10)", got)
	}
}

func TestDivByZeroFaults(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  a: i32 = i32.const(10)
  z: i32 = i32.const(0)
  r: i32 = i32.div(a, z)
  ret r
}
`
	_, err := run(t, src)
	if err == nil {
		t.Fatalf("expected a division-by-zero fault")
	}
	if _, ok := err.(*hostabi.Fault); !ok {
		t.Errorf("got error %v (%T), want *hostabi.Fault", err, err)
	}
}

func TestUseAfterFreeFaults(t *testing.T) {
	src := `
fn main() -> i32 {
entry():
  size: i64 = i64.const(4)
  p: ptr = alloc(size)
  free(p)
  v: i32 = load.i32(p)
  ret v
}
`
	_, err := run(t, src)
	if err == nil {
		t.Fatalf("expected a use-after-free fault")
	}
}

func TestStackOverflowFaults(t *testing.T) {
	src := `
fn loop_forever(n: i32) -> i32 {
entry(n: i32):
  one: i32 = i32.const(1)
  n1: i32 = i32.add(n, one)
  r: i32 = call(loop_forever, n1)
  ret r
}

fn main() -> i32 {
entry():
  zero: i32 = i32.const(0)
  r: i32 = call(loop_forever, zero)
  ret r
}
`
	_, err := run(t, src)
	if err == nil {
		t.Fatalf("expected a stack overflow fault")
	}
	fault, ok := err.(*hostabi.Fault)
	if !ok {
		t.Fatalf("got error %v (%T), want *hostabi.Fault", err, err)
	}
	if !strings.Contains(fault.Msg, "stack overflow") {
		t.Errorf("fault.Msg = %q, want it to mention stack overflow", fault.Msg)
	}
}
