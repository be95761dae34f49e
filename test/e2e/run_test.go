// Package e2e runs the six end-to-end scenarios against both of TILT's
// execution engines, asserting the VM and the JIT agree on every one of
// them, grounded on the teacher's own table-of-programs end-to-end test.
package e2e

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"

	"github.com/tilt-lang/tilt/internal/driver"
	"github.com/tilt-lang/tilt/internal/value"
)

const arithmeticSrc = `
fn main() -> i32 {
entry():
  a: i32 = i32.const(10)
  b: i32 = i32.const(20)
  s: i32 = i32.add(a, b)
  ret s
}
`

const memoryOverwriteSrc = `
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

const pointerSumSrc = `
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

const classifyNumberSrc = `
fn classify_number(n: i32) -> i32 {
entry(n: i32):
  hundred: i32 = i32.const(100)
  zero: i32 = i32.const(0)
  one: i32 = i32.const(1)
  gt: i32 = i32.lt(hundred, n)
  br_if gt, big(), checkpos()

big():
  r: i32 = i32.const(3)
  ret r

checkpos():
  ispos: i32 = i32.lt(zero, n)
  br_if ispos, pos(), checkneg()

pos():
  ret one

checkneg():
  isneg: i32 = i32.lt(n, zero)
  br_if isneg, neg(), zerocase()

neg():
  negone: i32 = i32.sub(zero, one)
  ret negone

zerocase():
  ret zero
}

fn main() -> i32 {
entry():
  v1: i32 = i32.const(150)
  v2: i32 = i32.const(50)
  zero: i32 = i32.const(0)
  ten: i32 = i32.const(10)
  v3: i32 = i32.sub(zero, ten)
  v4: i32 = i32.const(0)
  r1: i32 = call(classify_number, v1)
  r2: i32 = call(classify_number, v2)
  r3: i32 = call(classify_number, v3)
  r4: i32 = call(classify_number, v4)
  s1: i32 = i32.add(r1, r2)
  s2: i32 = i32.add(s1, r3)
  s3: i32 = i32.add(s2, r4)
  ret s3
}
`

const factorialSrc = `
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

const loopSumSrc = `
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

func TestScenarios(t *testing.T) {
	clangOK := false
	if _, err := exec.LookPath("clang"); err == nil {
		clangOK = true
	} else {
		t.Log("clang not found on $PATH, JIT assertions will be skipped")
	}

	tests := []struct {
		name string
		src  string
		want value.Value
	}{
		{"arithmetic_and_comparison", arithmeticSrc, value.I32(30)},
		{"memory_overwrite", memoryOverwriteSrc, value.I32(20)},
		{"pointer_arithmetic_sum", pointerSumSrc, value.I32(30)},
		{"nested_conditionals", classifyNumberSrc, value.I32(3)},
		{"recursion", factorialSrc, value.I32(120)},
		{"loop_with_block_params", loopSumSrc, value.I32(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, _, err := driver.Compile(tt.name+".tilt", strings.NewReader(tt.src))
			if err != nil {
				t.Fatalf("compile: %v", err)
			}

			var out bytes.Buffer
			vmRes, err := driver.Run(mod, "main", nil, driver.VM, &out)
			if err != nil {
				t.Fatalf("vm: %v", err)
			}
			if got := vmRes.VM; got.Kind != tt.want.Kind || got.Bits() != tt.want.Bits() {
				t.Errorf("vm result = %s, want %s", got, tt.want)
			}

			if !clangOK {
				return
			}
			jitRes, err := driver.Run(mod, "main", nil, driver.JIT, &out)
			if err != nil {
				t.Fatalf("jit: %v", err)
			}
			if got := jitRes.JIT; got.Kind != tt.want.Kind || got.Bits() != tt.want.Bits() {
				t.Errorf("jit result = %s, want %s", got, tt.want)
			}
		})
	}
}
