package jit

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tilt-lang/tilt/internal/hostabi"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/value"
)

// shimSource implements the fixed host ABI a lowered program links
// against, the Native counterpart to internal/hostabi.Simulated. Its
// host.print_* set is the same four functions Simulated knows, so a
// program behaves identically under --vm and --jit (spec.md §4.4); any
// import outside this set is rejected during lowering, not here.
const shimSource = `#include <stdlib.h>
#include <stdio.h>

void *tilt_alloc(long long size) { return malloc((size_t)size); }
void tilt_free(void *p) { free(p); }

void host_print_i32(int v) { printf("%d\n", v); }
void host_print_i64(long long v) { printf("%lld\n", v); }
void host_print_f32(float v) { printf("%g\n", v); }
void host_print_f64(double v) { printf("%g\n", v); }
`

// CompileError is a clang invocation that failed to produce a binary,
// e.g. because the generated IR was malformed or clang is missing.
type CompileError struct {
	Stderr string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("jit: clang failed:\n%s", e.Stderr)
}

// Run lowers mod's entryFunc to LLVM IR, compiles and links it with the
// host ABI shim via clang, executes the resulting binary, and decodes
// its TILT_RESULT line back into a value.Value.
//
// Grounded on cmd/yoruc's runDoctor/checkTool pattern of treating clang
// as an external tool on $PATH rather than an in-process code generator.
func Run(mod *ir.Module, entryFunc string, args []value.Value) (value.Value, error) {
	dir, err := os.MkdirTemp("", "tiltjit-")
	if err != nil {
		return value.Value{}, fmt.Errorf("jit: %w", err)
	}
	defer os.RemoveAll(dir)

	llPath := filepath.Join(dir, "out.ll")
	shimPath := filepath.Join(dir, "shim.c")
	binPath := filepath.Join(dir, "out.bin")

	var llText bytes.Buffer
	e := &emitter{w: &llText}
	if err := Emit(e, mod, entryFunc, args); err != nil {
		return value.Value{}, err
	}
	if err := os.WriteFile(llPath, llText.Bytes(), 0o644); err != nil {
		return value.Value{}, fmt.Errorf("jit: %w", err)
	}
	if err := os.WriteFile(shimPath, []byte(shimSource), 0o644); err != nil {
		return value.Value{}, fmt.Errorf("jit: %w", err)
	}

	cmd := exec.Command("clang", "-O0", "-o", binPath, llPath, shimPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return value.Value{}, &CompileError{Stderr: stderr.String()}
	}

	runCmd := exec.Command(binPath)
	var stdout bytes.Buffer
	runCmd.Stdout = &stdout
	runErr := runCmd.Run()
	if fault := faultFromExit(runErr); fault != nil {
		return value.Value{}, fault
	}
	if runErr != nil {
		return value.Value{}, fmt.Errorf("jit: program exited with an error: %w\n%s", runErr, stdout.String())
	}

	return parseResult(stdout.String())
}

// faultFromExit turns a signal-terminated process into the same fatal
// *hostabi.Fault the VM raises for an equivalent host-ABI violation, so
// the driver reports both engines' failures the same way.
func faultFromExit(err error) *hostabi.Fault {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return nil
	}
	status, ok := exitErr.ProcessState.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return nil
	}
	switch status.Signal() {
	case syscall.SIGFPE:
		return &hostabi.Fault{Msg: "division by zero"}
	case syscall.SIGSEGV:
		return &hostabi.Fault{Msg: "invalid memory access"}
	default:
		return &hostabi.Fault{Msg: fmt.Sprintf("program terminated by signal %s", status.Signal())}
	}
}

// parseResult decodes the single "TILT_RESULT <TAG> <VALUE>" line a
// lowered program prints just before exiting.
func parseResult(stdout string) (value.Value, error) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "TILT_RESULT" {
			continue
		}
		tag := fields[1]
		if tag == "VOID" {
			return value.Void(), nil
		}
		if len(fields) < 3 {
			return value.Value{}, fmt.Errorf("jit: malformed result line %q", line)
		}
		raw := fields[2]
		switch tag {
		case "I32":
			n, err := strconv.ParseInt(raw, 10, 32)
			if err != nil {
				return value.Value{}, fmt.Errorf("jit: %w", err)
			}
			return value.I32(int32(n)), nil
		case "I64":
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("jit: %w", err)
			}
			return value.I64(n), nil
		case "F32":
			f, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return value.Value{}, fmt.Errorf("jit: %w", err)
			}
			return value.F32(float32(f)), nil
		case "F64":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("jit: %w", err)
			}
			return value.F64(f), nil
		case "PTR":
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return value.Value{}, fmt.Errorf("jit: %w", err)
			}
			return value.Ptr(n), nil
		}
		return value.Value{}, fmt.Errorf("jit: unknown result tag %q", tag)
	}
	return value.Value{}, fmt.Errorf("jit: program produced no TILT_RESULT line")
}

// FprintLLVM writes mod's generated LLVM IR text to w, for
// tiltc --show-cranelift-ir, without compiling or running it.
func FprintLLVM(w io.Writer, mod *ir.Module, entryFunc string, args []value.Value) error {
	e := &emitter{w: w}
	return Emit(e, mod, entryFunc, args)
}

// CheckToolchain reports whether clang is available on $PATH, the one
// hard requirement for --jit (see cmd/tiltc's --doctor).
func CheckToolchain() (version string, ok bool) {
	cmd := exec.Command("clang", "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) == 0 {
		return "", false
	}
	return strings.TrimSpace(lines[0]), true
}
