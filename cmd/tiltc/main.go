// Package main implements the tiltc command: parse, lower, and run a
// .tilt source file on the VM, the JIT, or both.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/tilt-lang/tilt/internal/driver"
	"github.com/tilt-lang/tilt/internal/ir"
	"github.com/tilt-lang/tilt/internal/jit"
	"github.com/tilt-lang/tilt/internal/syntax"
)

var (
	useVM           = flag.Bool("vm", false, "run on the VM (default if no engine flag is given)")
	useJIT          = flag.Bool("jit", false, "run on the JIT")
	useBoth         = flag.Bool("both", false, "run on both engines and compare their results")
	showTokens      = flag.Bool("show-tokens", false, "print the token stream and exit")
	showAST         = flag.Bool("show-ast", false, "print the parsed AST and exit")
	showIR          = flag.Bool("show-ir", false, "print the lowered IR and exit")
	showCraneliftIR = flag.Bool("show-cranelift-ir", false, "print the JIT's generated LLVM IR and exit")
	verbose         = flag.Bool("verbose", false, "trace the compile pipeline's stages")
	doctor          = flag.Bool("doctor", false, "check the native toolchain")
	version         = flag.Bool("version", false, "print version")
)

const Version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tiltc %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: tiltc [options] <file.tilt>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("tiltc version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(0)
	}

	if *doctor {
		os.Exit(runDoctor())
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "error: no input file")
		flag.Usage()
		os.Exit(1)
	}
	filename := args[0]

	if *showTokens {
		os.Exit(runShowTokens(filename))
	}
	if *showAST {
		os.Exit(runShowAST(filename))
	}
	if *showIR {
		os.Exit(runShowIR(filename))
	}
	if *showCraneliftIR {
		os.Exit(runShowCraneliftIR(filename))
	}

	os.Exit(run(filename))
}

func vlog(format string, args ...interface{}) {
	if *verbose {
		log.Printf(format, args...)
	}
}

// run compiles filename and executes its main function, printing
// "Final result: <Type>(<value>)" on success.
func run(filename string) int {
	vlog("parsing %s", filename)
	mod, _, err := driver.CompileFile(filename)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		return 1
	}

	eng := driver.VM
	switch {
	case *useBoth:
		eng = driver.Both
	case *useJIT:
		eng = driver.JIT
	case *useVM:
		eng = driver.VM
	}
	vlog("lowered %d function(s); running with engine=%v", len(mod.Funcs), eng)

	res, err := driver.Run(mod, "main", nil, eng, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if res.Mismatch {
		fmt.Fprintf(os.Stderr, "error: VM and JIT disagree: vm=%s jit=%s\n", res.VM, res.JIT)
		return 1
	}

	fmt.Printf("Final result: %s\n", res.Value())
	return 0
}

func runShowTokens(filename string) int {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer f.Close()

	var errs []string
	errh := func(line, col uint32, msg string) {
		errs = append(errs, fmt.Sprintf("%s:%d:%d: %s", filename, line, col, msg))
	}
	s := syntax.NewScanner(filename, f, errh)

	fmt.Printf("%-20s %-12s %s\n", "POSITION", "TOKEN", "LITERAL")
	for {
		s.Next()
		tok := s.Token()
		fmt.Printf("%-20s %-12s %q\n", s.Pos(), tok, s.Literal())
		if tok.IsEOF() {
			break
		}
	}
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		return 1
	}
	return 0
}

func runShowAST(filename string) int {
	_, f, err := driver.CompileFile(filename)
	if f == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	syntax.Fprint(os.Stdout, f)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		return 1
	}
	return 0
}

func runShowIR(filename string) int {
	mod, _, err := driver.CompileFile(filename)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		return 1
	}
	ir.Fprint(os.Stdout, mod)
	return 0
}

func runShowCraneliftIR(filename string) int {
	mod, _, err := driver.CompileFile(filename)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		return 1
	}
	if err := jit.FprintLLVM(os.Stdout, mod, "main", nil); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runDoctor checks for the native toolchain the JIT shells out to.
func runDoctor() int {
	fmt.Println("tiltc toolchain doctor")
	fmt.Println("======================")
	fmt.Println()

	allOk := true

	goVersion := runtime.Version()
	fmt.Printf("Go:    %s\n", goVersion)

	clangVersion, ok := jit.CheckToolchain()
	fmt.Printf("clang: %s", clangVersion)
	if ok {
		fmt.Println(" (ok)")
	} else {
		fmt.Println(" (not found, required for --jit)")
		allOk = false
	}

	fmt.Println()
	if allOk {
		fmt.Println("All required tools available.")
		return 0
	}
	fmt.Println("Some required tools are missing. The VM still runs without clang.")
	return 1
}
