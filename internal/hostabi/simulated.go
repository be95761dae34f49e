package hostabi

import (
	"fmt"
	"io"

	"github.com/tilt-lang/tilt/internal/value"
)

// block is one allocation's bookkeeping. Simulated hands out addresses
// with a bump pointer and never reuses them; every allocation keeps its
// block record after it is freed, marked freed, so a double-free, a free
// of an unknown address, or a use-after-free is detectable, matching the
// VM's role as the engine that catches host-ABI misuse early (spec.md
// §4.2, §7).
type block struct {
	addr  uint64
	size  int64
	freed bool
}

// Simulated is the VM's byte-addressable heap: loads and stores index
// directly into mem, and alloc/free manage it without ever touching the
// host process's real address space.
type Simulated struct {
	mem    []byte
	next   uint64
	blocks map[uint64]*block

	out io.Writer
}

// NewSimulated creates an empty simulated heap. out receives the output
// of any imported host.print_* function; if nil, output is discarded.
func NewSimulated(out io.Writer) *Simulated {
	if out == nil {
		out = io.Discard
	}
	return &Simulated{
		// Address 0 is never a valid allocation, so nil-pointer-shaped
		// bugs in lowered programs fault instead of aliasing real memory.
		mem:    make([]byte, 0, 4096),
		next:   8,
		blocks: make(map[uint64]*block),
		out:    out,
	}
}

func (s *Simulated) Kind() string { return "simulated" }

// Fault is a host-ABI violation: an unaligned-free, double-free, or
// out-of-bounds access. The VM turns a Fault into the same fatal
// termination the JIT gets for free from a hardware trap (SIGSEGV,
// SIGFPE) so both engines fail a misbehaving program the same way.
type Fault struct {
	Msg string
}

func (f *Fault) Error() string { return f.Msg }

// Alloc reserves size bytes and returns their address. size is taken
// from a runtime operand, not a compile-time constant, matching alloc's
// signature in spec.md §4.4.
func (s *Simulated) Alloc(size int64) (uint64, error) {
	if size < 0 {
		return 0, &Fault{Msg: fmt.Sprintf("alloc: negative size %d", size)}
	}
	addr := s.next
	s.mem = append(s.mem, make([]byte, size)...)
	s.next += uint64(size)
	s.blocks[addr] = &block{addr: addr, size: size}
	return addr, nil
}

// Free releases the allocation at addr. Freeing an address that was
// never returned by Alloc, or freeing it twice, is a fault.
func (s *Simulated) Free(addr uint64) error {
	b, ok := s.blocks[addr]
	if !ok {
		return &Fault{Msg: fmt.Sprintf("free: address 0x%x was never allocated", addr)}
	}
	if b.freed {
		return &Fault{Msg: fmt.Sprintf("free: double free of address 0x%x", addr)}
	}
	b.freed = true
	return nil
}

// bounds validates that [addr, addr+n) lies within a single live
// allocation, returning the allocation's byte offset into s.mem.
func (s *Simulated) bounds(addr uint64, n int64) (int64, error) {
	for _, b := range s.blocks {
		if b.freed || addr < b.addr || addr >= b.addr+uint64(b.size) {
			continue
		}
		if addr+uint64(n) > b.addr+uint64(b.size) {
			return 0, &Fault{Msg: fmt.Sprintf("access at 0x%x length %d overruns its allocation", addr, n)}
		}
		return int64(addr - 8), nil // address 8 maps to mem[0]; see NewSimulated
	}
	return 0, &Fault{Msg: fmt.Sprintf("access at 0x%x is not within a live allocation", addr)}
}

// Load reads n bytes at addr. Unaligned access is never an error — TILT
// load/store makes no alignment assumption (spec.md §3) — only an
// out-of-bounds or use-after-free access is.
func (s *Simulated) Load(addr uint64, n int64) ([]byte, error) {
	off, err := s.bounds(addr, n)
	if err != nil {
		return nil, err
	}
	return s.mem[off : off+n], nil
}

// Store writes data at addr.
func (s *Simulated) Store(addr uint64, data []byte) error {
	off, err := s.bounds(addr, int64(len(data)))
	if err != nil {
		return err
	}
	copy(s.mem[off:off+int64(len(data))], data)
	return nil
}

// HostFunc is a simulated implementation of one imported host function.
type HostFunc func(args []value.Value) (value.Value, error)

// hostTable dispatches TILT's fixed set of host imports. A real program
// may import any host.* name; the VM only knows how to simulate the
// print family spec.md's examples call — anything else is a lowering-
// time UnknownImport error, never a runtime one.
func (s *Simulated) hostTable() map[string]HostFunc {
	return map[string]HostFunc{
		"host.print_i32": func(args []value.Value) (value.Value, error) {
			fmt.Fprintf(s.out, "%d\n", args[0].I32())
			return value.Void(), nil
		},
		"host.print_i64": func(args []value.Value) (value.Value, error) {
			fmt.Fprintf(s.out, "%d\n", args[0].I64())
			return value.Void(), nil
		},
		"host.print_f32": func(args []value.Value) (value.Value, error) {
			fmt.Fprintf(s.out, "%g\n", args[0].F32())
			return value.Void(), nil
		},
		"host.print_f64": func(args []value.Value) (value.Value, error) {
			fmt.Fprintf(s.out, "%g\n", args[0].F64())
			return value.Void(), nil
		},
	}
}

// CallHost dispatches an imported host function by name.
func (s *Simulated) CallHost(name string, args []value.Value) (value.Value, error) {
	fn, ok := s.hostTable()[name]
	if !ok {
		return value.Value{}, &Fault{Msg: fmt.Sprintf("call to unknown host import %q", name)}
	}
	return fn(args)
}
