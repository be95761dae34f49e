package ir

import (
	"github.com/tilt-lang/tilt/internal/syntax"
	"github.com/tilt-lang/tilt/internal/types"
)

// Func is one lowered TILT function: a signature and a non-empty list of
// basic blocks, the first of which is the entry block and whose
// parameters are exactly the function's parameters (spec.md §3 — there
// is no separate OpArg; a function parameter is just the entry block's
// parameter list).
type Func struct {
	Name       string
	ResultType types.Type
	Blocks     []*Block
	Entry      *Block

	nextValueID ID
	nextBlockID ID
}

// Params returns the function's parameters, i.e. the entry block's.
func (f *Func) Params() []*Value {
	if f.Entry == nil {
		return nil
	}
	return f.Entry.Params
}

// NewFunc creates an empty function. Callers add the entry block with
// NewBlock and populate its Params before lowering the body.
func NewFunc(name string, resultType types.Type) *Func {
	return &Func{Name: name, ResultType: resultType}
}

// NewBlock appends a new, empty block to f.
func (f *Func) NewBlock(label string) *Block {
	b := &Block{ID: f.nextBlockID, Label: label, Func: f}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	if f.Entry == nil {
		f.Entry = b
	}
	return b
}

// NewParam appends a parameter to b's parameter list.
func (f *Func) NewParam(b *Block, name string, typ types.Type, pos syntax.Pos) *Value {
	v := &Value{ID: f.nextValueID, Name: name, IsParam: true, Type: typ, Block: b, Pos: pos}
	f.nextValueID++
	b.Params = append(b.Params, v)
	return v
}

// NewValue appends a new instruction result to b.
func (f *Func) NewValue(b *Block, name string, op Op, typ types.Type, pos syntax.Pos, args ...*Value) *Value {
	v := &Value{ID: f.nextValueID, Name: name, Op: op, Type: typ, Block: b, Pos: pos, Args: args}
	f.nextValueID++
	b.Values = append(b.Values, v)
	return v
}

// Link connects b's terminator to its target blocks' Preds lists. Call
// once per block after its Term is fully populated.
func (f *Func) Link(b *Block) {
	for _, s := range b.Succs() {
		s.addPred(b)
	}
}

// NumValues returns the total number of instruction results across all
// blocks (params excluded).
func (f *Func) NumValues() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Values)
	}
	return n
}
