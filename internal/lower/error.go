package lower

import (
	"fmt"

	"github.com/tilt-lang/tilt/internal/syntax"
)

// Kind classifies one lowering error, directly grounded on the
// teacher's syntax.SyntaxError shape but closed over the specific ways a
// TILT program can fail the fused type-check-and-lower pass.
type Kind int

const (
	_ Kind = iota
	DuplicateName
	UnknownName
	UnknownLabel
	ArityMismatch
	TypeMismatch
	MissingTerminator
	UseBeforeDef
	RetMismatch
	UnknownOp
	UnknownImport
)

var kindNames = [...]string{
	DuplicateName:      "duplicate name",
	UnknownName:        "unknown name",
	UnknownLabel:       "unknown label",
	ArityMismatch:      "arity mismatch",
	TypeMismatch:       "type mismatch",
	MissingTerminator:  "missing terminator",
	UseBeforeDef:       "use before definition",
	RetMismatch:        "return mismatch",
	UnknownOp:          "unknown operation",
	UnknownImport:      "unknown import",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown error"
}

// Error is one lowering failure: what kind it is, where it occurred, and
// a human-readable message. internal/lower never panics on a malformed
// but syntactically valid program; every failure is reported through a
// slice of these, the way the teacher's parser reports SyntaxErrors
// through a callback instead of aborting on the first one.
type Error struct {
	Kind Kind
	Pos  syntax.Pos
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

func newError(kind Kind, pos syntax.Pos, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
