package syntax

import (
	"io"
	"strconv"
)

// Maximum number of errors before aborting parse.
const maxErrors = 10

// SyntaxError represents a syntax error.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Parser performs syntax analysis on .tilt source text, producing a File.
type Parser struct {
	scanner *Scanner

	tok Token
	lit string
	pos Pos

	errh   func(pos Pos, msg string)
	errcnt int
	first  error
	abort  bool
}

// NewParser creates a new Parser for the given source.
func NewParser(filename string, src io.Reader, errh func(pos Pos, msg string)) *Parser {
	scanErrh := func(line, col uint32, msg string) {
		if errh != nil {
			errh(NewPos(filename, line, col), msg)
		}
	}

	p := &Parser{
		scanner: NewScanner(filename, src, scanErrh),
		errh:    errh,
	}
	p.next()
	return p
}

// ParseFile parses a complete .tilt source file.
func ParseFile(filename string, src io.Reader, errh func(pos Pos, msg string)) (*File, error) {
	p := NewParser(filename, src, errh)
	f := p.parseFile()
	return f, p.first
}

// ----------------------------------------------------------------------------
// Token navigation

func (p *Parser) next() {
	p.scanner.Next()
	p.tok = p.scanner.Token()
	p.lit = p.scanner.Literal()
	p.pos = p.scanner.Pos()
}

// got reports whether the current token is tok, consuming it if so.
func (p *Parser) got(tok Token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

// want consumes the current token if it matches tok, else reports an error.
func (p *Parser) want(tok Token) {
	if !p.got(tok) {
		p.syntaxError("expected " + tok.String() + ", got " + p.tok.String())
		p.advance()
	}
}

// expect is like want but returns the position the token was expected at.
func (p *Parser) expect(tok Token) Pos {
	pos := p.pos
	p.want(tok)
	return pos
}

// wantName consumes a _Name token and returns its text, or "" on error.
func (p *Parser) wantName() string {
	if p.tok != _Name {
		p.syntaxError("expected name, got " + p.tok.String())
		p.advance()
		return ""
	}
	name := p.lit
	p.next()
	return name
}

// ----------------------------------------------------------------------------
// Error handling

func (p *Parser) syntaxError(msg string) {
	if p.abort {
		return
	}
	if p.errcnt == 0 {
		p.first = &SyntaxError{Pos: p.pos, Msg: msg}
	}
	p.errcnt++

	if p.errh != nil {
		p.errh(p.pos, msg)
	}

	if p.errcnt >= maxErrors {
		p.abort = true
		if p.errh != nil {
			p.errh(p.pos, "too many errors; aborting parse")
		}
		p.tok = _EOF
	}
}

// advance skips tokens until a synchronization point, for error recovery.
func (p *Parser) advance() {
	sync := map[Token]bool{
		_Rbrace: true,
		_Fn:     true,
		_Import: true,
	}
	for !sync[p.tok] && p.tok != _EOF {
		p.next()
	}
}

// ----------------------------------------------------------------------------
// Grammar

func (p *Parser) parseFile() *File {
	f := &File{node: node{p.pos}}

	for p.tok == _Import {
		f.Imports = append(f.Imports, p.parseImportDecl())
	}
	for p.tok == _Fn {
		f.Funcs = append(f.Funcs, p.parseFuncDecl())
	}
	if p.tok != _EOF {
		p.syntaxError("expected fn or import, got " + p.tok.String())
	}
	return f
}

// parseImportDecl parses `import host.print_i32(i32) -> void`.
func (p *Parser) parseImportDecl() *ImportDecl {
	pos := p.expect(_Import)
	name := p.wantName()
	p.want(_Lparen)
	var params []*TypeName
	for p.tok != _Rparen && p.tok != _EOF {
		params = append(params, p.parseTypeName())
		if !p.got(_Comma) {
			break
		}
	}
	p.want(_Rparen)
	p.want(_Arrow)
	result := p.parseTypeName()
	return &ImportDecl{node: node{pos}, Name: name, ParamTypes: params, Result: result}
}

func (p *Parser) parseTypeName() *TypeName {
	pos := p.pos
	name := p.wantName()
	return &TypeName{node: node{pos}, Name: name}
}

// parseFuncDecl parses `fn name(params) -> result { block... }`.
func (p *Parser) parseFuncDecl() *FuncDecl {
	pos := p.expect(_Fn)
	name := p.wantName()
	p.want(_Lparen)
	params := p.parseParamList()
	p.want(_Rparen)
	p.want(_Arrow)
	result := p.parseTypeName()
	p.want(_Lbrace)

	var blocks []*Block
	for p.tok != _Rbrace && p.tok != _EOF {
		blocks = append(blocks, p.parseBlock())
	}
	rbrace := p.expect(_Rbrace)

	return &FuncDecl{
		node: node{pos}, Name: name, Params: params, Result: result,
		Blocks: blocks, Rbrace: rbrace,
	}
}

// parseParamList parses a comma-separated `name: type` list. Used for
// both function parameters and block parameters, which share the same
// syntax (spec.md §3: block parameters stand in for phi nodes).
func (p *Parser) parseParamList() []*Param {
	var params []*Param
	for p.tok != _Rparen && p.tok != _EOF {
		pos := p.pos
		name := p.wantName()
		p.want(_Colon)
		typ := p.parseTypeName()
		params = append(params, &Param{node: node{pos}, Name: name, Type: typ})
		if !p.got(_Comma) {
			break
		}
	}
	return params
}

// parseBlock parses one labeled basic block, up to and including its
// terminator. `entry(n: i32): instr* term` — a block's header can never
// be mistaken for an instruction, because every instruction either opens
// with `name:` (no parens first) or is a bare op call with no trailing
// colon, while a block header is always `name(...):`.
func (p *Parser) parseBlock() *Block {
	pos := p.pos
	label := p.wantName()
	p.want(_Lparen)
	params := p.parseParamList()
	p.want(_Rparen)
	p.want(_Colon)

	b := &Block{node: node{pos}, Label: label, Params: params}
	for p.tok != _Ret && p.tok != _Br && p.tok != _BrIf && p.tok != _Rbrace && p.tok != _EOF {
		b.Instrs = append(b.Instrs, p.parseInstr())
	}
	b.Term = p.parseTerminator()
	return b
}

// parseInstr parses one non-terminating instruction, either the
// value-binding form `name: type = op(args)` or the void form
// `op(args)`.
func (p *Parser) parseInstr() *Instr {
	pos := p.pos
	first := p.wantName()

	if p.tok == _Colon {
		p.next()
		typ := p.parseTypeName()
		p.want(_Assign)
		op, args := p.parseOpCall()
		return &Instr{node: node{pos}, Name: first, Type: typ, Op: op, Args: args}
	}

	p.want(_Lparen)
	args := p.parseArgList()
	p.want(_Rparen)
	return &Instr{node: node{pos}, Op: first, Args: args}
}

// parseOpCall parses `op(args)` and returns the op name and its
// arguments, used for the RHS of a value-binding instruction.
func (p *Parser) parseOpCall() (string, []*Operand) {
	op := p.wantName()
	p.want(_Lparen)
	args := p.parseArgList()
	p.want(_Rparen)
	return op, args
}

func (p *Parser) parseArgList() []*Operand {
	var args []*Operand
	for p.tok != _Rparen && p.tok != _EOF {
		args = append(args, p.parseOperand())
		if !p.got(_Comma) {
			break
		}
	}
	return args
}

func (p *Parser) parseOperand() *Operand {
	pos := p.pos
	switch p.tok {
	case _Int:
		v, err := strconv.ParseInt(p.lit, 10, 64)
		if err != nil {
			p.syntaxError("invalid integer literal " + p.lit)
		}
		p.next()
		return &Operand{node: node{pos}, Kind: OperandInt, Int: v}
	case _Name:
		name := p.lit
		p.next()
		return &Operand{node: node{pos}, Kind: OperandName, Name: name}
	default:
		p.syntaxError("expected operand, got " + p.tok.String())
		p.advance()
		return &Operand{node: node{pos}, Kind: OperandName, Name: ""}
	}
}

// parseTerminator parses `ret`, `br`, or `br_if`.
func (p *Parser) parseTerminator() Terminator {
	pos := p.pos
	switch p.tok {
	case _Ret:
		p.next()
		var val *Operand
		if p.tok == _Name || p.tok == _Int {
			val = p.parseOperand()
		}
		return &RetTerm{termNode: termNode{node{pos}}, Value: val}

	case _Br:
		p.next()
		target := p.wantName()
		p.want(_Lparen)
		args := p.parseArgList()
		p.want(_Rparen)
		return &BrTerm{termNode: termNode{node{pos}}, Target: target, TargetArgs: args}

	case _BrIf:
		p.next()
		cond := p.parseOperand()
		p.want(_Comma)
		thenLabel := p.wantName()
		p.want(_Lparen)
		thenArgs := p.parseArgList()
		p.want(_Rparen)
		p.want(_Comma)
		elseLabel := p.wantName()
		p.want(_Lparen)
		elseArgs := p.parseArgList()
		p.want(_Rparen)
		return &BrIfTerm{
			termNode: termNode{node{pos}}, Cond: cond,
			Then: thenLabel, ThenArgs: thenArgs,
			Else: elseLabel, ElseArgs: elseArgs,
		}

	default:
		p.syntaxError("expected ret, br, or br_if, got " + p.tok.String())
		p.advance()
		return &RetTerm{termNode: termNode{node{pos}}}
	}
}
