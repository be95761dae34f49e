package syntax

import (
	"strings"
	"testing"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	var errs []string
	s := NewScanner("test.tilt", strings.NewReader(src), func(line, col uint32, msg string) {
		errs = append(errs, msg)
	})
	var toks []Token
	for {
		s.Next()
		toks = append(toks, s.Token())
		if s.Token() == _EOF {
			break
		}
	}
	if len(errs) > 0 {
		t.Fatalf("unexpected scan errors: %v", errs)
	}
	return toks
}

func TestScannerTokens(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Token
	}{
		{"empty", "", []Token{_EOF}},
		{"punct", "(){}:,=->", []Token{
			_Lparen, _Rparen, _Lbrace, _Rbrace, _Colon, _Comma, _Assign, _Arrow, _EOF,
		}},
		{"keywords", "fn import ret br br_if", []Token{
			_Fn, _Import, _Ret, _Br, _BrIf, _EOF,
		}},
		{"name and int", "entry n 42", []Token{_Name, _Name, _Int, _EOF}},
		{"dotted opcode", "i32.add(a, b)", []Token{
			_Name, _Lparen, _Name, _Comma, _Name, _Rparen, _EOF,
		}},
		{"comment skipped", "n # trailing comment\nm", []Token{_Name, _Name, _EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scanAll(t, tt.src)
			if len(got) != len(tt.want) {
				t.Fatalf("token count = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScannerLiterals(t *testing.T) {
	s := NewScanner("test.tilt", strings.NewReader("host.print_i32 12345"), nil)
	s.Next()
	if s.Token() != _Name || s.Literal() != "host.print_i32" {
		t.Fatalf("got (%s, %q), want (_Name, %q)", s.Token(), s.Literal(), "host.print_i32")
	}
	s.Next()
	if s.Token() != _Int || s.Literal() != "12345" {
		t.Fatalf("got (%s, %q), want (_Int, %q)", s.Token(), s.Literal(), "12345")
	}
}

func TestScannerUnexpectedChar(t *testing.T) {
	var got string
	s := NewScanner("test.tilt", strings.NewReader("n ; m"), func(line, col uint32, msg string) {
		got = msg
	})
	s.Next() // n
	s.Next() // error on ';'
	if got == "" {
		t.Fatal("expected a scan error for ';'")
	}
}
