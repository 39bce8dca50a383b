package lexer

import (
	"testing"

	"github.com/glua-lang/glua/source"
)

func scanAll(src string) []Token {
	l := New(source.NewFile("test.lua", src))
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Symbol == EOFSymbol || tok.Symbol == ErrorSymbol {
			break
		}
	}
	return toks
}

func symbols(toks []Token) []Symbol {
	syms := make([]Symbol, len(toks))
	for i, t := range toks {
		syms[i] = t.Symbol
	}
	return syms
}

func TestKeywordsAndIdents(t *testing.T) {
	toks := scanAll(`local x = 10`)
	got := symbols(toks)
	want := []Symbol{LocalSymbol, IdentSymbol, AssignSymbol, NumberSymbol, EOFSymbol}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"0", 0},
		{"42", 42},
		{"3.14", 3.14},
		{"1e10", 1e10},
		{"1.5e-3", 1.5e-3},
		{".5", 0.5},
	}
	for _, c := range cases {
		toks := scanAll(c.src)
		if toks[0].Symbol != NumberSymbol {
			t.Fatalf("%q: expected NumberSymbol, got %v", c.src, toks[0].Symbol)
		}
		if toks[0].Number != c.want {
			t.Fatalf("%q: got %v, want %v", c.src, toks[0].Number, c.want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"\65\66\67"`, "ABC"},
		{`'single'`, "single"},
	}
	for _, c := range cases {
		toks := scanAll(c.src)
		if toks[0].Symbol != StringSymbol {
			t.Fatalf("%q: expected StringSymbol, got %v", c.src, toks[0].Symbol)
		}
		if toks[0].Str != c.want {
			t.Fatalf("%q: got %q, want %q", c.src, toks[0].Str, c.want)
		}
	}
}

func TestLongComment(t *testing.T) {
	toks := scanAll("--[[ this is\n a comment ]] local x = 1")
	got := symbols(toks)
	want := []Symbol{LocalSymbol, IdentSymbol, AssignSymbol, NumberSymbol, EOFSymbol}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSaveRestore(t *testing.T) {
	l := New(source.NewFile("test.lua", "local x"))
	first := l.NextToken()
	if first.Symbol != LocalSymbol {
		t.Fatalf("expected LocalSymbol, got %v", first.Symbol)
	}
	saved := l.Save()
	second := l.NextToken()
	if second.Symbol != IdentSymbol {
		t.Fatalf("expected IdentSymbol, got %v", second.Symbol)
	}
	l.Restore(saved)
	again := l.NextToken()
	if again.Symbol != IdentSymbol || again.Lexeme != "x" {
		t.Fatalf("restore did not rewind correctly, got %v %q", again.Symbol, again.Lexeme)
	}
}

func TestOperators(t *testing.T) {
	toks := scanAll(`== ~= <= >=.....`)
	got := symbols(toks)
	want := []Symbol{EqEqSymbol, NotEqSymbol, LessEqSymbol, GreaterEqSymbol, ConcatSymbol, EllipsisSymbol, EOFSymbol}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
