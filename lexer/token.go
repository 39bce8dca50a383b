package lexer

import (
	"github.com/glua-lang/glua/source"
)

// Symbol is the classification system for tokens. Identifier and literal
// tokens are represented by general symbols (like "Ident") while keywords,
// operators and punctuation are represented by their literal text.
type Symbol string

// Token represents a lexical atom tagged with a Symbol classification and
// source code span. Number and string tokens additionally carry their
// decoded value so the parser never has to re-parse lexeme text.
type Token struct {
	Symbol Symbol
	Lexeme string
	Span   source.Span

	Number float64 // valid when Symbol == NumberSymbol
	Str    string  // valid when Symbol == StringSymbol (decoded, escapes resolved)
}

// General-purpose symbols and Lua 5.1.5 keyword symbols.
const (
	EOFSymbol      Symbol = "EOF"
	ErrorSymbol    Symbol = "Error"
	IdentSymbol    Symbol = "Identifier"
	NumberSymbol   Symbol = "Number"
	StringSymbol   Symbol = "String"
	EllipsisSymbol Symbol = "..."

	AndSymbol      Symbol = "and"
	BreakSymbol    Symbol = "break"
	DoSymbol       Symbol = "do"
	ElseSymbol     Symbol = "else"
	ElseifSymbol   Symbol = "elseif"
	EndSymbol      Symbol = "end"
	FalseSymbol    Symbol = "false"
	ForSymbol      Symbol = "for"
	FunctionSymbol Symbol = "function"
	IfSymbol       Symbol = "if"
	InSymbol       Symbol = "in"
	LocalSymbol    Symbol = "local"
	NilSymbol      Symbol = "nil"
	NotSymbol      Symbol = "not"
	OrSymbol       Symbol = "or"
	RepeatSymbol   Symbol = "repeat"
	ReturnSymbol   Symbol = "return"
	ThenSymbol     Symbol = "then"
	TrueSymbol     Symbol = "true"
	UntilSymbol    Symbol = "until"
	WhileSymbol    Symbol = "while"
)

// Operator and punctuation symbols. Their Symbol value is their literal
// lexeme, so the parser can compare a Token's Symbol directly against one
// of these constants or against a keyword Symbol interchangeably.
const (
	PlusSymbol      Symbol = "+"
	MinusSymbol     Symbol = "-"
	StarSymbol      Symbol = "*"
	SlashSymbol     Symbol = "/"
	PercentSymbol   Symbol = "%"
	CaratSymbol     Symbol = "^"
	HashSymbol      Symbol = "#"
	EqEqSymbol      Symbol = "=="
	NotEqSymbol     Symbol = "~="
	LessSymbol      Symbol = "<"
	LessEqSymbol    Symbol = "<="
	GreaterSymbol   Symbol = ">"
	GreaterEqSymbol Symbol = ">="
	AssignSymbol    Symbol = "="
	ConcatSymbol    Symbol = ".."
	DotSymbol       Symbol = "."
	CommaSymbol     Symbol = ","
	SemiSymbol      Symbol = ";"
	ColonSymbol     Symbol = ":"
	DblColonSymbol  Symbol = "::"

	LParenSymbol   Symbol = "("
	RParenSymbol   Symbol = ")"
	LBraceSymbol   Symbol = "{"
	RBraceSymbol   Symbol = "}"
	LBracketSymbol Symbol = "["
	RBracketSymbol Symbol = "]"
)

// Keywords is the full Lua 5.1.5 keyword set.
var Keywords = map[string]Symbol{
	"and": AndSymbol, "break": BreakSymbol, "do": DoSymbol,
	"else": ElseSymbol, "elseif": ElseifSymbol, "end": EndSymbol,
	"false": FalseSymbol, "for": ForSymbol, "function": FunctionSymbol,
	"if": IfSymbol, "in": InSymbol, "local": LocalSymbol, "nil": NilSymbol,
	"not": NotSymbol, "or": OrSymbol, "repeat": RepeatSymbol,
	"return": ReturnSymbol, "then": ThenSymbol, "true": TrueSymbol,
	"until": UntilSymbol, "while": WhileSymbol,
}
