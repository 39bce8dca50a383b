package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glua-lang/glua/source"
)

// Lexer converts a source.File into a stream of Tokens one at a time. It
// exposes save_state()/restore_state() (Save/Restore below) so the parser
// can snapshot and rewind the scan position for its two-token look-ahead,
// and a one-token PeekToken buffer for ordinary look-ahead.
type Lexer struct {
	file *source.File
	src  string

	start   int // byte offset of the token currently being scanned
	current int // byte offset of the next unread byte
	line    int
	col     int

	peeked  *Token
	hasPeek bool
}

// state is a snapshot of every field that advances as the Lexer scans,
// taken by Save and handed back by Restore.
type state struct {
	start, current, line, col int
	peeked                    *Token
	hasPeek                   bool
}

// New constructs a Lexer over the given file's contents.
func New(file *source.File) *Lexer {
	return &Lexer{
		file: file,
		src:  file.Contents,
		line: 1,
		col:  1,
	}
}

// Save snapshots the current scan position.
func (l *Lexer) Save() state {
	return state{
		start:   l.start,
		current: l.current,
		line:    l.line,
		col:     l.col,
		peeked:  l.peeked,
		hasPeek: l.hasPeek,
	}
}

// Restore rewinds the Lexer to a position previously returned by Save.
func (l *Lexer) Restore(s state) {
	l.start = s.start
	l.current = s.current
	l.line = s.line
	l.col = s.col
	l.peeked = s.peeked
	l.hasPeek = s.hasPeek
}

// PeekToken returns the next token without consuming it. Repeated calls
// without an intervening NextToken return the identical token.
func (l *Lexer) PeekToken() Token {
	if !l.hasPeek {
		tok := l.scanToken()
		l.peeked = &tok
		l.hasPeek = true
	}
	return *l.peeked
}

// NextToken consumes and returns the next token.
func (l *Lexer) NextToken() Token {
	if l.hasPeek {
		tok := *l.peeked
		l.hasPeek = false
		l.peeked = nil
		return tok
	}
	return l.scanToken()
}

func (l *Lexer) scanToken() Token {
	l.skipWhitespaceAndComments()
	l.start = l.current
	startLine, startCol := l.line, l.col

	if l.atEnd() {
		return l.makeToken(EOFSymbol, startLine, startCol)
	}

	c := l.advance()

	switch {
	case isAlpha(c):
		return l.identifier(startLine, startCol)
	case isDigit(c):
		return l.number(startLine, startCol)
	case c == '"' || c == '\'':
		return l.stringLiteral(c, startLine, startCol)
	}

	switch c {
	case '+':
		return l.makeToken(PlusSymbol, startLine, startCol)
	case '-':
		return l.makeToken(MinusSymbol, startLine, startCol)
	case '*':
		return l.makeToken(StarSymbol, startLine, startCol)
	case '/':
		return l.makeToken(SlashSymbol, startLine, startCol)
	case '%':
		return l.makeToken(PercentSymbol, startLine, startCol)
	case '^':
		return l.makeToken(CaratSymbol, startLine, startCol)
	case '#':
		return l.makeToken(HashSymbol, startLine, startCol)
	case '(':
		return l.makeToken(LParenSymbol, startLine, startCol)
	case ')':
		return l.makeToken(RParenSymbol, startLine, startCol)
	case '{':
		return l.makeToken(LBraceSymbol, startLine, startCol)
	case '}':
		return l.makeToken(RBraceSymbol, startLine, startCol)
	case '[':
		return l.makeToken(LBracketSymbol, startLine, startCol)
	case ']':
		return l.makeToken(RBracketSymbol, startLine, startCol)
	case ',':
		return l.makeToken(CommaSymbol, startLine, startCol)
	case ';':
		return l.makeToken(SemiSymbol, startLine, startCol)
	case '=':
		if l.match('=') {
			return l.makeToken(EqEqSymbol, startLine, startCol)
		}
		return l.makeToken(AssignSymbol, startLine, startCol)
	case '~':
		if l.match('=') {
			return l.makeToken(NotEqSymbol, startLine, startCol)
		}
		return l.errorToken("unexpected symbol near '~'", startLine, startCol)
	case '<':
		if l.match('=') {
			return l.makeToken(LessEqSymbol, startLine, startCol)
		}
		return l.makeToken(LessSymbol, startLine, startCol)
	case '>':
		if l.match('=') {
			return l.makeToken(GreaterEqSymbol, startLine, startCol)
		}
		return l.makeToken(GreaterSymbol, startLine, startCol)
	case ':':
		if l.match(':') {
			return l.makeToken(DblColonSymbol, startLine, startCol)
		}
		return l.makeToken(ColonSymbol, startLine, startCol)
	case '.':
		if l.match('.') {
			if l.match('.') {
				return l.makeToken(EllipsisSymbol, startLine, startCol)
			}
			return l.makeToken(ConcatSymbol, startLine, startCol)
		}
		if isDigit(l.peek()) {
			l.current = l.start
			l.col -= 1
			return l.number(startLine, startCol)
		}
		return l.makeToken(DotSymbol, startLine, startCol)
	}

	return l.errorToken(fmt.Sprintf("unexpected symbol near '%c'", c), startLine, startCol)
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		if l.atEnd() {
			return
		}
		switch c := l.peek(); c {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.advance()
		case '-':
			if l.peekAt(1) != '-' {
				return
			}
			l.advance()
			l.advance()
			if l.peek() == '[' && l.peekAt(1) == '[' {
				l.advance()
				l.advance()
				l.skipLongComment()
			} else {
				for !l.atEnd() && l.peek() != '\n' {
					l.advance()
				}
			}
		default:
			return
		}
	}
}

func (l *Lexer) skipLongComment() {
	for !l.atEnd() {
		if l.peek() == ']' && l.peekAt(1) == ']' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *Lexer) identifier(startLine, startCol int) Token {
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}
	text := l.src[l.start:l.current]
	if sym, ok := Keywords[text]; ok {
		return l.makeToken(sym, startLine, startCol)
	}
	tok := l.makeToken(IdentSymbol, startLine, startCol)
	return tok
}

func (l *Lexer) number(startLine, startCol int) Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		mark := l.current
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			l.current = mark
		} else {
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	text := l.src[l.start:l.current]
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.errorToken(fmt.Sprintf("malformed number near '%s'", text), startLine, startCol)
	}
	tok := l.makeToken(NumberSymbol, startLine, startCol)
	tok.Number = val
	return tok
}

func (l *Lexer) stringLiteral(quote byte, startLine, startCol int) Token {
	var sb strings.Builder

	for {
		if l.atEnd() {
			return l.errorToken("unterminated string", startLine, startCol)
		}
		c := l.peek()
		if c == '\n' {
			return l.errorToken("unterminated string", startLine, startCol)
		}
		if c == quote {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			if l.atEnd() {
				return l.errorToken("unterminated string", startLine, startCol)
			}
			esc := l.advance()
			switch esc {
			case 'a':
				sb.WriteByte('\a')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'v':
				sb.WriteByte('\v')
			case '\\':
				sb.WriteByte('\\')
			case '\'':
				sb.WriteByte('\'')
			case '"':
				sb.WriteByte('"')
			case '\n':
				sb.WriteByte('\n')
			case 'z':
				for !l.atEnd() && isSpace(l.peek()) {
					l.advance()
				}
			default:
				if isDigit(esc) {
					digits := string(esc)
					for i := 0; i < 2 && isDigit(l.peek()); i++ {
						digits += string(l.advance())
					}
					n, convErr := strconv.Atoi(digits)
					if convErr != nil || n > 255 {
						return l.errorToken("decimal escape too large", startLine, startCol)
					}
					sb.WriteByte(byte(n))
				} else {
					return l.errorToken(fmt.Sprintf("invalid escape sequence '\\%c'", esc), startLine, startCol)
				}
			}
			continue
		}
		sb.WriteByte(l.advance())
	}

	tok := l.makeToken(StringSymbol, startLine, startCol)
	tok.Str = sb.String()
	return tok
}

func (l *Lexer) makeToken(sym Symbol, startLine, startCol int) Token {
	return Token{
		Symbol: sym,
		Lexeme: l.src[l.start:l.current],
		Span: source.Span{
			Start: source.Pos{Line: startLine, Col: startCol},
			End:   source.Pos{Line: l.line, Col: l.col - 1},
		},
	}
}

func (l *Lexer) errorToken(msg string, startLine, startCol int) Token {
	return Token{
		Symbol: ErrorSymbol,
		Lexeme: msg,
		Span: source.Span{
			Start: source.Pos{Line: startLine, Col: startCol},
			End:   source.Pos{Line: l.line, Col: l.col},
		},
	}
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.src)
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.current]
}

func (l *Lexer) peekAt(offset int) byte {
	idx := l.current + offset
	if idx >= len(l.src) {
		return 0
	}
	return l.src[idx]
}

func (l *Lexer) advance() byte {
	c := l.src[l.current]
	l.current++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.src[l.current] != expected {
		return false
	}
	l.advance()
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
