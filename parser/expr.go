package parser

import (
	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/lexer"
	"github.com/glua-lang/glua/source"
)

// binPrec gives each binary operator its precedence level, low to high:
// or=1, and=2, comparisons=3, concat=4 (right), +-=5, */%=6, unary=7,
// ^=8 (right). rightAssoc marks `..` and `^`.
var binPrec = map[lexer.Symbol]int{
	lexer.OrSymbol:        1,
	lexer.AndSymbol:       2,
	lexer.LessSymbol:      3,
	lexer.GreaterSymbol:   3,
	lexer.LessEqSymbol:    3,
	lexer.GreaterEqSymbol: 3,
	lexer.EqEqSymbol:      3,
	lexer.NotEqSymbol:     3,
	lexer.ConcatSymbol:    4,
	lexer.PlusSymbol:      5,
	lexer.MinusSymbol:     5,
	lexer.StarSymbol:      6,
	lexer.SlashSymbol:     6,
	lexer.PercentSymbol:   6,
	lexer.CaratSymbol:     8,
}

var rightAssoc = map[lexer.Symbol]bool{
	lexer.ConcatSymbol: true,
	lexer.CaratSymbol:  true,
}

const unaryPrec = 7

func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinExpr(0)
}

// parseBinExpr implements precedence climbing: it parses a unary
// expression, then repeatedly folds in binary operators whose precedence
// is at least minPrec, recursing with a bumped minPrec for left-associative
// operators and the operator's own precedence for right-associative ones.
func (p *Parser) parseBinExpr(minPrec int) ast.Expr {
	left := p.parseUnaryExpr()

	for {
		prec, ok := binPrec[p.tok.Symbol]
		if !ok || prec < minPrec {
			return left
		}
		op := p.tok
		p.advance()

		nextMin := prec + 1
		if rightAssoc[op.Symbol] {
			nextMin = prec
		}
		right := p.parseBinExpr(nextMin)

		left = &ast.BinaryExpr{
			Op: string(op.Symbol), Left: left, Right: right,
			Span_: source.Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	switch p.tok.Symbol {
	case lexer.NotSymbol, lexer.HashSymbol, lexer.MinusSymbol:
		op := p.tok
		p.advance()
		operand := p.parseBinExpr(unaryPrec)
		return &ast.UnaryExpr{
			Op: string(op.Symbol), Operand: operand,
			Span_: source.Span{Start: op.Span.Start, End: operand.Span().End},
		}
	default:
		return p.parseBinExpr2Primary()
	}
}

// parseBinExpr2Primary parses the `^`-level operand: a suffixed primary
// expression, with `^` itself handled by the generic binary-operator loop
// above (its precedence of 8 is already higher than unary's 7, so
// `-x^2` parses as `-(x^2)` per spec's table).
func (p *Parser) parseBinExpr2Primary() ast.Expr {
	return p.parseSuffixedExpr()
}

// parsePrimaryExpr parses a literal, identifier, parenthesized expression,
// function expression, or table constructor — the base of a primary
// expression before any suffixes are applied.
func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.tok
	switch tok.Symbol {
	case lexer.NilSymbol:
		p.advance()
		return &ast.NilExpr{Span_: tok.Span}
	case lexer.TrueSymbol:
		p.advance()
		return &ast.TrueExpr{Span_: tok.Span}
	case lexer.FalseSymbol:
		p.advance()
		return &ast.FalseExpr{Span_: tok.Span}
	case lexer.EllipsisSymbol:
		p.advance()
		return &ast.VarargExpr{Span_: tok.Span}
	case lexer.NumberSymbol:
		p.advance()
		return &ast.NumberExpr{Value: tok.Number, Span_: tok.Span}
	case lexer.StringSymbol:
		p.advance()
		return &ast.StringExpr{Value: tok.Str, Span_: tok.Span}
	case lexer.IdentSymbol:
		p.advance()
		return &ast.Ident{Name: tok.Lexeme, Span_: tok.Span}
	case lexer.LParenSymbol:
		p.advance()
		inner := p.parseExpr()
		end := p.expect(lexer.RParenSymbol, "expected ')'")
		// Parenthesizing truncates a multi-value expression to one value;
		// represented here by wrapping so the compiler can tell the two
		// apart without re-inspecting the inner node's shape.
		return &parenExpr{Expr: inner, Span_: source.Span{Start: tok.Span.Start, End: end.Span.End}}
	case lexer.FunctionSymbol:
		p.advance()
		return p.parseFunctionBody(false)
	case lexer.LBraceSymbol:
		return p.parseTableExpr()
	}
	p.fail("unexpected symbol, expected expression")
	return nil
}

// parenExpr wraps a parenthesized expression. It implements ast.Expr but
// deliberately not ast.Lvalue: `(x) = 1` is not legal Lua. The inner
// expression is embedded so that ast.Expr's unexported marker method is
// promoted; Span is overridden to cover the parentheses.
type parenExpr struct {
	ast.Expr
	Span_ source.Span
}

func (e *parenExpr) Span() source.Span { return e.Span_ }

// ParenExpr exposes parenExpr's inner expression for the compiler.
func ParenExpr(e ast.Expr) (ast.Expr, bool) {
	if p, ok := e.(*parenExpr); ok {
		return p.Expr, true
	}
	return nil, false
}

// parseSuffixedExpr parses a primary expression followed by any number of
// `.name`, `[expr]`, `:name(args)`, `(args)`, string-arg, or table-arg
// suffixes.
func (p *Parser) parseSuffixedExpr() ast.Expr {
	expr := p.parsePrimaryExpr()

	for {
		switch p.tok.Symbol {
		case lexer.DotSymbol:
			p.advance()
			field := p.expect(lexer.IdentSymbol, "expected field name")
			expr = &ast.FieldExpr{
				Object: expr, Name: field.Lexeme,
				Span_: source.Span{Start: expr.Span().Start, End: field.Span.End},
			}
		case lexer.LBracketSymbol:
			p.advance()
			key := p.parseExpr()
			end := p.expect(lexer.RBracketSymbol, "expected ']'")
			expr = &ast.IndexExpr{
				Object: expr, Key: key,
				Span_: source.Span{Start: expr.Span().Start, End: end.Span.End},
			}
		case lexer.ColonSymbol:
			p.advance()
			method := p.expect(lexer.IdentSymbol, "expected method name")
			args, end := p.parseArgs()
			expr = &ast.CallExpr{
				Fn: expr, Method: method.Lexeme, Args: args,
				Span_: source.Span{Start: expr.Span().Start, End: end},
			}
		case lexer.LParenSymbol, lexer.StringSymbol, lexer.LBraceSymbol:
			args, end := p.parseArgs()
			expr = &ast.CallExpr{
				Fn: expr, Args: args,
				Span_: source.Span{Start: expr.Span().Start, End: end},
			}
		default:
			return expr
		}
	}
}

// parseArgs parses the three function-argument forms: `(exprs)`, a single
// string literal, or a single table constructor.
func (p *Parser) parseArgs() ([]ast.Expr, source.Pos) {
	switch p.tok.Symbol {
	case lexer.StringSymbol:
		tok := p.tok
		p.advance()
		return []ast.Expr{&ast.StringExpr{Value: tok.Str, Span_: tok.Span}}, tok.Span.End
	case lexer.LBraceSymbol:
		tbl := p.parseTableExpr()
		return []ast.Expr{tbl}, tbl.Span().End
	case lexer.LParenSymbol:
		p.advance()
		var args []ast.Expr
		if !p.at(lexer.RParenSymbol) {
			args = p.parseExprList()
		}
		end := p.expect(lexer.RParenSymbol, "expected ')'")
		return args, end.Span.End
	}
	p.fail("expected function arguments")
	return nil, source.Pos{}
}

func (p *Parser) parseTableExpr() ast.Expr {
	start := p.tok.Span
	p.expect(lexer.LBraceSymbol, "expected '{'")

	var fields []ast.TableField
	for !p.at(lexer.RBraceSymbol) {
		fields = append(fields, p.parseTableField())
		if p.at(lexer.CommaSymbol) || p.at(lexer.SemiSymbol) {
			p.advance()
		} else {
			break
		}
	}
	end := p.expect(lexer.RBraceSymbol, "expected '}'")
	return &ast.TableExpr{Fields: fields, Span_: source.Span{Start: start.Start, End: end.Span.End}}
}

func (p *Parser) parseTableField() ast.TableField {
	if p.at(lexer.LBracketSymbol) {
		p.advance()
		key := p.parseExpr()
		p.expect(lexer.RBracketSymbol, "expected ']'")
		p.expect(lexer.AssignSymbol, "expected '='")
		val := p.parseExpr()
		return ast.TableField{Key: key, Value: val}
	}

	if p.at(lexer.IdentSymbol) {
		saved := p.lex.Save()
		savedTok := p.tok
		name := p.tok
		p.advance()
		if p.match(lexer.AssignSymbol) {
			val := p.parseExpr()
			return ast.TableField{
				Key:   &ast.StringExpr{Value: name.Lexeme, Span_: name.Span},
				Value: val,
			}
		}
		p.lex.Restore(saved)
		p.tok = savedTok
	}

	val := p.parseExpr()
	return ast.TableField{Value: val}
}
