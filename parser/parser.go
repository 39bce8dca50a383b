// Package parser implements a recursive-descent, precedence-climbing parser
// producing an ast.Block from a lexer.Lexer's token stream.
package parser

import (
	"fmt"

	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/feedback"
	"github.com/glua-lang/glua/lexer"
	"github.com/glua-lang/glua/source"
)

// Parser holds parsing state: the source file (for diagnostics) and the
// lexer supplying tokens. The two-token look-ahead parselets need is built
// on top of the lexer's own Save/Restore, not buffered here.
type Parser struct {
	file *source.File
	lex  *lexer.Lexer
	tok  lexer.Token
}

// ParseError reports the first unexpected token encountered. The parser
// aborts on the first error rather than attempting recovery by default;
// Synchronize is available for a caller that wants panic-mode recovery
// instead.
type ParseError struct {
	Message string
	Span    source.Span
}

func (e *ParseError) Error() string { return e.Message }

// Parse parses an entire chunk and returns its Block, or the first
// ParseError encountered.
func Parse(file *source.File) (block *ast.Block, err error) {
	p := &Parser{file: file, lex: lexer.New(file)}
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	p.advance()
	block = p.parseBlock()
	p.expect(lexer.EOFSymbol, "expected end of chunk")
	return block, nil
}

// Feedback renders a ParseError as a feedback.Error for source-annotated
// display.
func (e *ParseError) Feedback(file *source.File) feedback.Error {
	return feedback.Error{
		Classification: feedback.ParseError,
		File:           file,
		What: feedback.Selection{
			Description: e.Message,
			Span:        e.Span,
		},
	}
}

func (p *Parser) advance() {
	p.tok = p.lex.NextToken()
}

func (p *Parser) at(sym lexer.Symbol) bool {
	return p.tok.Symbol == sym
}

func (p *Parser) atAny(syms ...lexer.Symbol) bool {
	for _, s := range syms {
		if p.tok.Symbol == s {
			return true
		}
	}
	return false
}

func (p *Parser) match(sym lexer.Symbol) bool {
	if p.at(sym) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(sym lexer.Symbol, msg string) lexer.Token {
	if !p.at(sym) {
		p.fail(fmt.Sprintf("%s, found '%s'", msg, p.tok.Lexeme))
	}
	tok := p.tok
	p.advance()
	return tok
}

func (p *Parser) fail(msg string) {
	panic(&ParseError{Message: msg, Span: p.tok.Span})
}

// blockEndSymbols are the tokens that terminate a Block: the calling
// construct's closing keyword, or EOF at chunk level.
var blockEndSymbols = []lexer.Symbol{
	lexer.EndSymbol, lexer.ElseSymbol, lexer.ElseifSymbol,
	lexer.UntilSymbol, lexer.EOFSymbol,
}

func (p *Parser) atBlockEnd() bool {
	return p.atAny(blockEndSymbols...)
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.tok.Span
	var stmts []ast.Stmt
	for !p.atBlockEnd() {
		if p.at(lexer.ReturnSymbol) {
			stmts = append(stmts, p.parseReturn())
			break
		}
		stmt := p.parseStmt()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	end := start
	if len(stmts) > 0 {
		end = stmts[len(stmts)-1].Span()
	}
	return &ast.Block{Stmts: stmts, Span_: source.Span{Start: start.Start, End: end.End}}
}

// Synchronize implements panic-mode recovery: it discards tokens until a
// statement boundary (`;` or a statement-starting keyword) is reached.
// Parse itself never calls this; it exists for callers that want to keep
// parsing after an error instead of aborting.
func (p *Parser) Synchronize() {
	for !p.at(lexer.EOFSymbol) {
		if p.match(lexer.SemiSymbol) {
			return
		}
		switch p.tok.Symbol {
		case lexer.LocalSymbol, lexer.IfSymbol, lexer.WhileSymbol, lexer.ForSymbol,
			lexer.DoSymbol, lexer.FunctionSymbol, lexer.ReturnSymbol, lexer.BreakSymbol,
			lexer.RepeatSymbol:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.tok.Symbol {
	case lexer.SemiSymbol:
		p.advance()
		return nil
	case lexer.LocalSymbol:
		return p.parseLocal()
	case lexer.IfSymbol:
		return p.parseIf()
	case lexer.WhileSymbol:
		return p.parseWhile()
	case lexer.RepeatSymbol:
		return p.parseRepeat()
	case lexer.ForSymbol:
		return p.parseFor()
	case lexer.DoSymbol:
		return p.parseDo()
	case lexer.FunctionSymbol:
		return p.parseFuncDecl()
	case lexer.BreakSymbol:
		span := p.tok.Span
		p.advance()
		return &ast.BreakStmt{Span_: span}
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.tok.Span
	p.advance()
	var exprs []ast.Expr
	if !p.atBlockEnd() && !p.at(lexer.SemiSymbol) {
		exprs = p.parseExprList()
	}
	end := start
	if len(exprs) > 0 {
		end = exprs[len(exprs)-1].Span()
	}
	p.match(lexer.SemiSymbol)
	return &ast.ReturnStmt{Exprs: exprs, Span_: source.Span{Start: start.Start, End: end.End}}
}

func (p *Parser) parseLocal() ast.Stmt {
	start := p.tok.Span
	p.advance()

	if p.match(lexer.FunctionSymbol) {
		name := p.parseIdent()
		fn := p.parseFunctionBody(false)
		return &ast.LocalFuncStmt{Name: name, Fn: fn, Span_: source.Span{Start: start.Start, End: fn.Span().End}}
	}

	names := []*ast.Ident{p.parseIdent()}
	for p.match(lexer.CommaSymbol) {
		names = append(names, p.parseIdent())
	}

	var exprs []ast.Expr
	end := names[len(names)-1].Span()
	if p.match(lexer.AssignSymbol) {
		exprs = p.parseExprList()
		end = exprs[len(exprs)-1].Span()
	}
	return &ast.LocalStmt{Names: names, Exprs: exprs, Span_: source.Span{Start: start.Start, End: end.End}}
}

func (p *Parser) parseIdent() *ast.Ident {
	tok := p.expect(lexer.IdentSymbol, "expected identifier")
	return &ast.Ident{Name: tok.Lexeme, Span_: tok.Span}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.tok.Span
	p.advance()

	var clauses []ast.IfClause
	cond := p.parseExpr()
	p.expect(lexer.ThenSymbol, "expected 'then'")
	body := p.parseBlock()
	clauses = append(clauses, ast.IfClause{Cond: cond, Body: body})

	for p.match(lexer.ElseifSymbol) {
		cond := p.parseExpr()
		p.expect(lexer.ThenSymbol, "expected 'then'")
		body := p.parseBlock()
		clauses = append(clauses, ast.IfClause{Cond: cond, Body: body})
	}

	var elseBlock *ast.Block
	if p.match(lexer.ElseSymbol) {
		elseBlock = p.parseBlock()
	}

	end := p.expect(lexer.EndSymbol, "expected 'end'")
	return &ast.IfStmt{Clauses: clauses, Else: elseBlock, Span_: source.Span{Start: start.Start, End: end.Span.End}}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.tok.Span
	p.advance()
	cond := p.parseExpr()
	p.expect(lexer.DoSymbol, "expected 'do'")
	body := p.parseBlock()
	end := p.expect(lexer.EndSymbol, "expected 'end'")
	return &ast.WhileStmt{Cond: cond, Body: body, Span_: source.Span{Start: start.Start, End: end.Span.End}}
}

func (p *Parser) parseRepeat() ast.Stmt {
	start := p.tok.Span
	p.advance()
	body := p.parseBlock()
	p.expect(lexer.UntilSymbol, "expected 'until'")
	cond := p.parseExpr()
	return &ast.RepeatStmt{Body: body, Cond: cond, Span_: source.Span{Start: start.Start, End: cond.Span().End}}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.tok.Span
	p.advance()
	name := p.parseIdent()

	if p.match(lexer.AssignSymbol) {
		from := p.parseExpr()
		p.expect(lexer.CommaSymbol, "expected ','")
		to := p.parseExpr()
		var step ast.Expr
		if p.match(lexer.CommaSymbol) {
			step = p.parseExpr()
		}
		p.expect(lexer.DoSymbol, "expected 'do'")
		body := p.parseBlock()
		end := p.expect(lexer.EndSymbol, "expected 'end'")
		return &ast.NumericForStmt{
			Name: name, Start: from, Stop: to, Step: step, Body: body,
			Span_: source.Span{Start: start.Start, End: end.Span.End},
		}
	}

	names := []*ast.Ident{name}
	for p.match(lexer.CommaSymbol) {
		names = append(names, p.parseIdent())
	}
	p.expect(lexer.InSymbol, "expected 'in'")
	exprs := p.parseExprList()
	p.expect(lexer.DoSymbol, "expected 'do'")
	body := p.parseBlock()
	end := p.expect(lexer.EndSymbol, "expected 'end'")
	return &ast.GenericForStmt{
		Names: names, Exprs: exprs, Body: body,
		Span_: source.Span{Start: start.Start, End: end.Span.End},
	}
}

func (p *Parser) parseDo() ast.Stmt {
	start := p.tok.Span
	p.advance()
	body := p.parseBlock()
	end := p.expect(lexer.EndSymbol, "expected 'end'")
	return &ast.DoStmt{Body: body, Span_: source.Span{Start: start.Start, End: end.Span.End}}
}

func (p *Parser) parseFuncDecl() ast.Stmt {
	start := p.tok.Span
	p.advance()

	base := p.parseIdent()
	path := ast.FuncNamePath{Base: base}
	for p.match(lexer.DotSymbol) {
		f := p.expect(lexer.IdentSymbol, "expected field name")
		path.Fields = append(path.Fields, f.Lexeme)
	}
	isMethod := false
	if p.match(lexer.ColonSymbol) {
		m := p.expect(lexer.IdentSymbol, "expected method name")
		path.Method = m.Lexeme
		isMethod = true
	}

	fn := p.parseFunctionBody(isMethod)
	return &ast.FuncDeclStmt{Name: path, Fn: fn, Span_: source.Span{Start: start.Start, End: fn.Span().End}}
}

// parseFunctionBody parses `(params) Block end`, implicitly prepending
// `self` to the parameter list when isMethod is set (spec's SELF calling
// convention for `function a:m(...)`).
func (p *Parser) parseFunctionBody(isMethod bool) *ast.FunctionExpr {
	start := p.tok.Span
	p.expect(lexer.LParenSymbol, "expected '('")

	var params []*ast.Ident
	if isMethod {
		params = append(params, &ast.Ident{Name: "self", Span_: start})
	}
	isVararg := false

	if !p.at(lexer.RParenSymbol) {
		for {
			if p.at(lexer.EllipsisSymbol) {
				p.advance()
				isVararg = true
				break
			}
			params = append(params, p.parseIdent())
			if !p.match(lexer.CommaSymbol) {
				break
			}
		}
	}
	p.expect(lexer.RParenSymbol, "expected ')'")

	body := p.parseBlock()
	end := p.expect(lexer.EndSymbol, "expected 'end'")

	return &ast.FunctionExpr{
		Params: params, IsVararg: isVararg, Body: body,
		Span_: source.Span{Start: start.Start, End: end.Span.End},
	}
}

// parseExprStmt parses either an assignment or a bare call expression
// statement, disambiguated by what follows the first primary expression.
func (p *Parser) parseExprStmt() ast.Stmt {
	start := p.tok.Span
	first := p.parseSuffixedExpr()

	if p.at(lexer.AssignSymbol) || p.at(lexer.CommaSymbol) {
		targets := []ast.Lvalue{p.toLvalue(first)}
		for p.match(lexer.CommaSymbol) {
			targets = append(targets, p.toLvalue(p.parseSuffixedExpr()))
		}
		p.expect(lexer.AssignSymbol, "expected '='")
		exprs := p.parseExprList()
		return &ast.AssignStmt{
			Targets: targets, Exprs: exprs,
			Span_: source.Span{Start: start.Start, End: exprs[len(exprs)-1].Span().End},
		}
	}

	call, ok := first.(*ast.CallExpr)
	if !ok {
		p.fail("syntax error: expression statement must be a function call")
	}
	return &ast.CallStmt{Call: call, Span_: call.Span()}
}

func (p *Parser) toLvalue(e ast.Expr) ast.Lvalue {
	lv, ok := e.(ast.Lvalue)
	if !ok {
		panic(&ParseError{Message: "syntax error: cannot assign to this expression", Span: e.Span()})
	}
	return lv
}

func (p *Parser) parseExprList() []ast.Expr {
	exprs := []ast.Expr{p.parseExpr()}
	for p.match(lexer.CommaSymbol) {
		exprs = append(exprs, p.parseExpr())
	}
	return exprs
}
