// Package ast defines the Lua 5.1.5 abstract syntax tree produced by
// parser and consumed by compiler. Every node carries its source span;
// l-value expressions (Ident, Index, Field) are distinguished from pure
// r-value expressions by node type.
package ast

import "github.com/glua-lang/glua/source"

// Node is implemented by every AST node.
type Node interface {
	Span() source.Span
}

// Stmt marks statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr marks expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Lvalue marks expressions that may appear on the left side of an
// assignment or as the target of a local declaration.
type Lvalue interface {
	Expr
	lvalueNode()
}

// Block is an ordered sequence of statements, the unit of scope for
// locals.
type Block struct {
	Stmts []Stmt
	Span_ source.Span
}

func (b *Block) Span() source.Span { return b.Span_ }
