package ast

import "github.com/glua-lang/glua/source"

// NilExpr is the `nil` literal.
type NilExpr struct{ Span_ source.Span }

func (e *NilExpr) Span() source.Span { return e.Span_ }
func (e *NilExpr) exprNode()         {}

// TrueExpr and FalseExpr are the boolean literals.
type TrueExpr struct{ Span_ source.Span }

func (e *TrueExpr) Span() source.Span { return e.Span_ }
func (e *TrueExpr) exprNode()         {}

type FalseExpr struct{ Span_ source.Span }

func (e *FalseExpr) Span() source.Span { return e.Span_ }
func (e *FalseExpr) exprNode()         {}

// VarargExpr is the `...` expression, valid only inside a vararg function.
type VarargExpr struct{ Span_ source.Span }

func (e *VarargExpr) Span() source.Span { return e.Span_ }
func (e *VarargExpr) exprNode()         {}

// NumberExpr is a decoded numeric literal.
type NumberExpr struct {
	Value float64
	Span_ source.Span
}

func (e *NumberExpr) Span() source.Span { return e.Span_ }
func (e *NumberExpr) exprNode()         {}

// StringExpr is a decoded string literal.
type StringExpr struct {
	Value string
	Span_ source.Span
}

func (e *StringExpr) Span() source.Span { return e.Span_ }
func (e *StringExpr) exprNode()         {}

// Ident is an identifier reference. Whether it resolves to a local, an
// upvalue or a global is decided by the compiler's scope chain, not here.
type Ident struct {
	Name  string
	Span_ source.Span
}

func (e *Ident) Span() source.Span { return e.Span_ }
func (e *Ident) exprNode()         {}
func (e *Ident) lvalueNode()       {}

// IndexExpr is `object[key]`.
type IndexExpr struct {
	Object Expr
	Key    Expr
	Span_  source.Span
}

func (e *IndexExpr) Span() source.Span { return e.Span_ }
func (e *IndexExpr) exprNode()         {}
func (e *IndexExpr) lvalueNode()       {}

// FieldExpr is `object.name`, sugar for IndexExpr with a string key.
type FieldExpr struct {
	Object Expr
	Name   string
	Span_  source.Span
}

func (e *FieldExpr) Span() source.Span { return e.Span_ }
func (e *FieldExpr) exprNode()         {}
func (e *FieldExpr) lvalueNode()       {}

// CallExpr is `fn(args)` or, when Method is non-empty, `fn:Method(args)`.
type CallExpr struct {
	Fn     Expr
	Method string
	Args   []Expr
	Span_  source.Span
}

func (e *CallExpr) Span() source.Span { return e.Span_ }
func (e *CallExpr) exprNode()         {}

// UnaryExpr is `not x`, `#x` or `-x`.
type UnaryExpr struct {
	Op      string
	Operand Expr
	Span_   source.Span
}

func (e *UnaryExpr) Span() source.Span { return e.Span_ }
func (e *UnaryExpr) exprNode()         {}

// BinaryExpr covers every binary operator: arithmetic, comparison,
// concatenation, and `and`/`or` (which the compiler special-cases for
// short-circuit evaluation rather than treating as ordinary binary ops).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
	Span_ source.Span
}

func (e *BinaryExpr) Span() source.Span { return e.Span_ }
func (e *BinaryExpr) exprNode()         {}

// FunctionExpr is a function literal: parameter list, vararg flag, body.
type FunctionExpr struct {
	Params   []*Ident
	IsVararg bool
	Body     *Block
	Span_    source.Span
}

func (e *FunctionExpr) Span() source.Span { return e.Span_ }
func (e *FunctionExpr) exprNode()         {}

// TableField is one entry of a TableExpr: `[expr]=expr`, `name=expr`, or a
// bare `expr` (Key == nil, implicit integer key assigned by the compiler).
type TableField struct {
	Key   Expr // nil for array-style fields
	Value Expr
}

// TableExpr is a table constructor `{ field {, field} }`.
type TableExpr struct {
	Fields []TableField
	Span_  source.Span
}

func (e *TableExpr) Span() source.Span { return e.Span_ }
func (e *TableExpr) exprNode()         {}
