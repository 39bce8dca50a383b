package ast

import "github.com/glua-lang/glua/source"

// LocalStmt is `local name{,name} [= expr{,expr}]`.
type LocalStmt struct {
	Names []*Ident
	Exprs []Expr
	Span_ source.Span
}

func (s *LocalStmt) Span() source.Span { return s.Span_ }
func (s *LocalStmt) stmtNode()         {}

// AssignStmt is `lvalue{,lvalue} = expr{,expr}`. Evaluation order for the
// right-hand side is left-to-right; assignment to the targets happens only
// after every right-hand expression is evaluated.
type AssignStmt struct {
	Targets []Lvalue
	Exprs   []Expr
	Span_   source.Span
}

func (s *AssignStmt) Span() source.Span { return s.Span_ }
func (s *AssignStmt) stmtNode()         {}

// CallStmt is an expression statement whose top node is a Call.
type CallStmt struct {
	Call  *CallExpr
	Span_ source.Span
}

func (s *CallStmt) Span() source.Span { return s.Span_ }
func (s *CallStmt) stmtNode()         {}

// IfClause is one `if`/`elseif` condition and its Block.
type IfClause struct {
	Cond Expr
	Body *Block
}

// IfStmt is `if cond then Block {elseif cond then Block} [else Block] end`.
type IfStmt struct {
	Clauses []IfClause
	Else    *Block // nil when there is no else branch
	Span_   source.Span
}

func (s *IfStmt) Span() source.Span { return s.Span_ }
func (s *IfStmt) stmtNode()         {}

// WhileStmt is `while cond do Block end`.
type WhileStmt struct {
	Cond  Expr
	Body  *Block
	Span_ source.Span
}

func (s *WhileStmt) Span() source.Span { return s.Span_ }
func (s *WhileStmt) stmtNode()         {}

// RepeatStmt is `repeat Block until cond`. The until-condition is scoped
// inside the Block, so it can see locals the Block declared.
type RepeatStmt struct {
	Body  *Block
	Cond  Expr
	Span_ source.Span
}

func (s *RepeatStmt) Span() source.Span { return s.Span_ }
func (s *RepeatStmt) stmtNode()         {}

// NumericForStmt is `for name = start, end [, step] do Block end`.
type NumericForStmt struct {
	Name  *Ident
	Start Expr
	Stop  Expr
	Step  Expr // nil means implicit step of 1
	Body  *Block
	Span_ source.Span
}

func (s *NumericForStmt) Span() source.Span { return s.Span_ }
func (s *NumericForStmt) stmtNode()         {}

// GenericForStmt is `for name{,name} in expr{,expr} do Block end`.
type GenericForStmt struct {
	Names []*Ident
	Exprs []Expr
	Body  *Block
	Span_ source.Span
}

func (s *GenericForStmt) Span() source.Span { return s.Span_ }
func (s *GenericForStmt) stmtNode()         {}

// DoStmt is a bare `do Block end`, introducing a fresh scope.
type DoStmt struct {
	Body  *Block
	Span_ source.Span
}

func (s *DoStmt) Span() source.Span { return s.Span_ }
func (s *DoStmt) stmtNode()         {}

// FuncNamePath is the dotted/colon target of a `function` declaration,
// e.g. `a.b.c` or `a.b:m`. Method is true when the final segment was
// introduced with `:`, in which case the compiler inserts an implicit
// `self` parameter.
type FuncNamePath struct {
	Base   *Ident
	Fields []string
	Method string // non-empty for `:method` form
}

// FuncDeclStmt is `function name-path (...) Body end`.
type FuncDeclStmt struct {
	Name  FuncNamePath
	Fn    *FunctionExpr
	Span_ source.Span
}

func (s *FuncDeclStmt) Span() source.Span { return s.Span_ }
func (s *FuncDeclStmt) stmtNode()         {}

// LocalFuncStmt is `local function name (...) Body end`. Unlike a plain
// local declaration, the name is in scope inside its own body so the
// function may recurse.
type LocalFuncStmt struct {
	Name  *Ident
	Fn    *FunctionExpr
	Span_ source.Span
}

func (s *LocalFuncStmt) Span() source.Span { return s.Span_ }
func (s *LocalFuncStmt) stmtNode()         {}

// ReturnStmt is `return [expr{,expr}]`. It may only be followed by
// `end`/`else`/`elseif`/`until`/EOF/`;`, enforced by the parser.
type ReturnStmt struct {
	Exprs []Expr
	Span_ source.Span
}

func (s *ReturnStmt) Span() source.Span { return s.Span_ }
func (s *ReturnStmt) stmtNode()         {}

// BreakStmt is the bare `break` keyword.
type BreakStmt struct {
	Span_ source.Span
}

func (s *BreakStmt) Span() source.Span { return s.Span_ }
func (s *BreakStmt) stmtNode()         {}
