package parser

import (
	"testing"

	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/source"
)

func mustParse(t *testing.T, src string) *ast.Block {
	t.Helper()
	block, err := Parse(source.NewFile("test.lua", src))
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return block
}

func TestParseLocalAndAssign(t *testing.T) {
	block := mustParse(t, `local x, y = 1, 2
x, y = y, x`)
	if len(block.Stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(block.Stmts))
	}
	local, ok := block.Stmts[0].(*ast.LocalStmt)
	if !ok || len(local.Names) != 2 || len(local.Exprs) != 2 {
		t.Fatalf("expected a 2-name local with 2 exprs, got %#v", block.Stmts[0])
	}
	assign, ok := block.Stmts[1].(*ast.AssignStmt)
	if !ok || len(assign.Targets) != 2 {
		t.Fatalf("expected a 2-target assignment, got %#v", block.Stmts[1])
	}
}

func TestParseIfElseifElse(t *testing.T) {
	block := mustParse(t, `if a then return 1 elseif b then return 2 else return 3 end`)
	ifStmt, ok := block.Stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %#v", block.Stmts[0])
	}
	if len(ifStmt.Clauses) != 2 {
		t.Fatalf("expected 2 clauses (if + elseif), got %d", len(ifStmt.Clauses))
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected an else block")
	}
}

func TestParseMethodCallAndFuncDecl(t *testing.T) {
	block := mustParse(t, `function obj:method(a, b) return a + b end
obj:method(1, 2)`)
	decl, ok := block.Stmts[0].(*ast.FuncDeclStmt)
	if !ok {
		t.Fatalf("expected FuncDeclStmt, got %#v", block.Stmts[0])
	}
	if decl.Name.Method != "method" {
		t.Fatalf("expected method name 'method', got %q", decl.Name.Method)
	}
	if len(decl.Fn.Params) != 3 || decl.Fn.Params[0].Name != "self" {
		t.Fatalf("expected implicit self param, got %#v", decl.Fn.Params)
	}

	callStmt, ok := block.Stmts[1].(*ast.CallStmt)
	if !ok {
		t.Fatalf("expected CallStmt, got %#v", block.Stmts[1])
	}
	if callStmt.Call.Method != "method" {
		t.Fatalf("expected call method 'method', got %q", callStmt.Call.Method)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	block := mustParse(t, `return 1 + 2 * 3 ^ 2`)
	ret := block.Stmts[0].(*ast.ReturnStmt)
	top, ok := ret.Exprs[0].(*ast.BinaryExpr)
	if !ok || top.Op != "+" {
		t.Fatalf("expected top-level '+', got %#v", ret.Exprs[0])
	}
	right, ok := top.Right.(*ast.BinaryExpr)
	if !ok || right.Op != "*" {
		t.Fatalf("expected '*' nested under '+', got %#v", top.Right)
	}
	pow, ok := right.Right.(*ast.BinaryExpr)
	if !ok || pow.Op != "^" {
		t.Fatalf("expected '^' nested under '*', got %#v", right.Right)
	}
}

func TestParseConcatRightAssociative(t *testing.T) {
	block := mustParse(t, `return "a".. "b".. "c"`)
	ret := block.Stmts[0].(*ast.ReturnStmt)
	top := ret.Exprs[0].(*ast.BinaryExpr)
	if top.Op != ".." {
		t.Fatalf("expected top-level '..', got %#v", top)
	}
	if _, ok := top.Left.(*ast.StringExpr); !ok {
		t.Fatalf("expected left operand to be the first string literal, got %#v", top.Left)
	}
	if _, ok := top.Right.(*ast.BinaryExpr); !ok {
		t.Fatalf("expected right-associative nesting, got %#v", top.Right)
	}
}

func TestParseNumericAndGenericFor(t *testing.T) {
	block := mustParse(t, `for i = 1, 10 do end
for k, v in pairs(t) do end`)
	if _, ok := block.Stmts[0].(*ast.NumericForStmt); !ok {
		t.Fatalf("expected NumericForStmt, got %#v", block.Stmts[0])
	}
	if _, ok := block.Stmts[1].(*ast.GenericForStmt); !ok {
		t.Fatalf("expected GenericForStmt, got %#v", block.Stmts[1])
	}
}

func TestParseTableConstructor(t *testing.T) {
	block := mustParse(t, `local t = {1, 2, name = "x", [3+1] = "y"}`)
	local := block.Stmts[0].(*ast.LocalStmt)
	table := local.Exprs[0].(*ast.TableExpr)
	if len(table.Fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(table.Fields))
	}
	if table.Fields[0].Key != nil {
		t.Fatalf("expected first field to be array-style (nil key)")
	}
	if table.Fields[2].Key == nil {
		t.Fatalf("expected third field ('name=') to have a key")
	}
}

func TestParseErrorOnBadAssignTarget(t *testing.T) {
	_, err := Parse(source.NewFile("test.lua", `1 = 2`))
	if err == nil {
		t.Fatalf("expected a parse error assigning to a literal")
	}
}
