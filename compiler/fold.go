package compiler

import (
	"math"

	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/vm"
)

// foldUnary implements constant folding for unary minus and `not`/`#` on
// literals. It never folds across a side-effecting
// subexpression; n.Operand must itself already be a literal node.
func foldUnary(n *ast.UnaryExpr) (vm.Value, bool) {
	switch n.Op {
	case "-":
		if num, ok := n.Operand.(*ast.NumberExpr); ok {
			return vm.Number(-num.Value), true
		}
	case "not":
		if v, ok := literalTruthy(n.Operand); ok {
			return vm.Bool(!v), true
		}
	case "#":
		if s, ok := n.Operand.(*ast.StringExpr); ok {
			return vm.Number(float64(len(s.Value))), true
		}
	}
	return vm.Nil, false
}

func literalTruthy(e ast.Expr) (bool, bool) {
	switch n := e.(type) {
	case *ast.NilExpr:
		return false, true
	case *ast.FalseExpr:
		return false, true
	case *ast.TrueExpr:
		return true, true
	case *ast.NumberExpr:
		_ = n
		return true, true
	case *ast.StringExpr:
		return true, true
	}
	return false, false
}

// foldBinary implements constant folding for arithmetic whose operands are
// number literals or themselves foldable arithmetic (so `1 + 2 * 3` folds
// whole), and concatenation of two string literals.
// Division by zero and results that overflow to +/-Inf or NaN suppress
// the fold, since those cases are better left for the VM's own
// IEEE-754 arithmetic to produce (the values are identical either way,
// but skipping the fold avoids baking an Inf/NaN into the constant pool
// and keeps disassembly readable).
func foldBinary(n *ast.BinaryExpr) (vm.Value, bool) {
	if n.Op == ".." {
		l, lok := n.Left.(*ast.StringExpr)
		r, rok := n.Right.(*ast.StringExpr)
		if lok && rok {
			return vm.StringValue(vm.NewRawString(l.Value + r.Value)), true
		}
		return vm.Nil, false
	}

	operand := func(e ast.Expr) (*ast.NumberExpr, bool) {
		if lit, ok := e.(*ast.NumberExpr); ok {
			return lit, true
		}
		if be, ok := e.(*ast.BinaryExpr); ok {
			if v, ok := foldBinary(be); ok && v.IsNumber() {
				return &ast.NumberExpr{Value: v.AsNumber()}, true
			}
		}
		return nil, false
	}
	l, lok := operand(n.Left)
	r, rok := operand(n.Right)
	if !lok || !rok {
		return vm.Nil, false
	}

	var result float64
	switch n.Op {
	case "+":
		result = l.Value + r.Value
	case "-":
		result = l.Value - r.Value
	case "*":
		result = l.Value * r.Value
	case "/":
		if r.Value == 0 {
			return vm.Nil, false
		}
		result = l.Value / r.Value
	case "%":
		if r.Value == 0 {
			return vm.Nil, false
		}
		result = l.Value - math.Floor(l.Value/r.Value)*r.Value
	case "^":
		result = math.Pow(l.Value, r.Value)
	default:
		return vm.Nil, false
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return vm.Nil, false
	}
	return vm.Number(result), true
}
