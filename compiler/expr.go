package compiler

import (
	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/parser"
	"github.com/glua-lang/glua/vm"
)

// rkOperand materializes e as an RK field: a constant-pool
// reference when e is a literal the compiler can fold straight into the
// pool, otherwise a register holding the computed value.
func (c *compiler) rkOperand(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.NumberExpr:
		if k := c.numberConstant(n.Value); k <= vm.MaxRKK {
			return vm.RKConst(k)
		}
	case *ast.StringExpr:
		if k := c.stringConstant(n.Value); k <= vm.MaxRKK {
			return vm.RKConst(k)
		}
	}
	return c.compileExpr(e)
}

// compileExpr compiles e and returns a register holding its value:
// literals and locals avoid emitting code where possible, everything
// else materializes into a freshly reserved register.
func (c *compiler) compileExpr(e ast.Expr) int {
	line := e.Span().Start.Line

	if inner, ok := parser.ParenExpr(e); ok {
		return c.compileExpr(inner)
	}

	switch n := e.(type) {
	case *ast.NilExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpLoadNil, r, r, 0), line)
		return r

	case *ast.TrueExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpLoadBool, r, 1, 0), line)
		return r

	case *ast.FalseExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpLoadBool, r, 0, 0), line)
		return r

	case *ast.NumberExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABx(vm.OpLoadK, r, c.numberConstant(n.Value)), line)
		return r

	case *ast.StringExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABx(vm.OpLoadK, r, c.stringConstant(n.Value)), line)
		return r

	case *ast.VarargExpr:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpVararg, r, 2, 0), line)
		return r

	case *ast.Ident:
		return c.compileIdent(n)

	case *ast.IndexExpr:
		obj := c.compileExpr(n.Object)
		key := c.rkOperand(n.Key)
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpGetTable, r, obj, key), line)
		return r

	case *ast.FieldExpr:
		obj := c.compileExpr(n.Object)
		key := vm.RKConst(c.stringConstant(n.Name))
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpGetTable, r, obj, key), line)
		return r

	case *ast.UnaryExpr:
		return c.compileUnary(n)

	case *ast.BinaryExpr:
		return c.compileBinary(n)

	case *ast.FunctionExpr:
		return c.compileFunctionExpr(n)

	case *ast.TableExpr:
		return c.compileTableExpr(n)

	case *ast.CallExpr:
		r, _ := c.compileCall(n, 1)
		return r
	}

	c.fail(line, "unsupported expression")
	return 0
}

func (c *compiler) compileIdent(n *ast.Ident) int {
	res := c.resolve(n.Name)
	line := n.Span().Start.Line
	switch res.kind {
	case varLocal:
		return res.slot
	case varUpvalue:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpGetUpval, r, res.slot, 0), line)
		return r
	default:
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABx(vm.OpGetGlobal, r, c.stringConstant(n.Name)), line)
		return r
	}
}

func (c *compiler) compileUnary(n *ast.UnaryExpr) int {
	line := n.Span().Start.Line

	if c.opts.Fold {
		if v, ok := foldUnary(n); ok {
			return c.loadConstValue(v, line)
		}
	}

	operand := c.compileExpr(n.Operand)
	r, _ := c.regs.Alloc()
	switch n.Op {
	case "-":
		c.emit(vm.NewABC(vm.OpUnm, r, operand, 0), line)
	case "not":
		c.emit(vm.NewABC(vm.OpNot, r, operand, 0), line)
	case "#":
		c.emit(vm.NewABC(vm.OpLen, r, operand, 0), line)
	}
	return r
}

func (c *compiler) loadConstValue(v vm.Value, line int) int {
	r, _ := c.regs.Alloc()
	switch v.Kind() {
	case vm.KindNumber:
		c.emit(vm.NewABx(vm.OpLoadK, r, c.numberConstant(v.AsNumber())), line)
	case vm.KindString:
		c.emit(vm.NewABx(vm.OpLoadK, r, c.stringConstant(v.AsString().Value)), line)
	case vm.KindBool:
		b := 0
		if v.AsBool() {
			b = 1
		}
		c.emit(vm.NewABC(vm.OpLoadBool, r, b, 0), line)
	default:
		c.emit(vm.NewABC(vm.OpLoadNil, r, r, 0), line)
	}
	return r
}

var comparisonOps = map[string]bool{"==": true, "~=": true, "<": true, "<=": true, ">": true, ">=": true}

func (c *compiler) compileBinary(n *ast.BinaryExpr) int {
	line := n.Span().Start.Line

	if n.Op == "and" || n.Op == "or" {
		return c.compileAndOr(n)
	}

	if c.opts.Fold {
		if v, ok := foldBinary(n); ok {
			return c.loadConstValue(v, line)
		}
	}

	if n.Op == ".." {
		return c.compileConcat(n)
	}

	if comparisonOps[n.Op] {
		return c.compileComparisonToReg(n)
	}

	b := c.rkOperand(n.Left)
	a := c.rkOperand(n.Right)
	r, _ := c.regs.Alloc()
	c.emit(vm.NewABC(arithOp(n.Op), r, b, a), line)
	return r
}

func arithOp(op string) vm.OpCode {
	switch op {
	case "+":
		return vm.OpAdd
	case "-":
		return vm.OpSub
	case "*":
		return vm.OpMul
	case "/":
		return vm.OpDiv
	case "%":
		return vm.OpMod
	case "^":
		return vm.OpPow
	}
	return vm.OpAdd
}

// compileConcat flattens a right-associative chain of `..` into a single
// CONCAT spanning every operand, since `a..b..c`
// parses as `a..(b..c)`.
func (c *compiler) compileConcat(n *ast.BinaryExpr) int {
	line := n.Span().Start.Line
	var operands []ast.Expr
	var flatten func(e ast.Expr)
	flatten = func(e ast.Expr) {
		if be, ok := e.(*ast.BinaryExpr); ok && be.Op == ".." {
			flatten(be.Left)
			flatten(be.Right)
			return
		}
		operands = append(operands, e)
	}
	flatten(n)

	mark := c.regs.Mark()
	for i, op := range operands {
		if v := c.compileExpr(op); v != mark+i {
			c.regs.FreeTo(mark + i)
			r, _ := c.regs.Alloc()
			c.emit(vm.NewABC(vm.OpMove, r, v, 0), line)
		}
	}
	first, last := mark, mark+len(operands)-1
	r, _ := c.regs.Alloc()
	c.emit(vm.NewABC(vm.OpConcat, r, first, last), line)
	c.regs.FreeTo(mark)
	// r was allocated after the temporaries it was meant to replace; redo
	// the allocation now that the operand temporaries are released so the
	// result occupies the lowest free register.
	r2, _ := c.regs.Alloc()
	if r2 != r {
		c.emit(vm.NewABC(vm.OpMove, r2, r, 0), line)
	}
	return r2
}

// compileComparisonToReg materializes a comparison's boolean result into
// a register using the classic comparison/JMP/LOADBOOL/LOADBOOL pattern:
// the comparison's following JMP is always present, regardless of which
// way the comparison actually resolves at runtime.
func (c *compiler) compileComparisonToReg(n *ast.BinaryExpr) int {
	line := n.Span().Start.Line
	op, swap, want := comparisonOpCode(n.Op)
	left, right := n.Left, n.Right
	if swap {
		left, right = right, left
	}
	b := c.rkOperand(left)
	a := c.rkOperand(right)

	wantInt := 0
	if want {
		wantInt = 1
	}
	c.emit(vm.NewABC(op, wantInt, b, a), line)
	jmpTrue := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), line)

	r, _ := c.regs.Alloc()
	c.emit(vm.NewABC(vm.OpLoadBool, r, 0, 1), line)
	falseTarget := c.emit(vm.NewABC(vm.OpLoadBool, r, 1, 0), line)
	c.patchJump(jmpTrue, falseTarget)
	return r
}

func comparisonOpCode(op string) (code vm.OpCode, swap bool, want bool) {
	switch op {
	case "==":
		return vm.OpEq, false, true
	case "~=":
		return vm.OpEq, false, false
	case "<":
		return vm.OpLt, false, true
	case "<=":
		return vm.OpLe, false, true
	case ">":
		return vm.OpLt, true, true
	case ">=":
		return vm.OpLe, true, true
	}
	return vm.OpEq, false, true
}

// compileAndOr implements short-circuit evaluation.
func (c *compiler) compileAndOr(n *ast.BinaryExpr) int {
	line := n.Span().Start.Line
	r := c.compileExpr(n.Left)

	wantTruthy := 0
	if n.Op == "or" {
		wantTruthy = 1
	}
	c.emit(vm.NewABC(vm.OpTest, r, 0, wantTruthy), line)
	skip := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), line)

	mark := c.regs.Mark()
	c.regs.FreeTo(r)
	rhs := c.compileExpr(n.Right)
	if rhs != r {
		c.emit(vm.NewABC(vm.OpMove, r, rhs, 0), line)
	}
	c.regs.FreeTo(mark)
	end := len(c.code)
	c.patchJump(skip, end)
	return r
}

func (c *compiler) patchJump(pc int, target int) {
	sbx := target - (pc + 1)
	if !fitsSigned(sbx, vm.SizeBx) {
		c.fail(0, "jump offset too large to encode")
	}
	op := c.code[pc].OpCode()
	a := c.code[pc].A()
	c.code[pc] = vm.NewAsBx(op, a, sbx)
}

func (c *compiler) compileTableExpr(n *ast.TableExpr) int {
	line := n.Span().Start.Line
	r, _ := c.regs.Alloc()
	c.emit(vm.NewABC(vm.OpNewTable, r, 0, 0), line)

	const fieldsPerFlush = 50
	arrayIndex := 0
	pendingBase := -1
	pendingCount := 0

	flush := func() {
		if pendingCount == 0 {
			return
		}
		batch := (arrayIndex-pendingCount)/fieldsPerFlush + 1
		c.emit(vm.NewABC(vm.OpSetList, r, pendingCount, batch), line)
		c.regs.FreeTo(pendingBase)
		pendingCount = 0
		pendingBase = -1
	}

	for _, f := range n.Fields {
		if f.Key == nil {
			arrayIndex++
			if pendingBase == -1 {
				pendingBase = c.regs.Mark()
			}
			if v := c.compileExpr(f.Value); v != pendingBase+pendingCount {
				c.regs.FreeTo(pendingBase + pendingCount)
				dst, _ := c.regs.Alloc()
				c.emit(vm.NewABC(vm.OpMove, dst, v, 0), line)
			}
			pendingCount++
			if pendingCount == fieldsPerFlush {
				flush()
			}
			continue
		}
		flush()
		mark := c.regs.Mark()
		key := c.rkOperand(f.Key)
		val := c.rkOperand(f.Value)
		c.emit(vm.NewABC(vm.OpSetTable, r, key, val), line)
		c.regs.FreeTo(mark)
	}
	flush()
	return r
}
