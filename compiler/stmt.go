package compiler

import (
	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/vm"
)

func (c *compiler) compileBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		c.compileStmt(s)
	}
}

func (c *compiler) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.LocalStmt:
		c.compileLocal(n)
	case *ast.AssignStmt:
		c.compileAssign(n)
	case *ast.CallStmt:
		c.compileCall(n.Call, 0)
	case *ast.IfStmt:
		c.compileIf(n)
	case *ast.WhileStmt:
		c.compileWhile(n)
	case *ast.RepeatStmt:
		c.compileRepeat(n)
	case *ast.NumericForStmt:
		c.compileNumericFor(n)
	case *ast.GenericForStmt:
		c.compileGenericFor(n)
	case *ast.DoStmt:
		c.pushScope(nil)
		c.compileBlock(n.Body)
		c.popScope()
	case *ast.FuncDeclStmt:
		c.compileFuncDecl(n)
	case *ast.LocalFuncStmt:
		c.compileLocalFunc(n)
	case *ast.ReturnStmt:
		c.compileReturn(n)
	case *ast.BreakStmt:
		c.compileBreak(n)
	default:
		c.fail(s.Span().Start.Line, "unsupported statement")
	}
}

// compileExprListTo evaluates exprs into count consecutive fresh
// registers starting at the allocator's current mark, padding with nil or
// truncating to match count, and expanding a trailing Call/Vararg.
func (c *compiler) compileExprListTo(exprs []ast.Expr, count int) int {
	base := c.regs.Mark()
	if len(exprs) == 0 {
		for i := 0; i < count; i++ {
			r, _ := c.regs.Alloc()
			c.emit(vm.NewABC(vm.OpLoadNil, r, r, 0), 0)
		}
		return base
	}

	for i, e := range exprs {
		last := i == len(exprs)-1
		if last && count > len(exprs) {
			if call, ok := e.(*ast.CallExpr); ok {
				want := count - i
				fnReg, _ := c.compileCall(call, want)
				c.regs.next = fnReg + want
				continue
			}
			if _, ok := e.(*ast.VarargExpr); ok {
				want := count - i
				r, _ := c.regs.Alloc()
				c.emit(vm.NewABC(vm.OpVararg, r, want+1, 0), e.Span().Start.Line)
				c.regs.next = r + want
				continue
			}
		}
		if r := c.compileExpr(e); r != base+i {
			c.regs.FreeTo(base + i)
			dst, _ := c.regs.Alloc()
			c.emit(vm.NewABC(vm.OpMove, dst, r, 0), e.Span().Start.Line)
		}
	}

	for c.regs.next < base+count {
		r, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpLoadNil, r, r, 0), 0)
	}
	c.regs.next = base + count
	if c.regs.next > c.regs.maxStack {
		c.regs.maxStack = c.regs.next
	}
	return base
}

func (c *compiler) compileLocal(n *ast.LocalStmt) {
	base := c.compileExprListTo(n.Exprs, len(n.Names))
	for i, name := range n.Names {
		c.locals = append(c.locals, local{name: name.Name, register: base + i})
	}
}

// compileAssign evaluates every RHS expression before performing any
// store, satisfying the `a, b = b, a` ordering requirement.
func (c *compiler) compileAssign(n *ast.AssignStmt) {
	mark := c.regs.Mark()
	base := c.compileExprListTo(n.Exprs, len(n.Targets))

	for i, target := range n.Targets {
		c.storeTo(target, base+i)
	}
	c.regs.FreeTo(mark)
}

func (c *compiler) storeTo(target ast.Lvalue, valueReg int) {
	line := target.Span().Start.Line
	switch t := target.(type) {
	case *ast.Ident:
		res := c.resolve(t.Name)
		switch res.kind {
		case varLocal:
			if res.slot != valueReg {
				c.emit(vm.NewABC(vm.OpMove, res.slot, valueReg, 0), line)
			}
		case varUpvalue:
			c.emit(vm.NewABC(vm.OpSetUpval, valueReg, res.slot, 0), line)
		default:
			c.emit(vm.NewABx(vm.OpSetGlobal, valueReg, c.stringConstant(t.Name)), line)
		}
	case *ast.IndexExpr:
		mark := c.regs.Mark()
		obj := c.compileExpr(t.Object)
		key := c.rkOperand(t.Key)
		c.emit(vm.NewABC(vm.OpSetTable, obj, key, valueReg), line)
		c.regs.FreeTo(mark)
	case *ast.FieldExpr:
		mark := c.regs.Mark()
		obj := c.compileExpr(t.Object)
		key := vm.RKConst(c.stringConstant(t.Name))
		c.emit(vm.NewABC(vm.OpSetTable, obj, key, valueReg), line)
		c.regs.FreeTo(mark)
	}
}

// compileIf implements if/elseif/else jump patching: each
// condition's false-jump targets the start of the next branch, and every
// non-final branch ends with an unconditional jump collected into an
// end-jump list patched once the whole construct is compiled.
func (c *compiler) compileIf(n *ast.IfStmt) {
	var endJumps []int

	for i, clause := range n.Clauses {
		falseJump := c.compileCondition(clause.Cond)

		c.pushScope(nil)
		c.compileBlock(clause.Body)
		c.popScope()

		isLast := i == len(n.Clauses)-1 && n.Else == nil
		if !isLast {
			endJumps = append(endJumps, c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), clause.Body.Span().End.Line))
		}
		c.patchJump(falseJump, len(c.code))
	}

	if n.Else != nil {
		c.pushScope(nil)
		c.compileBlock(n.Else)
		c.popScope()
	}

	end := len(c.code)
	for _, j := range endJumps {
		c.patchJump(j, end)
	}
}

// compileCondition evaluates e and emits TEST/JMP such that the JMP is
// taken when e is falsy; it returns the JMP's pc for later patching.
func (c *compiler) compileCondition(e ast.Expr) int {
	mark := c.regs.Mark()
	line := e.Span().Start.Line
	r := c.compileExpr(e)
	c.emit(vm.NewABC(vm.OpTest, r, 0, 0), line)
	jmp := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), line)
	c.regs.FreeTo(mark)
	return jmp
}

func (c *compiler) compileWhile(n *ast.WhileStmt) {
	start := len(c.code)
	loop := &loopContext{}
	falseJump := c.compileCondition(n.Cond)

	c.pushScope(loop)
	c.compileBlock(n.Body)
	c.popScope()

	c.emit(vm.NewAsBx(vm.OpJmp, 0, start-(len(c.code)+1)), n.Span().End.Line)
	end := len(c.code)
	c.patchJump(falseJump, end)
	for _, j := range loop.breakJumps {
		c.patchJump(j, end)
	}
}

// compileRepeat compiles the until-condition inside the body's own scope
// so it can see locals the body declared.
func (c *compiler) compileRepeat(n *ast.RepeatStmt) {
	start := len(c.code)
	loop := &loopContext{}

	c.pushScope(loop)
	c.compileBlock(n.Body)
	falseJump := c.compileCondition(n.Cond)
	c.patchJump(falseJump, start)
	c.popScope()

	end := len(c.code)
	for _, j := range loop.breakJumps {
		c.patchJump(j, end)
	}
}

// compileNumericFor reserves three hidden registers (start, stop, step)
// plus the visible loop variable.
func (c *compiler) compileNumericFor(n *ast.NumericForStmt) {
	line := n.Span().Start.Line
	base, _ := c.regs.Reserve(3)
	c.compileInto(n.Start, base)
	c.compileInto(n.Stop, base+1)
	if n.Step != nil {
		c.compileInto(n.Step, base+2)
	} else {
		c.emit(vm.NewABx(vm.OpLoadK, base+2, c.numberConstant(1)), line)
	}

	loopVarReg, _ := c.regs.Alloc()

	prep := c.emit(vm.NewAsBx(vm.OpForPrep, base, 0), line)
	bodyStart := len(c.code)

	loop := &loopContext{}
	c.pushScope(loop)
	c.locals = append(c.locals, local{name: n.Name.Name, register: loopVarReg})
	c.compileBlock(n.Body)
	c.popScope()

	loopStart := len(c.code)
	c.patchJump(prep, loopStart)
	forloop := c.emit(vm.NewAsBx(vm.OpForLoop, base, 0), n.Span().End.Line)
	c.patchJump(forloop, bodyStart)
	end := len(c.code)
	for _, j := range loop.breakJumps {
		c.patchJump(j, end)
	}
	c.regs.FreeTo(base)
}

// compileInto compiles e and moves its result into a specific register,
// used by numeric-for's hidden start/stop/step slots.
func (c *compiler) compileInto(e ast.Expr, reg int) {
	mark := c.regs.Mark()
	v := c.compileExpr(e)
	if v != reg {
		c.emit(vm.NewABC(vm.OpMove, reg, v, 0), e.Span().Start.Line)
	}
	c.regs.FreeTo(mark)
}

// compileGenericFor reserves three hidden registers (iterator, state,
// control) plus the loop variables.
func (c *compiler) compileGenericFor(n *ast.GenericForStmt) {
	line := n.Span().Start.Line
	base := c.compileExprListTo(n.Exprs, 3)

	varBase, _ := c.regs.Reserve(len(n.Names))

	jmp := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), line)

	loop := &loopContext{}
	c.pushScope(loop)
	for i, name := range n.Names {
		c.locals = append(c.locals, local{name: name.Name, register: varBase + i})
	}
	bodyStart := len(c.code)
	c.compileBlock(n.Body)
	c.popScope()

	loopTest := len(c.code)
	c.patchJump(jmp, loopTest)
	c.emit(vm.NewABC(vm.OpTForLoop, base, 0, len(n.Names)), n.Span().End.Line)
	backJump := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), n.Span().End.Line)
	c.patchJump(backJump, bodyStart)

	end := len(c.code)
	for _, j := range loop.breakJumps {
		c.patchJump(j, end)
	}
	c.regs.FreeTo(base)
}

func (c *compiler) compileFuncDecl(n *ast.FuncDeclStmt) {
	fnReg := c.compileFunctionExpr(n.Fn)

	if len(n.Name.Fields) == 0 && n.Name.Method == "" {
		c.storeTo(n.Name.Base, fnReg)
		return
	}

	mark := c.regs.Mark()
	obj := c.compileExpr(n.Name.Base)
	for _, f := range n.Name.Fields {
		key := vm.RKConst(c.stringConstant(f))
		next, _ := c.regs.Alloc()
		c.emit(vm.NewABC(vm.OpGetTable, next, obj, key), n.Span().Start.Line)
		obj = next
	}
	fieldName := n.Name.Method
	if fieldName == "" {
		fieldName = n.Name.Fields[len(n.Name.Fields)-1]
	}
	key := vm.RKConst(c.stringConstant(fieldName))
	c.emit(vm.NewABC(vm.OpSetTable, obj, key, fnReg), n.Span().Start.Line)
	c.regs.FreeTo(mark)
}

// compileLocalFunc declares the local before compiling the body, so the
// function may recurse.
func (c *compiler) compileLocalFunc(n *ast.LocalFuncStmt) {
	reg, _ := c.declareLocal(n.Name.Name, n.Span().Start.Line)
	fnReg := c.compileFunctionExpr(n.Fn)
	if fnReg != reg {
		c.emit(vm.NewABC(vm.OpMove, reg, fnReg, 0), n.Span().Start.Line)
	}
}

func (c *compiler) compileReturn(n *ast.ReturnStmt) {
	line := n.Span().Start.Line
	if len(n.Exprs) == 1 {
		if call, ok := n.Exprs[0].(*ast.CallExpr); ok {
			fnReg, _ := c.compileCall(call, -1)
			c.emit(vm.NewABC(vm.OpReturn, fnReg, 0, 0), line)
			return
		}
	}
	base := c.compileExprListTo(n.Exprs, len(n.Exprs))
	c.emit(vm.NewABC(vm.OpReturn, base, len(n.Exprs)+1, 0), line)
}

func (c *compiler) compileBreak(n *ast.BreakStmt) {
	loop := c.innermostLoop()
	if loop == nil {
		c.fail(n.Span().Start.Line, "break outside a loop")
	}
	j := c.emit(vm.NewAsBx(vm.OpJmp, 0, 0), n.Span().Start.Line)
	loop.breakJumps = append(loop.breakJumps, j)
}
