package compiler

import (
	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/vm"
)

// compileCall emits CALL A B C. wantResults is the
// number of results the caller wants materialized (0 means "discard",
// used for call statements; -1 means "all", used for return/last-in-list
// expansion). It returns the register holding the first result and the
// actual B field used, mostly so callers that need B=0 (multret) can tell.
func (c *compiler) compileCall(n *ast.CallExpr, wantResults int) (int, int) {
	line := n.Span().Start.Line
	mark := c.regs.Mark()

	fnReg, _ := c.regs.Alloc()
	if n.Method != "" {
		obj := c.compileExpr(n.Fn)
		key := vm.RKConst(c.stringConstant(n.Method))
		c.emit(vm.NewABC(vm.OpSelf, fnReg, obj, key), line)
		c.regs.FreeTo(fnReg + 1)
		c.regs.Alloc() // SELF also claims fnReg+1 for the object copy
	} else {
		v := c.compileExpr(n.Fn)
		if v != fnReg {
			c.emit(vm.NewABC(vm.OpMove, fnReg, v, 0), line)
		}
		c.regs.FreeTo(fnReg + 1)
	}

	b := c.compileArgs(n.Args)
	if n.Method != "" && b != 0 {
		b++ // the object copy in fnReg+1 is the first argument
	}

	c.regs.next = fnReg + 1 // temporaries beyond the call window are free again
	cField := wantResults + 1
	if wantResults < 0 {
		cField = 0
	}
	c.emit(vm.NewABC(vm.OpCall, fnReg, b, cField), line)

	if wantResults < 0 {
		c.regs.next = fnReg + 1
	} else {
		c.regs.next = fnReg + wantResults
		if c.regs.next < mark+1 {
			c.regs.next = mark + 1
		}
	}
	if c.regs.next > c.regs.maxStack {
		c.regs.maxStack = c.regs.next
	}
	return fnReg, b
}

// compileArgs evaluates a call's argument list into consecutive registers
// starting right after the callable register, expanding the last argument
// if it is itself a Call or Vararg.
// Returns the CALL instruction's B field (argc+1, or 0 for "up to top").
func (c *compiler) compileArgs(args []ast.Expr) int {
	if len(args) == 0 {
		return 1
	}
	base := c.regs.Mark()
	for i, a := range args {
		last := i == len(args)-1
		if last {
			if call, ok := a.(*ast.CallExpr); ok {
				c.compileCall(call, -1)
				return 0
			}
			if _, ok := a.(*ast.VarargExpr); ok {
				r, _ := c.regs.Alloc()
				c.emit(vm.NewABC(vm.OpVararg, r, 0, 0), a.Span().Start.Line)
				return 0
			}
		}
		if r := c.compileExpr(a); r != base+i {
			c.regs.FreeTo(base + i)
			dst, _ := c.regs.Alloc()
			c.emit(vm.NewABC(vm.OpMove, dst, r, 0), a.Span().Start.Line)
		}
	}
	return len(args) + 1
}

// compileFunctionExpr compiles a nested function literal in its own
// compiler, linked to the current one for upvalue resolution, then emits CLOSURE followed by one pseudo-instruction
// per upvalue descriptor.
func (c *compiler) compileFunctionExpr(n *ast.FunctionExpr) int {
	nested := newCompiler(c, c.opts, c.source)
	nested.isVararg = n.IsVararg
	nested.numParams = len(n.Params)

	nested.pushScope(nil)
	for _, p := range n.Params {
		nested.declareLocal(p.Name, p.Span().Start.Line)
	}
	nested.compileBlock(n.Body)
	nested.popScope()
	nested.emit(vm.NewABC(vm.OpReturn, 0, 1, 0), n.Span().End.Line)

	if nested.opts.Peephole {
		collapseJumps(nested.code)
	}

	proto := nested.toProto()
	c.protos = append(c.protos, proto)
	protoIdx := len(c.protos) - 1

	line := n.Span().Start.Line
	r, _ := c.regs.Alloc()
	c.emit(vm.NewABx(vm.OpClosure, r, protoIdx), line)
	for _, desc := range nested.upvalues {
		if desc.FromLocal {
			c.emit(vm.NewABC(vm.OpMove, 0, desc.Index, 0), line)
		} else {
			c.emit(vm.NewABC(vm.OpGetUpval, 0, desc.Index, 0), line)
		}
	}
	return r
}
