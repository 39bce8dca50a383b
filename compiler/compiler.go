package compiler

import (
	"fmt"

	"github.com/glua-lang/glua/ast"
	"github.com/glua-lang/glua/vm"
)

// CompilerError reports a resource overflow or semantic misuse detected
// at compile time, always carrying a line number.
type CompilerError struct {
	Message string
	Line    int
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Message)
}

// Options gates the optional optimization passes. Both default to on; correctness must not depend on
// either being enabled.
type Options struct {
	Fold     bool
	Peephole bool
}

// DefaultOptions enables both optimizations.
func DefaultOptions() Options { return Options{Fold: true, Peephole: true} }

// local is one named local variable of the current function's active
// scopes (original_source's LocalVariable).
type local struct {
	name     string
	register int
	captured bool
}

// scope is one lexical block; exiting it truncates locals back to the
// count recorded at entry.
type scope struct {
	localsAtEntry int
	loop          *loopContext // non-nil if this scope is a loop body
}

// loopContext accumulates the break-jump list for the innermost loop.
type loopContext struct {
	breakJumps []int
}

// compiler lowers one function body (chunk or nested function expression)
// into a vm.Proto. Nested functions get their own compiler, linked via
// parent to implement the enclosing-compiler chain for upvalue
// resolution.
type compiler struct {
	parent *compiler
	opts   Options

	source string

	code           []vm.Instruction
	lines          []int
	constants      []vm.Value
	constIdx       map[vm.Value]int
	stringConstIdx map[string]int
	protos         []*vm.Proto
	upvalues       []vm.UpvalDesc
	upvalNames     []string

	locals []local
	scopes []scope

	regs registers

	numParams int
	isVararg  bool
}

func newCompiler(parent *compiler, opts Options, source string) *compiler {
	return &compiler{
		parent:   parent,
		opts:     opts,
		source:   source,
		constIdx: make(map[vm.Value]int),
	}
}

// Compile compiles a top-level chunk into its Proto.
func Compile(block *ast.Block, sourceName string, opts Options) (proto *vm.Proto, err error) {
	c := newCompiler(nil, opts, sourceName)
	c.isVararg = true // a chunk is implicitly a vararg function

	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompilerError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	c.pushScope(nil)
	c.compileBlock(block)
	c.popScope()
	c.emit(vm.NewABC(vm.OpReturn, 0, 1, 0), block.Span().End.Line)

	if c.opts.Peephole {
		collapseJumps(c.code)
	}

	return c.toProto(), nil
}

func (c *compiler) fail(line int, format string, args ...interface{}) {
	panic(&CompilerError{Message: fmt.Sprintf(format, args...), Line: line})
}

func (c *compiler) toProto() *vm.Proto {
	return &vm.Proto{
		Source:    c.source,
		Code:      c.code,
		Lines:     c.lines,
		Constants: c.constants,
		Protos:    c.protos,
		Upvalues:  c.upvalues,
		NumParams: c.numParams,
		IsVararg:  c.isVararg,
		MaxStack:  c.regs.maxStack,
	}
}

func (c *compiler) emit(ins vm.Instruction, line int) int {
	c.code = append(c.code, ins)
	c.lines = append(c.lines, line)
	return len(c.code) - 1
}

// constant interns v into the constant pool, deduplicating.
func (c *compiler) constant(v vm.Value) int {
	if idx, ok := c.constIdx[v]; ok {
		return idx
	}
	if len(c.constants) >= maxConstants {
		c.fail(0, "too many constants")
	}
	idx := len(c.constants)
	c.constants = append(c.constants, v)
	c.constIdx[v] = idx
	return idx
}

func (c *compiler) numberConstant(n float64) int { return c.constant(vm.Number(n)) }

// stringConstant interns s within this compiler's own constant pool only
// (constIdx, keyed by Value — distinct *vm.String objects with equal
// content would defeat dedup, so a per-compiler staging map keyed by the
// Go string itself is used instead).
func (c *compiler) stringConstant(s string) int {
	if idx, ok := c.stringConstIdx[s]; ok {
		return idx
	}
	idx := c.constant(vm.StringValue(vm.NewRawString(s)))
	if c.stringConstIdx == nil {
		c.stringConstIdx = make(map[string]int)
	}
	c.stringConstIdx[s] = idx
	return idx
}

func (c *compiler) pushScope(loop *loopContext) {
	c.scopes = append(c.scopes, scope{localsAtEntry: len(c.locals), loop: loop})
}

// popScope truncates locals back to the scope's entry count, emitting
// CLOSE for any local in the departing scope that was captured.
func (c *compiler) popScope() {
	s := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]

	needsClose := false
	for i := s.localsAtEntry; i < len(c.locals); i++ {
		if c.locals[i].captured {
			needsClose = true
			break
		}
	}
	if needsClose {
		c.emit(vm.NewABC(vm.OpClose, c.locals[s.localsAtEntry].register, 0, 0), 0)
	}

	c.locals = c.locals[:s.localsAtEntry]
	c.regs.FreeTo(s.localsAtEntry)
}

func (c *compiler) declareLocal(name string, line int) (int, error) {
	if len(c.locals) >= maxLocals {
		return 0, fmt.Errorf("too many local variables")
	}
	reg, err := c.regs.Alloc()
	if err != nil {
		return 0, err
	}
	c.locals = append(c.locals, local{name: name, register: reg})
	return reg, nil
}

func (c *compiler) innermostLoop() *loopContext {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i].loop != nil {
			return c.scopes[i].loop
		}
	}
	return nil
}
